package classify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selltide/autoship/internal/event"
)

func mustClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New()
	require.NoError(t, err)
	return c
}

func decodeEvent(t *testing.T, raw string) event.Value {
	t.Helper()
	v, err := event.Decode([]byte(raw))
	require.NoError(t, err)
	return v
}

// buttonEvent builds a chat-card event whose serialized button payload
// carries the given target URL at the known nested path.
func buttonEvent(t *testing.T, targetURL string) event.Value {
	t.Helper()
	payload := fmt.Sprintf(
		`{"dxCard":{"item":{"main":{"exContent":{"button":{"targetUrl":%q}}}}}}`,
		targetURL,
	)
	raw := fmt.Sprintf(`{"1":{"6":{"3":{"5":%q}}},"redReminder":"[我已付款，等待你发货]"}`, payload)
	return decodeEvent(t, raw)
}

func TestClassify_ButtonPayloadOrderID(t *testing.T) {
	c := mustClassifier(t)

	v := c.Classify(buttonEvent(t, "fleamarket://order?orderId=2889884335219692601"))
	assert.True(t, v.IsPayment)
	assert.Equal(t, "2889884335219692601", v.OrderID)
}

func TestClassify_MainTargetURLOrderID(t *testing.T) {
	c := mustClassifier(t)

	payload := `{"dxCard":{"item":{"main":{"targetUrl":"https://h5.example.com/order_detail?id=2889884335219692602"}}}}`
	raw := fmt.Sprintf(`{"1":{"6":{"3":{"5":%q}}},"state":"TRADE_PAID_DONE_SELLER"}`, payload)

	v := c.Classify(decodeEvent(t, raw))
	assert.True(t, v.IsPayment)
	assert.Equal(t, "2889884335219692602", v.OrderID)
}

func TestClassify_FlattenedFallback(t *testing.T) {
	c := mustClassifier(t)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "orderId assignment",
			raw:  `{"note": "等待你发货", "detail": "orderId=1234567890123"}`,
			want: "1234567890123",
		},
		{
			name: "order_detail url",
			raw:  `{"note": "等待你发货", "url": "app://x/order_detail?id=9876543210987"}`,
			want: "9876543210987",
		},
		{
			name: "quoted id field",
			raw:  `{"note": "等待你发货", "id": "5555555555555"}`,
			want: "5555555555555",
		},
		{
			name: "bizOrderId",
			raw:  `{"note": "等待你发货", "biz": "bizOrderId:7777777777777"}`,
			want: "7777777777777",
		},
		{
			name: "short numbers are not order ids",
			raw:  `{"note": "等待你发货", "detail": "orderId=12345"}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Classify(decodeEvent(t, tt.raw))
			assert.True(t, v.IsPayment)
			assert.Equal(t, tt.want, v.OrderID)
		})
	}
}

func TestClassify_FallbackPriorityOrder(t *testing.T) {
	c := mustClassifier(t)

	// Both patterns present: orderId= outranks order_detail?id= regardless
	// of position in the flattened string.
	raw := `{"a_url": "x/order_detail?id=1111111111111", "z_detail": "orderId=2222222222222", "note": "等待你发货"}`
	v := c.Classify(decodeEvent(t, raw))
	assert.Equal(t, "2222222222222", v.OrderID)
}

func TestClassify_PaymentPhrases(t *testing.T) {
	c := mustClassifier(t)

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "buyer paid phrase", raw: `{"text": "我已付款，等待你发货"}`, want: true},
		{name: "short paid phrase", raw: `{"reminder": "已付款，待发货"}`, want: true},
		{name: "trade state tag", raw: `{"state": "TRADE_PAID_DONE_SELLER"}`, want: true},
		{name: "awaiting payment", raw: `{"text": "待付款"}`, want: false},
		{name: "refund requested", raw: `{"text": "我发起了退款申请"}`, want: false},
		{name: "trade closed", raw: `{"text": "交易关闭"}`, want: false},
		{name: "plain chatter", raw: `{"text": "在吗，什么时候发货啊"}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(decodeEvent(t, tt.raw)).IsPayment)
		})
	}
}

func TestClassify_PaymentWithoutOrderID(t *testing.T) {
	c := mustClassifier(t)

	v := c.Classify(decodeEvent(t, `{"text": "我已付款，等待你发货"}`))
	assert.True(t, v.IsPayment)
	assert.Empty(t, v.OrderID)
}

func TestClassify_ExtractsCorrelationIDs(t *testing.T) {
	c := mustClassifier(t)

	v := c.Classify(decodeEvent(t, `{
		"4": {
			"reminderContent": "[我已付款，等待你发货]",
			"reminderUrl": "fleamarket://message_chat?itemId=1021323735276&peerUserId=2219139921839",
			"updateKey": "58497186568:4502061577026003543:63:TRADE_PAID_DONE_SELLER:26"
		}
	}`))

	assert.True(t, v.IsPayment)
	assert.Equal(t, "1021323735276", v.ItemID)
	assert.Equal(t, "2219139921839", v.BuyerID)
}

func TestClassify_NoCorrelationIDsInPlainChat(t *testing.T) {
	c := mustClassifier(t)

	v := c.Classify(decodeEvent(t, `{"text": "在吗"}`))
	assert.Empty(t, v.ItemID)
	assert.Empty(t, v.BuyerID)
}

func TestClassify_NeverFailsOnMalformedShapes(t *testing.T) {
	c := mustClassifier(t)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "payload node is not json", raw: `{"1":{"6":{"3":{"5":"not json at all"}}}}`},
		{name: "payload node is a number", raw: `{"1":{"6":{"3":{"5":42}}}}`},
		{name: "path interrupted by array", raw: `{"1":{"6":[1,2,3]}}`},
		{name: "scalar root", raw: `"just a string"`},
		{name: "null root", raw: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() { c.Classify(decodeEvent(t, tt.raw)) })
		})
	}

	assert.Equal(t, Verdict{}, c.Classify(nil))
}

func TestIsDeliveryTrigger(t *testing.T) {
	c := mustClassifier(t)

	assert.True(t, c.IsDeliveryTrigger("[我已付款，等待你发货]"))
	assert.True(t, c.IsDeliveryTrigger("[已付款，待发货]"))
	assert.True(t, c.IsDeliveryTrigger("[记得及时发货]"))
	assert.True(t, c.IsDeliveryTrigger("系统消息：我已付款，等待你发货，请尽快处理"))

	assert.False(t, c.IsDeliveryTrigger("在吗"))
	assert.False(t, c.IsDeliveryTrigger(""))
}

func TestCheckPhraseDisjointness(t *testing.T) {
	require.NoError(t, CheckPhraseDisjointness(defaultPositivePhrases, defaultNegativePhrases))

	err := CheckPhraseDisjointness([]string{"付款"}, []string{"待付款"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "substring")

	assert.Error(t, CheckPhraseDisjointness([]string{""}, []string{"x"}))
	assert.Error(t, CheckPhraseDisjointness([]string{"x"}, []string{""}))
}

func TestNewWithPhrases_RejectsOverlappingLists(t *testing.T) {
	_, err := NewWithPhrases([]string{"付款"}, []string{"待付款"}, nil)
	require.Error(t, err)
}
