package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCard() Card {
	return Card{
		Name:    "激活码",
		Type:    CardTypeText,
		Enabled: true,
		Content: "感谢购买",
	}
}

func TestCardValidate(t *testing.T) {
	require.NoError(t, validCard().Validate())

	tests := []struct {
		name   string
		mutate func(*Card)
		want   string
	}{
		{
			name:   "missing name",
			mutate: func(c *Card) { c.Name = "" },
			want:   "name is required",
		},
		{
			name:   "invalid type",
			mutate: func(c *Card) { c.Type = "video" },
			want:   "invalid type",
		},
		{
			name:   "negative delay",
			mutate: func(c *Card) { c.DelaySeconds = -1 },
			want:   "delay_seconds",
		},
		{
			name:   "multi-spec without value",
			mutate: func(c *Card) { c.IsMultiSpec = true; c.SpecName = "颜色" },
			want:   "requires spec name and value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCard()
			tt.mutate(&c)

			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRuleValidate(t *testing.T) {
	valid := Rule{Keyword: "手机壳", CardID: 1, DeliveryCount: 1, Enabled: true}
	require.NoError(t, valid.Validate())

	missingKeyword := valid
	missingKeyword.Keyword = ""
	assert.ErrorContains(t, missingKeyword.Validate(), "keyword is required")

	missingCard := valid
	missingCard.CardID = 0
	assert.ErrorContains(t, missingCard.Validate(), "card_id is required")

	zeroCount := valid
	zeroCount.DeliveryCount = 0
	assert.ErrorContains(t, zeroCount.Validate(), "delivery_count")
}

func TestSplitStockLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "empty", content: "", want: nil},
		{name: "single line", content: "CODE-A", want: []string{"CODE-A"}},
		{
			name:    "blank lines and whitespace dropped",
			content: "  CODE-A  \n\n\tCODE-B\n   \n",
			want:    []string{"CODE-A", "CODE-B"},
		},
		{name: "only whitespace", content: " \n \t \n", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStockLines(tt.content))
		})
	}
}

func TestJoinStockLinesRoundTrip(t *testing.T) {
	lines := []string{"CODE-A", "CODE-B", "CODE-C"}
	assert.Equal(t, lines, SplitStockLines(JoinStockLines(lines)))
}

func TestOrderSpec(t *testing.T) {
	withSpec := Order{OrderID: "1", SpecName: "颜色", SpecValue: "蓝色"}
	spec, ok := withSpec.Spec()
	require.True(t, ok)
	assert.Equal(t, Spec{Name: "颜色", Value: "蓝色"}, spec)

	// Both halves are required: a name without a value is no spec.
	_, ok = Order{OrderID: "2", SpecName: "颜色"}.Spec()
	assert.False(t, ok)

	_, ok = Order{OrderID: "3"}.Spec()
	assert.False(t, ok)
}
