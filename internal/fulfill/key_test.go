package fulfill

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderKey(t *testing.T) {
	// The order id alone is the key: every redelivery shape of the same
	// order must collapse onto one ledger row.
	assert.Equal(t, "2889884335219692601", OrderKey("2889884335219692601"))
}

func TestFallbackKey(t *testing.T) {
	assert.Equal(t, "chat:c1|item:i1", FallbackKey("c1", "i1"))

	// Same chat, different items: distinct purchases, distinct keys.
	assert.NotEqual(t, FallbackKey("c1", "i1"), FallbackKey("c1", "i2"))
	assert.NotEqual(t, FallbackKey("c1", "i1"), FallbackKey("c2", "i1"))
}
