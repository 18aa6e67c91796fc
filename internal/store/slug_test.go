package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeSlug(t *testing.T) {
	assert.Equal(t, "wireless-mouse-pro", MakeSlug("Wireless Mouse Pro"))
	assert.Equal(t, "cafe-creme", MakeSlug("Café Crème"))
	assert.Equal(t, "50-off-deal", MakeSlug("50% Off Deal!"))
}

func TestUniquifySlug(t *testing.T) {
	first := UniquifySlug("Wireless Mouse Pro")
	second := UniquifySlug("Wireless Mouse Pro")

	assert.True(t, strings.HasPrefix(first, "wireless-mouse-pro-"))
	assert.NotEqual(t, first, second)
}
