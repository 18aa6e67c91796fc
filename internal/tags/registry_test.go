package tags

import (
	"errors"
	"testing"

	"github.com/safar/go-storefront/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndResolve(t *testing.T) {
	kind := Register("gadget")

	resolved, err := Resolve("gadget")
	require.NoError(t, err)
	assert.Equal(t, kind, resolved)
	assert.True(t, Registered(kind))
}

func TestResolveUnregistered(t *testing.T) {
	_, err := Resolve("never-registered")
	require.Error(t, err)

	var configErr *database.ConfigurationError
	assert.True(t, errors.As(err, &configErr))
	assert.False(t, Registered(Kind("never-registered")))
}

func TestRegisteredKindsSorted(t *testing.T) {
	Register("zebra")
	Register("aardvark")

	names := RegisteredKinds()
	assert.Contains(t, names, "zebra")
	assert.Contains(t, names, "aardvark")
	assert.IsIncreasing(t, names)
}
