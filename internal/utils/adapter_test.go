package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringToUint(t *testing.T) {
	v, err := StringToUint("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), v)

	for _, in := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := StringToUint(in)
		assert.ErrorIs(t, err, ErrInvalidID, "input %q", in)
	}
}

func TestQueryUint(t *testing.T) {
	assert.Equal(t, uint(7), QueryUint("", 7))
	assert.Equal(t, uint(7), QueryUint("nope", 7))
	assert.Equal(t, uint(0), QueryUint("0", 7))
	assert.Equal(t, uint(30), QueryUint("30", 7))
}
