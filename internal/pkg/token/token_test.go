package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumericCode_FixedWidthDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := NewNumericCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', code)
		}
	}
}

func TestNewNumericCode_RejectsBadLength(t *testing.T) {
	_, err := NewNumericCode(0)
	assert.Error(t, err)
	_, err = NewNumericCode(19)
	assert.Error(t, err)
}
