package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotateResult(t *testing.T) {
	assert.NoError(t, rotateResult(1))
	assert.ErrorIs(t, rotateResult(0), ErrTokenReused)
	assert.ErrorIs(t, rotateResult(-1), ErrSessionRevoked)
}
