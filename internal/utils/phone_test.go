package utils_test

import (
	"testing"

	"github.com/fathima-sithara/moms/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"9876543210", "9876543210"},
		{"98765 43210", "9876543210"},
		{"987-654-3210", "9876543210"},
		{"+91 98765-43210", "919876543210"},
		{"(987) 654 3210", "9876543210"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, utils.NormalizePhone(tt.in), tt.in)
	}
}

func TestCredentialIdentifier(t *testing.T) {
	assert.Equal(t, "9876543210@moms.app", utils.CredentialIdentifier("98765-43210", "moms.app"))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, utils.IsValidPhone("9876543210"))
	assert.True(t, utils.IsValidPhone("+91 98765 43210"))
	assert.False(t, utils.IsValidPhone("12345"))
	assert.False(t, utils.IsValidPhone("0987654321"))
	assert.False(t, utils.IsValidPhone("1234567890123456"))
}

func TestNormalizePhones_DedupesAndDropsEmpty(t *testing.T) {
	got := utils.NormalizePhones([]string{"98765 43210", "9876543210", "", "--", "9876543211"})
	assert.Equal(t, []string{"9876543210", "9876543211"}, got)
}
