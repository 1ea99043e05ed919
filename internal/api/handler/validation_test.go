package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDZPhone(t *testing.T) {
	valid := []string{
		"0555123456",
		"0661 23 45 67",
		"07-71-23-45-67",
		"+213555123456",
		"00213 770 12 34 56",
		"021234567",
		"0.21.23.45.67",
	}
	for _, s := range valid {
		assert.True(t, IsDZPhone(s), s)
	}

	invalid := []string{
		"",
		"12345",
		"0155123456",
		"055512345",
		"05551234567",
		"+33612345678",
		"0555abc456",
	}
	for _, s := range invalid {
		assert.False(t, IsDZPhone(s), s)
	}
}
