package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilingNumber(t *testing.T) {
	tests := []struct {
		input   string
		segment string
		valid   bool
	}{
		{"0001234-03.2026.8.26.0100", "Justiça Estadual", true},
		{"10023456320254037100", "Justiça Federal", true},
		{"0001234-56.2026.8.26.0100", "Justiça Estadual", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, err := ParseFilingNumber(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.segment, c.SegmentName())
			assert.Equal(t, tt.valid, c.Valid)
		})
	}

	_, err := ParseFilingNumber("123/2020")
	assert.Error(t, err)
}

func TestBuildFilingNumber(t *testing.T) {
	number, err := BuildFilingNumber(1234, 2026, "8", 26, 100)
	require.NoError(t, err)
	assert.Equal(t, "0001234-03.2026.8.26.0100", number)

	_, err = BuildFilingNumber(1, 2026, "0", 26, 100)
	assert.True(t, IsValidation(err))
	_, err = BuildFilingNumber(10000000, 2026, "8", 26, 100)
	assert.True(t, IsValidation(err))
}

func TestNormalizeFilingNumber(t *testing.T) {
	assert.Equal(t, "1002345-63.2025.4.03.7100", NormalizeFilingNumber(" 10023456320254037100 "))
	assert.Equal(t, "0001234-56.2026.8.26.0100", NormalizeFilingNumber("0001234-56.2026.8.26.0100"))
	assert.Equal(t, "583.00.2009.123456-7", NormalizeFilingNumber("583.00.2009.123456-7 "))
}
