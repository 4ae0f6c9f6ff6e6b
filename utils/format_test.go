package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "international", in: "+260971234567", want: "+260 97 123 4567"},
		{name: "local with spaces", in: "097 123 4567", want: "+260 97 123 4567"},
		{name: "dashes", in: "0977-123-456", want: "+260 97 712 3456"},
		{name: "unknown format", in: " 12345 ", want: "12345"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPhone(tt.in))
		})
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2026, time.March, 4, 18, 5, 0, 0, time.UTC)
	assert.Equal(t, "04 Mar 2026, 18:05", FormatTime(ts, time.UTC))
	assert.Equal(t, "", FormatTime(time.Time{}, time.UTC))
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "K20.00", FormatCurrency(20))
	assert.Equal(t, "K15,000.50", FormatCurrency(15000.5))
	assert.Equal(t, "-K3.25", FormatCurrency(-3.25))
	assert.Equal(t, "1,234", FormatNumber(1234))
}
