package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"0", 0},
		{"4096", 4096},
		{"512B", 512},
		{"64K", 64 << 10},
		{"64k", 64 << 10},
		{"4M", 4 << 20},
		{"2G", 2 << 30},
		{"1T", 1 << 40},
		{"1.5G", 3 << 29},
		{" 8M ", 8 << 20},
		{"10MB", 10_000_000},
		{"10MiB", 10 << 20},
		{"64 KiB", 64 << 10},
		{"2kb", 2000},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSizeErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "fast", "M", "ten G"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSize(input)
			assert.Error(t, err)
		})
	}
}
