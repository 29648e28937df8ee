package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseScanInterval(t *testing.T) {
	fallback := time.Hour

	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"1h", time.Hour},
		{"2h", 2 * time.Hour},
		{"30m", 30 * time.Minute},
		{"0.5h", 30 * time.Minute},
		{"1", time.Hour},
		{"2", 2 * time.Hour},
		{"0.5", 30 * time.Minute},
		{" 2H ", 2 * time.Hour},
		{"", fallback},
		{"0", fallback},
		{"-1h", fallback},
		{"soon", fallback},
		{"1d", fallback},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseScanInterval(tc.raw, fallback))
		})
	}
}
