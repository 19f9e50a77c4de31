package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinarySizeConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"KiB equals 1024", KiB, 1024},
		{"MiB equals 1024*KiB", MiB, 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.got)
		})
	}
}
