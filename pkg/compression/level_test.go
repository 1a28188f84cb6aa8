package compression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuality(t *testing.T) {
	assert.Equal(t, 95, High.Quality())
	assert.Equal(t, 85, Medium.Quality())
	assert.Equal(t, 70, Low.Quality())
}

func TestEveryLevelHasPolicy(t *testing.T) {
	for _, l := range All() {
		t.Run(string(l), func(t *testing.T) {
			p, ok := policies[l]
			assert.True(t, ok)
			assert.Greater(t, p.quality, 0)
			assert.LessOrEqual(t, p.quality, 100)
			assert.NotEmpty(t, p.label)
		})
	}
	assert.Len(t, policies, len(All()))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "High Quality (95%)", High.Label())
	assert.Equal(t, "Medium Quality (85%)", Medium.Label())
	assert.Equal(t, "Low Quality (70%)", Low.Label())
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"high", High},
		{"HIGH", High},
		{" low ", Low},
		{"medium", Medium},
		{"ultra", Medium},
		{"", Medium},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestZeroLevel(t *testing.T) {
	var l Level
	assert.False(t, l.Valid())
	assert.Equal(t, Medium.Quality(), l.Quality())
}
