package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLabelRoundTripsCanonical(t *testing.T) {
	for l := range canonicalEmotions {
		got, ok := NormalizeLabel(l)
		assert.True(t, ok)
		assert.Equal(t, l, got)
	}
}

func TestNormalizeLabelMapsSynonyms(t *testing.T) {
	for syn, canon := range emotionSynonyms {
		got, ok := NormalizeLabel(syn)
		assert.True(t, ok)
		assert.Equal(t, canon, got)
	}
}

func TestNormalizeLabelUnknownYieldsFalse(t *testing.T) {
	_, ok := NormalizeLabel("bewildered")
	assert.False(t, ok)
}

func TestNormalizeLabelCaseAndWhitespaceInsensitive(t *testing.T) {
	got, ok := NormalizeLabel("  Happy  ")
	assert.True(t, ok)
	assert.Equal(t, "happy", got)
}
