package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeCheckedVADRejectsWrongSize(t *testing.T) {
	inner := NewStubVAD(1)
	guarded := NewSizeCheckedVAD(640, inner)

	_, err := guarded.IsSpeech(make([]byte, 100))
	assert.Error(t, err)

	_, err = guarded.IsSpeech(make([]byte, 640))
	assert.NoError(t, err)
}

func TestStubVADTogglesEveryN(t *testing.T) {
	v := NewStubVAD(2)
	var results []bool
	for i := 0; i < 6; i++ {
		speech, err := v.IsSpeech(nil)
		require.NoError(t, err)
		results = append(results, speech)
	}
	assert.Equal(t, []bool{false, true, true, false, false, true}, results)
}
