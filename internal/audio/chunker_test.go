package audio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPcmChunkerYieldsExactSizeChunks(t *testing.T) {
	c := NewPcmChunker(16000, 20) // 640 bytes per chunk
	assert.Equal(t, 640, c.ChunkBytes())

	var all []byte
	var produced [][]byte

	push := func(n int) {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		all = append(all, data...)
		produced = append(produced, c.Push(data)...)
	}

	push(300)
	push(500)
	push(1000)

	for _, chunk := range produced {
		assert.Len(t, chunk, 640)
	}

	residue := c.Residue()
	assert.Less(t, len(residue), 640)

	var reconstructed []byte
	for _, chunk := range produced {
		reconstructed = append(reconstructed, chunk...)
	}
	reconstructed = append(reconstructed, residue...)
	assert.True(t, bytes.Equal(all, reconstructed))
}

func TestPcmChunkerEmptyPush(t *testing.T) {
	c := NewPcmChunker(16000, 20)
	assert.Nil(t, c.Push(nil))
}
