package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	t.Run("zero several buffers", func(t *testing.T) {
		key := []byte{1, 2, 3, 4, 5}
		plaintext := []byte("gift ideas")
		Zero(key, plaintext)
		assert.Equal(t, make([]byte, 5), key)
		assert.Equal(t, make([]byte, len("gift ideas")), plaintext)
	})

	t.Run("nil and empty buffers", func(t *testing.T) {
		assert.NotPanics(t, func() { Zero(nil, []byte{}) })
		assert.NotPanics(t, func() { Zero() })
	})
}
