package rand

import (
	"strings"
	"testing"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/stretchr/testify/assert"
)

func TestNewRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for _, length := range []int{1, 7, 8, 9, constants.RequestIDLength, 33} {
		id := NewRequestID(length)
		assert.Len(t, id, length)
		for _, c := range id {
			assert.True(t, strings.ContainsRune(charset, c), "unexpected %q in %q", c, id)
		}
		seen[id] = true
	}
	for range 100 {
		id := NewRequestID(constants.RequestIDLength)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func BenchmarkNewRequestID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NewRequestID(constants.RequestIDLength)
	}
}
