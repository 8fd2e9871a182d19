// Package rand generates request ids for the websocket transport.
package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

const (
	bytesInUint64 = 8
	charset       = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var defaultSource = newSource()

type source struct {
	mut sync.Mutex
	rng *rand.Rand
}

func newSource() *source {
	seed := make([]byte, bytesInUint64*2)
	if _, err := cryptorand.Read(seed); err != nil {
		panic("unreachable")
	}
	return &source{
		//nolint:gosec // request ids need no cryptographic strength
		rng: rand.New(rand.NewPCG(
			binary.LittleEndian.Uint64(seed[:8]),
			binary.LittleEndian.Uint64(seed[8:]),
		)),
	}
}

// fill writes random bytes over buf.
func (s *source) fill(buf []byte) {
	s.mut.Lock()
	defer s.mut.Unlock()
	var chunk [bytesInUint64]byte
	for i := 0; i < len(buf); i += bytesInUint64 {
		binary.LittleEndian.PutUint64(chunk[:], s.rng.Uint64())
		copy(buf[i:], chunk[:])
	}
}

// NewRequestID returns a base62 id of the given length. The distribution is slightly
// biased, which does not matter for correlating requests.
func NewRequestID(length int) string {
	buf := make([]byte, length)
	defaultSource.fill(buf)
	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}
	return string(buf)
}
