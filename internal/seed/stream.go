package seed

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"math"
)

// #region stream

// Stream yields deterministic bytes and floats keyed by a mission digest.
// Each 32-byte round is HMAC-SHA256(digest, "salt:round"), so a remix that
// consumes the same stream reproduces the same choices on any platform.
type Stream struct {
	key    []byte
	salt   string
	round  uint64
	pos    int
	buffer [32]byte
}

// NewStream starts a stream at round 0 for digest and salt.
func NewStream(digest, salt string) *Stream {
	s := &Stream{key: []byte(digest), salt: salt}
	s.generateRound()
	return s
}

// Next returns the next byte.
func (s *Stream) Next() byte {
	if s.pos >= len(s.buffer) {
		s.round++
		s.pos = 0
		s.generateRound()
	}
	b := s.buffer[s.pos]
	s.pos++
	return b
}

// Float64 returns a float in [0,1) built from the next four bytes.
func (s *Stream) Float64() float64 {
	var result float64
	for i := 0; i < 4; i++ {
		result += float64(s.Next()) / math.Pow(256, float64(i+1))
	}
	return result
}

// Intn returns an int in [0,n). n must be positive.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Float64() * float64(n))
}

func (s *Stream) generateRound() {
	h := hmac.New(sha256.New, s.key)
	fmt.Fprintf(h, "%s:%d", s.salt, s.round)
	copy(s.buffer[:], h.Sum(nil))
}

// #endregion stream
