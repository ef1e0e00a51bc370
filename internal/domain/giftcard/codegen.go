package giftcard

import (
	"crypto/rand"
	"strings"
)

// codeAlphabet is wide enough that a 12-character suffix gives far more
// than the 36^8 guessing space the instrument needs. Ambiguous glyphs
// (0/O, 1/I/L) are excluded so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeGroupSize = 4

// Generator produces gift card codes with a fixed human-readable prefix
// and a random suffix. Uniqueness is not guaranteed here; the registry's
// unique index is the authority and callers retry on ErrDuplicateCode.
type Generator struct {
	prefix string
	length int
}

func NewGenerator(prefix string, length int) *Generator {
	if length < 8 {
		length = 8
	}
	return &Generator{prefix: strings.ToUpper(prefix), length: length}
}

// Generate returns a code like NOVA-X7K2-M9QD-R4TX
func (g *Generator) Generate() (string, error) {
	// Bytes at or above this limit are rejected so every alphabet
	// character is equally likely (256 is not a multiple of 31).
	limit := byte(256 - 256%len(codeAlphabet))

	var b strings.Builder
	b.WriteString(g.prefix)

	written := 0
	raw := make([]byte, 2*g.length)
	for written < g.length {
		if _, err := rand.Read(raw); err != nil {
			return "", err
		}
		for _, c := range raw {
			if c >= limit {
				continue
			}
			if written%codeGroupSize == 0 {
				b.WriteByte('-')
			}
			b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
			written++
			if written == g.length {
				break
			}
		}
	}
	return b.String(), nil
}
