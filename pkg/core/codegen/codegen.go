// Package codegen produces random short codes.
package codegen

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// DefaultBytes is the number of random bytes drawn per code.
// Two hex characters are emitted per byte.
const DefaultBytes = 4

// Generator produces a fresh candidate short code.
// Codes are not guaranteed unique; callers must check.
type Generator interface {
	Generate() (string, error)
}

// Hex draws n bytes from a cryptographically secure source and hex encodes them.
type Hex struct {
	n   int
	src io.Reader
}

func NewHex(n int) *Hex {
	if n < DefaultBytes {
		n = DefaultBytes
	}
	return &Hex{n: n, src: rand.Reader}
}

func (g *Hex) Generate() (string, error) {
	b := make([]byte, g.n)
	if _, err := io.ReadFull(g.src, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Func adapts a plain function to Generator.
type Func func() (string, error)

func (f Func) Generate() (string, error) { return f() }
