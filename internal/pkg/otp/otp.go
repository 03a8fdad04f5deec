// Package otp generates numeric one-time codes.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// DefaultLength is the number of digits used when callers don't specify one.
const DefaultLength = 6

// ErrInvalidLength is returned when fewer than one digit is requested.
var ErrInvalidLength = errors.New("the number of digits must be at least 1")

// Bytes at or above this value are rejected so that byte % 10 stays uniform.
const rejectFrom = 250

// Generator produces codes of independently drawn decimal digits from its
// random source. The zero value draws from crypto/rand.
type Generator struct {
	src io.Reader
}

// NewGenerator returns a Generator reading from src. A nil src means crypto/rand.
func NewGenerator(src io.Reader) *Generator {
	return &Generator{src: src}
}

// Generate returns a string of n random digits. Leading zeros are kept.
func (g *Generator) Generate(n int) (string, error) {
	if n < 1 {
		return "", ErrInvalidLength
	}
	src := g.src
	if src == nil {
		src = rand.Reader
	}
	code := make([]byte, 0, n)
	var buf [1]byte
	for len(code) < n {
		if _, err := io.ReadFull(src, buf[:]); err != nil {
			return "", fmt.Errorf("generate otp digit: %w", err)
		}
		if buf[0] >= rejectFrom {
			continue
		}
		code = append(code, '0'+buf[0]%10)
	}
	return string(code), nil
}
