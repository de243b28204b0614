// Package tracking issues the human-readable parcel codes given to buyers
// once a payment is confirmed.
package tracking

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// Prefix starts every tracking code.
const Prefix = "PRCL"

// Generator produces codes of the form PRCL-YYYYMMDD-XXXXXX, where the date is
// the UTC generation date and XXXXXX is 3 random bytes in uppercase hex.
// Uniqueness rests on those 24 random bits per day; nothing enforces it.
type Generator struct {
	now    func() time.Time
	random io.Reader
}

// NewGenerator returns a Generator using the wall clock and crypto/rand.
func NewGenerator() *Generator {
	return &Generator{now: time.Now, random: rand.Reader}
}

// Next returns a fresh tracking code.
func (g *Generator) Next() (string, error) {
	b := make([]byte, 3)
	if _, err := io.ReadFull(g.random, b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	date := g.now().UTC().Format("20060102")
	return fmt.Sprintf("%s-%s-%s", Prefix, date, strings.ToUpper(hex.EncodeToString(b))), nil
}

// New returns a tracking code from the default generator.
func New() (string, error) {
	return NewGenerator().Next()
}
