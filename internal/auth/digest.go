package auth

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// ErrEmptyKey is returned when an empty credential is digested.
var ErrEmptyKey = errors.New("empty API key")

// Digester derives the storage identifier of an API key.
//
// Keys are high-entropy random strings, so a fast keyed MAC is enough to keep
// a leaked table from being replayed, and it keeps lookups exact-match.
type Digester struct {
	pepper []byte
}

// NewDigester creates a Digester keyed with pepper. An empty pepper yields
// plain BLAKE2b-256, which is only acceptable outside production.
func NewDigester(pepper string) *Digester {
	p := []byte(pepper)
	if len(p) > blake2b.Size {
		sum := blake2b.Sum512(p)
		p = sum[:]
	}
	return &Digester{pepper: p}
}

// Digest returns the hex encoded BLAKE2b-256 MAC of key.
func (d *Digester) Digest(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	if len(d.pepper) == 0 {
		sum := blake2b.Sum256([]byte(key))
		return hex.EncodeToString(sum[:]), nil
	}

	mac, err := blake2b.New256(d.pepper)
	if err != nil {
		return "", err
	}
	_, _ = mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
