// Package idgen generates short, URL-safe ids for new plan nodes.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix is prepended to every generated node id.
var DefaultPrefix = "pn-"

// Alphabet is the character set of the random part.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters (excluding the prefix).
var Length = 10

// Generate returns a new id with the default prefix.
func Generate() (string, error) {
	return GenerateWithPrefix(DefaultPrefix)
}

// GenerateWithPrefix returns a new id with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Unique generates ids until taken reports false. It gives up after a few
// collisions, which only happens with a tiny alphabet or length.
func Unique(prefix string, taken func(string) bool) (string, error) {
	for i := 0; i < 8; i++ {
		id, err := GenerateWithPrefix(prefix)
		if err != nil {
			return "", err
		}
		if taken == nil || !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("idgen: no free id with prefix %q", prefix)
}
