// Package passgen produces high-entropy passphrases. Passphrases are
// never operator-supplied for encryption: generation is the only path,
// which prevents weak-password selection at encryption time. Manual
// entry exists solely for decryption.
package passgen

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/sealbox/sealbox/internal/secret"
)

// Delimiter joins the selected words.
const Delimiter = "-"

// Generate selects wordCount words independently and uniformly from the
// embedded wordlist using crypto/rand and joins them with Delimiter.
func Generate(wordCount int) (*secret.Passphrase, error) {
	if wordCount < 1 {
		return nil, fmt.Errorf("word count must be positive, got %d", wordCount)
	}

	size := big.NewInt(int64(len(wordlist)))
	buf := make([]byte, 0, wordCount*6)
	for i := 0; i < wordCount; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return nil, fmt.Errorf("draw random word index: %w", err)
		}
		if i > 0 {
			buf = append(buf, Delimiter...)
		}
		buf = append(buf, wordlist[n.Int64()]...)
	}
	return secret.New(buf), nil
}

// EntropyBits reports the entropy of a generated passphrase of
// wordCount words, for display to the operator.
func EntropyBits(wordCount int) float64 {
	return float64(wordCount) * math.Log2(float64(len(wordlist)))
}

// WordlistSize exposes the list length for entropy reporting.
func WordlistSize() int { return len(wordlist) }
