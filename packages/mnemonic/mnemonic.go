package mnemonic

import (
	"github.com/cockroachdb/errors"
	bip39 "github.com/vulpemventures/go-bip39"
	"golang.org/x/crypto/blake2b"
)

// DefaultEntropySize is the entropy size (in bits) used when generating a new mnemonic, resulting in a 24 word
// sentence.
const DefaultEntropySize = 256

var (
	// ErrInvalidEntropySize is returned when the requested entropy size is not a valid BIP-39 entropy size.
	ErrInvalidEntropySize = errors.New("entropy size must be a multiple of 32 between 128 and 256")

	// ErrInvalidMnemonic is returned when a sentence fails the BIP-39 checksum verification.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

// Generate creates a new BIP-39 mnemonic sentence with the given entropy size in bits. If no size is provided,
// DefaultEntropySize is used.
func Generate(optionalEntropySize ...int) (mnemonic string, err error) {
	entropySize := DefaultEntropySize
	if len(optionalEntropySize) >= 1 {
		entropySize = optionalEntropySize[0]
	}
	if entropySize < 128 || entropySize > 256 || entropySize%32 != 0 {
		err = ErrInvalidEntropySize
		return
	}

	entropy, err := bip39.NewEntropy(entropySize)
	if err != nil {
		err = errors.Errorf("failed to gather entropy: %w", err)
		return
	}

	return bip39.NewMnemonic(entropy)
}

// Verify checks that the given sentence is a valid BIP-39 mnemonic.
func Verify(mnemonic string) (err error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return ErrInvalidMnemonic
	}

	return
}

// Seed derives the 32 byte wallet seed from the given mnemonic sentence. The mnemonic is verified before derivation.
func Seed(mnemonic string) (seedBytes []byte, err error) {
	if err = Verify(mnemonic); err != nil {
		return
	}

	// bip39 produces a 64 byte seed, the wallet seed is its blake2b digest
	longSeed := bip39.NewSeed(mnemonic, "")
	digest := blake2b.Sum256(longSeed)

	return digest[:], nil
}
