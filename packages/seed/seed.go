package seed

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/iotaledger/hive.go/crypto/ed25519"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/wallet.go/packages/address"
)

// Length contains the amount of bytes of a Seed.
const Length = 32

// Seed is the root secret of a wallet. All of the wallet's keys and addresses are deterministically derived from it,
// so backing up the seed is enough to back up access to the funds.
type Seed struct {
	seedBytes []byte
}

// NewSeed creates a new Seed. It either generates a random one or restores the seed from the optionally provided
// bytes.
func NewSeed(optionalSeedBytes ...[]byte) *Seed {
	if len(optionalSeedBytes) >= 1 {
		if len(optionalSeedBytes[0]) < Length {
			panic("seed bytes provided are too short")
		}

		return &Seed{seedBytes: optionalSeedBytes[0][:Length]}
	}

	randomSeedBytes := make([]byte, Length)
	if _, err := rand.Read(randomSeedBytes); err != nil {
		panic(err)
	}

	return &Seed{seedBytes: randomSeedBytes}
}

// KeyPair returns the key pair that belongs to the address of the given derivation index and chain.
func (s *Seed) KeyPair(index uint64, internal bool) (keyPair ed25519.KeyPair) {
	privateKey := ed25519.PrivateKeyFromSeed(s.subSeed(index, internal))
	keyPair.PrivateKey = privateKey
	keyPair.PublicKey = privateKey.Public()

	return
}

// Address returns the address that belongs to the given derivation index and chain.
func (s *Seed) Address(index uint64, internal bool) address.Address {
	return address.FromED25519PubKey(s.KeyPair(index, internal).PublicKey, index, internal)
}

// Bytes returns a copy of the raw bytes of the Seed.
func (s *Seed) Bytes() []byte {
	seedBytes := make([]byte, len(s.seedBytes))
	copy(seedBytes, s.seedBytes)

	return seedBytes
}

// Zero overwrites the seed bytes in memory. The Seed must not be used afterwards.
func (s *Seed) Zero() {
	for i := range s.seedBytes {
		s.seedBytes[i] = 0
	}
}

// String returns the base58 encoded representation of the Seed.
func (s *Seed) String() string {
	return base58.Encode(s.seedBytes)
}

// subSeed derives the sub seed for the given derivation index and chain by hashing it together with the root seed.
func (s *Seed) subSeed(index uint64, internal bool) []byte {
	indexBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(indexBytes, index)

	chainByte := byte(0)
	if internal {
		chainByte = 1
	}

	hashOfIndexBytes := blake2b.Sum256(append(indexBytes, chainByte))

	subSeed := make([]byte, Length)
	for i, sb := range s.seedBytes {
		subSeed[i] = sb ^ hashOfIndexBytes[i]
	}

	return subSeed
}
