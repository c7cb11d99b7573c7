package address

import (
	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/crypto/ed25519"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/stringify"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// Length contains the amount of bytes of the digest part of an Address.
const Length = 32

// Address represents an address of the wallet. It carries the derivation index and the chain (internal addresses
// receive remainders, external addresses receive deposits) next to the raw address bytes.
type Address struct {
	AddressBytes [Length]byte
	Index        uint64
	Internal     bool
}

// AddressEmpty represents the 0-value of an Address.
var AddressEmpty = Address{}

// FromED25519PubKey creates an Address from the given public key and derivation details.
func FromED25519PubKey(key ed25519.PublicKey, index uint64, internal bool) (address Address) {
	address.AddressBytes = blake2b.Sum256(key.Bytes())
	address.Index = index
	address.Internal = internal

	return
}

// FromBase58 decodes the digest part of an Address from a base58 encoded string. The derivation details of foreign
// addresses are unknown, so they are left at their 0-values.
func FromBase58(base58String string) (address Address, err error) {
	addressBytes, err := base58.Decode(base58String)
	if err != nil {
		err = errors.Errorf("error while decoding base58 encoded Address (%v): %w", err, ErrBase58DecodeFailed)
		return
	}
	if len(addressBytes) != Length {
		err = errors.Errorf("decoded Address has %d instead of %d bytes: %w", len(addressBytes), Length, ErrInvalidAddress)
		return
	}
	copy(address.AddressBytes[:], addressBytes)

	return
}

// FromMarshalUtil unmarshals an Address using a MarshalUtil (for easier unmarshaling).
func FromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (address Address, err error) {
	addressBytes, err := marshalUtil.ReadBytes(Length)
	if err != nil {
		err = errors.Errorf("failed to parse address bytes: %w", err)
		return
	}
	copy(address.AddressBytes[:], addressBytes)

	if address.Index, err = marshalUtil.ReadUint64(); err != nil {
		err = errors.Errorf("failed to parse address index: %w", err)
		return
	}
	if address.Internal, err = marshalUtil.ReadBool(); err != nil {
		err = errors.Errorf("failed to parse address chain flag: %w", err)
		return
	}

	return
}

// Bytes returns a marshaled version of the Address.
func (a Address) Bytes() []byte {
	return marshalutil.New().
		WriteBytes(a.AddressBytes[:]).
		WriteUint64(a.Index).
		WriteBool(a.Internal).
		Bytes()
}

// Equals returns true if the two addresses point to the same digest, regardless of their derivation details.
func (a Address) Equals(other Address) bool {
	return a.AddressBytes == other.AddressBytes
}

// Base58 returns the base58 encoded digest of the Address.
func (a Address) Base58() string {
	return base58.Encode(a.AddressBytes[:])
}

// String returns a human-readable representation of the Address.
func (a Address) String() string {
	return stringify.Struct("Address",
		stringify.StructField("Digest", a.Base58()),
		stringify.StructField("Index", a.Index),
		stringify.StructField("Internal", a.Internal),
	)
}

var (
	// ErrBase58DecodeFailed is returned when a base58 encoded address can not be decoded.
	ErrBase58DecodeFailed = errors.New("failed to decode base58 encoded address")

	// ErrInvalidAddress is returned when the decoded bytes do not form a valid address.
	ErrInvalidAddress = errors.New("invalid address")
)
