package ledger

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/mr-tron/base58"
)

// region TokenID //////////////////////////////////////////////////////////////////////////////////////////////////////

// TokenIDLength contains the amount of bytes of a marshaled TokenID.
const TokenIDLength = 32

// TokenID is the identifier of a class of native tokens. The zero value identifies the base token of the ledger.
type TokenID [TokenIDLength]byte

// BaseToken is the TokenID of the base token of the ledger.
var BaseToken TokenID

// TokenIDFromBytes unmarshals a TokenID from a sequence of bytes.
func TokenIDFromBytes(tokenIDBytes []byte) (tokenID TokenID, err error) {
	if len(tokenIDBytes) != TokenIDLength {
		err = errors.Errorf("TokenID must be %d bytes long, got %d", TokenIDLength, len(tokenIDBytes))
		return
	}
	copy(tokenID[:], tokenIDBytes)

	return
}

// TokenIDFromBase58 creates a TokenID from a base58 encoded string.
func TokenIDFromBase58(base58String string) (tokenID TokenID, err error) {
	decodedBytes, err := base58.Decode(base58String)
	if err != nil {
		err = errors.Errorf("error while decoding base58 encoded TokenID: %w", err)
		return
	}

	return TokenIDFromBytes(decodedBytes)
}

// TokenIDFromMarshalUtil unmarshals a TokenID using a MarshalUtil (for easier unmarshaling).
func TokenIDFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (tokenID TokenID, err error) {
	tokenIDBytes, err := marshalUtil.ReadBytes(TokenIDLength)
	if err != nil {
		err = errors.Errorf("failed to parse TokenID: %w", err)
		return
	}
	copy(tokenID[:], tokenIDBytes)

	return
}

// Bytes returns a marshaled version of the TokenID.
func (t TokenID) Bytes() []byte {
	return t[:]
}

// Base58 returns the base58 encoded representation of the TokenID.
func (t TokenID) Base58() string {
	return base58.Encode(t[:])
}

// String returns a human-readable representation of the TokenID.
func (t TokenID) String() string {
	if t == BaseToken {
		return "BASE"
	}

	return t.Base58()
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Balances /////////////////////////////////////////////////////////////////////////////////////////////////////

// Balances maps token classes to amounts.
type Balances map[TokenID]uint64

// BalancesFromMarshalUtil unmarshals Balances using a MarshalUtil (for easier unmarshaling).
func BalancesFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (balances Balances, err error) {
	balancesCount, err := marshalUtil.ReadUint32()
	if err != nil {
		err = errors.Errorf("failed to parse balances count: %w", err)
		return
	}

	balances = make(Balances, balancesCount)
	for i := uint32(0); i < balancesCount; i++ {
		tokenID, tokenIDErr := TokenIDFromMarshalUtil(marshalUtil)
		if tokenIDErr != nil {
			err = tokenIDErr
			return
		}
		amount, amountErr := marshalUtil.ReadUint64()
		if amountErr != nil {
			err = errors.Errorf("failed to parse balance amount: %w", amountErr)
			return
		}
		balances[tokenID] = amount
	}

	return
}

// Bytes returns a deterministically marshaled version of the Balances (tokens sorted lexicographically).
func (b Balances) Bytes() []byte {
	marshalUtil := marshalutil.New()
	marshalUtil.WriteUint32(uint32(len(b)))
	for _, tokenID := range b.sortedTokenIDs() {
		marshalUtil.WriteBytes(tokenID.Bytes())
		marshalUtil.WriteUint64(b[tokenID])
	}

	return marshalUtil.Bytes()
}

// Clone returns a copy of the Balances.
func (b Balances) Clone() (clonedBalances Balances) {
	clonedBalances = make(Balances, len(b))
	for tokenID, amount := range b {
		clonedBalances[tokenID] = amount
	}

	return
}

// Add adds the given Balances to the receiver.
func (b Balances) Add(other Balances) Balances {
	for tokenID, amount := range other {
		b[tokenID] += amount
	}

	return b
}

// Covers returns true if the receiver holds at least the target amount for every token class of the target.
func (b Balances) Covers(target Balances) bool {
	for tokenID, amount := range target {
		if b[tokenID] < amount {
			return false
		}
	}

	return true
}

// String returns a human-readable representation of the Balances.
func (b Balances) String() (humanReadableBalances string) {
	buffer := bytes.NewBufferString("Balances(")
	for i, tokenID := range b.sortedTokenIDs() {
		if i != 0 {
			buffer.WriteString(", ")
		}
		buffer.WriteString(tokenID.String())
		buffer.WriteString(": ")
		buffer.WriteString(amountString(b[tokenID]))
	}
	buffer.WriteString(")")

	return buffer.String()
}

// amountString renders a token amount for human consumption.
func amountString(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}

// sortedTokenIDs returns the token classes of the Balances in deterministic order.
func (b Balances) sortedTokenIDs() (tokenIDs []TokenID) {
	tokenIDs = make([]TokenID, 0, len(b))
	for tokenID := range b {
		tokenIDs = append(tokenIDs, tokenID)
	}
	sort.Slice(tokenIDs, func(i, j int) bool {
		return bytes.Compare(tokenIDs[i][:], tokenIDs[j][:]) < 0
	})

	return
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
