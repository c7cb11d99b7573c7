package ledger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/byteutils"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/stringify"
	"github.com/mr-tron/base58"

	"github.com/iotaledger/wallet.go/packages/address"
)

// region OutputID /////////////////////////////////////////////////////////////////////////////////////////////////////

// OutputIDLength contains the amount of bytes of a marshaled OutputID.
const OutputIDLength = TransactionIDLength + marshalutil.Uint16Size

// OutputID is the identifier of an Output. It consists of the TransactionID of the transaction that created the
// Output and the index of the Output within that transaction.
type OutputID [OutputIDLength]byte

// EmptyOutputID represents the zero-value of an OutputID.
var EmptyOutputID OutputID

// NewOutputID is the constructor for the OutputID.
func NewOutputID(transactionID TransactionID, outputIndex uint16) (outputID OutputID) {
	if outputIndex >= MaxOutputCount {
		panic(fmt.Sprintf("output index exceeds threshold defined by MaxOutputCount (%d)", MaxOutputCount))
	}

	copy(outputID[:TransactionIDLength], transactionID.Bytes())
	binary.LittleEndian.PutUint16(outputID[TransactionIDLength:], outputIndex)

	return
}

// OutputIDFromBase58 creates an OutputID from a base58 encoded string.
func OutputIDFromBase58(base58String string) (outputID OutputID, err error) {
	decodedBytes, err := base58.Decode(base58String)
	if err != nil {
		err = errors.Errorf("error while decoding base58 encoded OutputID: %w", err)
		return
	}
	if len(decodedBytes) != OutputIDLength {
		err = errors.Errorf("OutputID must be %d bytes long, got %d", OutputIDLength, len(decodedBytes))
		return
	}
	copy(outputID[:], decodedBytes)

	return
}

// OutputIDFromMarshalUtil unmarshals an OutputID using a MarshalUtil (for easier unmarshaling).
func OutputIDFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (outputID OutputID, err error) {
	outputIDBytes, err := marshalUtil.ReadBytes(OutputIDLength)
	if err != nil {
		err = errors.Errorf("failed to parse OutputID: %w", err)
		return
	}
	copy(outputID[:], outputIDBytes)

	return
}

// TransactionID returns the TransactionID part of the OutputID.
func (o OutputID) TransactionID() (transactionID TransactionID) {
	copy(transactionID[:], o[:TransactionIDLength])

	return
}

// OutputIndex returns the index of the Output within its creating transaction.
func (o OutputID) OutputIndex() uint16 {
	return binary.LittleEndian.Uint16(o[TransactionIDLength:])
}

// Bytes returns a marshaled version of the OutputID.
func (o OutputID) Bytes() []byte {
	return o[:]
}

// Base58 returns the base58 encoded representation of the OutputID.
func (o OutputID) Base58() string {
	return base58.Encode(o[:])
}

// String returns a human-readable representation of the OutputID.
func (o OutputID) String() string {
	return stringify.Struct("OutputID",
		stringify.StructField("transactionID", o.TransactionID()),
		stringify.StructField("outputIndex", o.OutputIndex()),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region NFTID ////////////////////////////////////////////////////////////////////////////////////////////////////////

// NFTIDLength contains the amount of bytes of a marshaled NFTID.
const NFTIDLength = 32

// NFTID is the identifier of a non-fungible token carried by an Output. The zero value means that the Output does
// not carry an NFT.
type NFTID [NFTIDLength]byte

// EmptyNFTID represents the zero-value of an NFTID.
var EmptyNFTID NFTID

// NFTIDFromBase58 creates an NFTID from a base58 encoded string.
func NFTIDFromBase58(base58String string) (nftID NFTID, err error) {
	decodedBytes, err := base58.Decode(base58String)
	if err != nil {
		err = errors.Errorf("error while decoding base58 encoded NFTID: %w", err)
		return
	}
	if len(decodedBytes) != NFTIDLength {
		err = errors.Errorf("NFTID must be %d bytes long, got %d", NFTIDLength, len(decodedBytes))
		return
	}
	copy(nftID[:], decodedBytes)

	return
}

// NFTIDFromMarshalUtil unmarshals an NFTID using a MarshalUtil (for easier unmarshaling).
func NFTIDFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (nftID NFTID, err error) {
	nftIDBytes, err := marshalUtil.ReadBytes(NFTIDLength)
	if err != nil {
		err = errors.Errorf("failed to parse NFTID: %w", err)
		return
	}
	copy(nftID[:], nftIDBytes)

	return
}

// IsEmpty returns true if the NFTID is the zero value.
func (n NFTID) IsEmpty() bool {
	return n == EmptyNFTID
}

// Bytes returns a marshaled version of the NFTID.
func (n NFTID) Bytes() []byte {
	return n[:]
}

// Base58 returns the base58 encoded representation of the NFTID.
func (n NFTID) Base58() string {
	return base58.Encode(n[:])
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Output ///////////////////////////////////////////////////////////////////////////////////////////////////////

// Output is an indivisible spendable unit of value recorded on the ledger. Next to its balances it can carry a
// non-fungible token.
type Output struct {
	ID        OutputID
	Address   address.Address
	Balances  Balances
	NFT       NFTID
	Timestamp time.Time
}

// NewOutput creates an Output addressed to the given Address holding the given Balances.
func NewOutput(addr address.Address, balances Balances) *Output {
	return &Output{
		Address:  addr,
		Balances: balances.Clone(),
	}
}

// NewNFTOutput creates an Output that carries a non-fungible token next to its Balances.
func NewNFTOutput(addr address.Address, balances Balances, nftID NFTID) (output *Output) {
	output = NewOutput(addr, balances)
	output.NFT = nftID

	return
}

// OutputFromMarshalUtil unmarshals an Output using a MarshalUtil (for easier unmarshaling).
func OutputFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (output *Output, err error) {
	output = &Output{}
	if output.ID, err = OutputIDFromMarshalUtil(marshalUtil); err != nil {
		return
	}
	if output.Address, err = address.FromMarshalUtil(marshalUtil); err != nil {
		return
	}
	if output.Balances, err = BalancesFromMarshalUtil(marshalUtil); err != nil {
		return
	}
	if output.NFT, err = NFTIDFromMarshalUtil(marshalUtil); err != nil {
		return
	}
	if output.Timestamp, err = marshalUtil.ReadTime(); err != nil {
		err = errors.Errorf("failed to parse output timestamp: %w", err)
		return
	}

	return
}

// Amount returns the amount of the given token class held by the Output.
func (o *Output) Amount(tokenID TokenID) uint64 {
	return o.Balances[tokenID]
}

// Clone returns a deep copy of the Output.
func (o *Output) Clone() *Output {
	return &Output{
		ID:        o.ID,
		Address:   o.Address,
		Balances:  o.Balances.Clone(),
		NFT:       o.NFT,
		Timestamp: o.Timestamp,
	}
}

// Bytes returns a marshaled version of the Output.
func (o *Output) Bytes() []byte {
	return byteutils.ConcatBytes(o.ID.Bytes(), o.essenceBytes(), marshalutil.New().WriteTime(o.Timestamp).Bytes())
}

// essenceBytes returns the marshaled version of the Output that is part of the transaction essence. It excludes the
// OutputID (which is only known once the creating transaction is final) and the ledger supplied timestamp.
func (o *Output) essenceBytes() []byte {
	return byteutils.ConcatBytes(o.Address.Bytes(), o.Balances.Bytes(), o.NFT.Bytes())
}

// String returns a human-readable representation of the Output.
func (o *Output) String() string {
	return stringify.Struct("Output",
		stringify.StructField("id", o.ID.Base58()),
		stringify.StructField("address", o.Address.Base58()),
		stringify.StructField("balances", o.Balances),
		stringify.StructField("nft", o.NFT.Base58()),
		stringify.StructField("timestamp", o.Timestamp),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
