package ledger

import (
	"bytes"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/crypto/ed25519"
	"github.com/iotaledger/hive.go/marshalutil"
	"github.com/iotaledger/hive.go/stringify"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/wallet.go/packages/address"
)

// region TransactionID ////////////////////////////////////////////////////////////////////////////////////////////////

// TransactionIDLength contains the amount of bytes of a marshaled TransactionID.
const TransactionIDLength = 32

// TransactionID is the identifier of a Transaction. It is the blake2b digest of the marshaled transaction essence,
// so it is already known before the transaction is signed or submitted.
type TransactionID [TransactionIDLength]byte

// EmptyTransactionID represents the zero-value of a TransactionID.
var EmptyTransactionID TransactionID

// TransactionIDFromBase58 creates a TransactionID from a base58 encoded string.
func TransactionIDFromBase58(base58String string) (transactionID TransactionID, err error) {
	decodedBytes, err := base58.Decode(base58String)
	if err != nil {
		err = errors.Errorf("error while decoding base58 encoded TransactionID: %w", err)
		return
	}
	if len(decodedBytes) != TransactionIDLength {
		err = errors.Errorf("TransactionID must be %d bytes long, got %d", TransactionIDLength, len(decodedBytes))
		return
	}
	copy(transactionID[:], decodedBytes)

	return
}

// TransactionIDFromMarshalUtil unmarshals a TransactionID using a MarshalUtil (for easier unmarshaling).
func TransactionIDFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (transactionID TransactionID, err error) {
	transactionIDBytes, err := marshalUtil.ReadBytes(TransactionIDLength)
	if err != nil {
		err = errors.Errorf("failed to parse TransactionID: %w", err)
		return
	}
	copy(transactionID[:], transactionIDBytes)

	return
}

// Bytes returns a marshaled version of the TransactionID.
func (t TransactionID) Bytes() []byte {
	return t[:]
}

// Base58 returns the base58 encoded representation of the TransactionID.
func (t TransactionID) Base58() string {
	return base58.Encode(t[:])
}

// String returns a human-readable representation of the TransactionID.
func (t TransactionID) String() string {
	return "TransactionID(" + t.Base58() + ")"
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region TransactionEssence ///////////////////////////////////////////////////////////////////////////////////////////

// TransactionEssence contains the transfer relevant information of a Transaction: the consumed inputs and the
// created outputs. Its marshaled form is the payload that gets signed by the unlock blocks.
type TransactionEssence struct {
	version   uint8
	timestamp time.Time
	inputs    []OutputID
	outputs   []*Output
}

// NewTransactionEssence creates a TransactionEssence from the given inputs and outputs. The inputs are sorted to
// make the resulting essence deterministic and the identifiers of the created outputs are assigned from the
// resulting TransactionID.
func NewTransactionEssence(inputs []OutputID, outputs []*Output) (essence *TransactionEssence) {
	sortedInputs := make([]OutputID, len(inputs))
	copy(sortedInputs, inputs)
	sort.Slice(sortedInputs, func(i, j int) bool {
		return bytes.Compare(sortedInputs[i][:], sortedInputs[j][:]) < 0
	})

	essence = &TransactionEssence{
		version:   0,
		timestamp: time.Now(),
		inputs:    sortedInputs,
		outputs:   outputs,
	}

	transactionID := essence.TransactionID()
	for i, output := range essence.outputs {
		output.ID = NewOutputID(transactionID, uint16(i))
		output.Timestamp = essence.timestamp
	}

	return
}

// TransactionEssenceFromMarshalUtil unmarshals a TransactionEssence using a MarshalUtil (for easier unmarshaling).
func TransactionEssenceFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (essence *TransactionEssence, err error) {
	essence = &TransactionEssence{}
	if essence.version, err = marshalUtil.ReadByte(); err != nil {
		err = errors.Errorf("failed to parse essence version: %w", err)
		return
	}
	if essence.timestamp, err = marshalUtil.ReadTime(); err != nil {
		err = errors.Errorf("failed to parse essence timestamp: %w", err)
		return
	}

	inputCount, err := marshalUtil.ReadUint16()
	if err != nil {
		err = errors.Errorf("failed to parse input count: %w", err)
		return
	}
	essence.inputs = make([]OutputID, inputCount)
	for i := uint16(0); i < inputCount; i++ {
		if essence.inputs[i], err = OutputIDFromMarshalUtil(marshalUtil); err != nil {
			return
		}
	}

	outputCount, err := marshalUtil.ReadUint16()
	if err != nil {
		err = errors.Errorf("failed to parse output count: %w", err)
		return
	}
	essence.outputs = make([]*Output, outputCount)
	for i := uint16(0); i < outputCount; i++ {
		output := &Output{}
		if output.Address, err = address.FromMarshalUtil(marshalUtil); err != nil {
			return
		}
		if output.Balances, err = BalancesFromMarshalUtil(marshalUtil); err != nil {
			return
		}
		if output.NFT, err = NFTIDFromMarshalUtil(marshalUtil); err != nil {
			return
		}
		essence.outputs[i] = output
	}

	// restore the derived output identifiers
	transactionID := essence.TransactionID()
	for i, output := range essence.outputs {
		output.ID = NewOutputID(transactionID, uint16(i))
		output.Timestamp = essence.timestamp
	}

	return
}

// Version returns the version of the TransactionEssence.
func (e *TransactionEssence) Version() uint8 {
	return e.version
}

// Timestamp returns the timestamp of the TransactionEssence.
func (e *TransactionEssence) Timestamp() time.Time {
	return e.timestamp
}

// Inputs returns the identifiers of the outputs consumed by the TransactionEssence.
func (e *TransactionEssence) Inputs() []OutputID {
	return e.inputs
}

// Outputs returns the outputs created by the TransactionEssence.
func (e *TransactionEssence) Outputs() []*Output {
	return e.outputs
}

// TransactionID returns the identifier of the transaction that this essence forms.
func (e *TransactionEssence) TransactionID() (transactionID TransactionID) {
	return blake2b.Sum256(e.Bytes())
}

// Bytes returns a marshaled version of the TransactionEssence. This is the payload covered by the signatures.
func (e *TransactionEssence) Bytes() []byte {
	marshalUtil := marshalutil.New()
	marshalUtil.WriteByte(e.version)
	marshalUtil.WriteTime(e.timestamp)
	marshalUtil.WriteUint16(uint16(len(e.inputs)))
	for _, input := range e.inputs {
		marshalUtil.WriteBytes(input.Bytes())
	}
	marshalUtil.WriteUint16(uint16(len(e.outputs)))
	for _, output := range e.outputs {
		marshalUtil.WriteBytes(output.essenceBytes())
	}

	return marshalUtil.Bytes()
}

// String returns a human-readable representation of the TransactionEssence.
func (e *TransactionEssence) String() string {
	return stringify.Struct("TransactionEssence",
		stringify.StructField("transactionID", e.TransactionID()),
		stringify.StructField("inputCount", len(e.inputs)),
		stringify.StructField("outputCount", len(e.outputs)),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region UnlockBlock //////////////////////////////////////////////////////////////////////////////////////////////////

// UnlockBlockType represents the type of an UnlockBlock.
type UnlockBlockType uint8

const (
	// SignatureUnlockBlockType represents an UnlockBlock that carries a signature of the transaction essence.
	SignatureUnlockBlockType UnlockBlockType = iota

	// ReferenceUnlockBlockType represents an UnlockBlock that references an earlier signature unlock block of the
	// same transaction (inputs sharing an owner are signed once).
	ReferenceUnlockBlockType
)

// String returns a human readable representation of the UnlockBlockType.
func (u UnlockBlockType) String() string {
	return [...]string{
		"SignatureUnlockBlockType",
		"ReferenceUnlockBlockType",
	}[u]
}

// UnlockBlock authorizes the consumption of one input of a Transaction.
type UnlockBlock struct {
	Type            UnlockBlockType
	PublicKey       ed25519.PublicKey
	Signature       ed25519.Signature
	ReferencedIndex uint16
}

// NewSignatureUnlockBlock creates an UnlockBlock carrying a signature of the transaction essence.
func NewSignatureUnlockBlock(publicKey ed25519.PublicKey, signature ed25519.Signature) UnlockBlock {
	return UnlockBlock{
		Type:      SignatureUnlockBlockType,
		PublicKey: publicKey,
		Signature: signature,
	}
}

// NewReferenceUnlockBlock creates an UnlockBlock referencing the signature unlock block at the given index.
func NewReferenceUnlockBlock(referencedIndex uint16) UnlockBlock {
	return UnlockBlock{
		Type:            ReferenceUnlockBlockType,
		ReferencedIndex: referencedIndex,
	}
}

// UnlockBlockFromMarshalUtil unmarshals an UnlockBlock using a MarshalUtil (for easier unmarshaling).
func UnlockBlockFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (unlockBlock UnlockBlock, err error) {
	unlockBlockType, err := marshalUtil.ReadByte()
	if err != nil {
		err = errors.Errorf("failed to parse unlock block type: %w", err)
		return
	}
	unlockBlock.Type = UnlockBlockType(unlockBlockType)

	switch unlockBlock.Type {
	case SignatureUnlockBlockType:
		publicKeyBytes, publicKeyErr := marshalUtil.ReadBytes(ed25519.PublicKeySize)
		if publicKeyErr != nil {
			err = errors.Errorf("failed to parse unlock block public key: %w", publicKeyErr)
			return
		}
		copy(unlockBlock.PublicKey[:], publicKeyBytes)

		signatureBytes, signatureErr := marshalUtil.ReadBytes(ed25519.SignatureSize)
		if signatureErr != nil {
			err = errors.Errorf("failed to parse unlock block signature: %w", signatureErr)
			return
		}
		copy(unlockBlock.Signature[:], signatureBytes)
	case ReferenceUnlockBlockType:
		if unlockBlock.ReferencedIndex, err = marshalUtil.ReadUint16(); err != nil {
			err = errors.Errorf("failed to parse unlock block reference: %w", err)
			return
		}
	default:
		err = errors.Errorf("unsupported unlock block type %d", unlockBlockType)
	}

	return
}

// Bytes returns a marshaled version of the UnlockBlock.
func (u UnlockBlock) Bytes() []byte {
	marshalUtil := marshalutil.New()
	marshalUtil.WriteByte(byte(u.Type))
	switch u.Type {
	case SignatureUnlockBlockType:
		marshalUtil.WriteBytes(u.PublicKey.Bytes())
		marshalUtil.WriteBytes(u.Signature.Bytes())
	case ReferenceUnlockBlockType:
		marshalUtil.WriteUint16(u.ReferencedIndex)
	}

	return marshalUtil.Bytes()
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////

// region Transaction //////////////////////////////////////////////////////////////////////////////////////////////////

// Transaction is a signed TransactionEssence that can be submitted to the ledger.
type Transaction struct {
	essence      *TransactionEssence
	unlockBlocks []UnlockBlock
}

// NewTransaction creates a Transaction from the given essence and unlock blocks.
func NewTransaction(essence *TransactionEssence, unlockBlocks []UnlockBlock) *Transaction {
	if len(unlockBlocks) != len(essence.Inputs()) {
		panic("amount of unlock blocks does not match amount of inputs")
	}

	return &Transaction{
		essence:      essence,
		unlockBlocks: unlockBlocks,
	}
}

// TransactionFromMarshalUtil unmarshals a Transaction using a MarshalUtil (for easier unmarshaling).
func TransactionFromMarshalUtil(marshalUtil *marshalutil.MarshalUtil) (transaction *Transaction, err error) {
	transaction = &Transaction{}
	if transaction.essence, err = TransactionEssenceFromMarshalUtil(marshalUtil); err != nil {
		return
	}

	unlockBlockCount, err := marshalUtil.ReadUint16()
	if err != nil {
		err = errors.Errorf("failed to parse unlock block count: %w", err)
		return
	}
	transaction.unlockBlocks = make([]UnlockBlock, unlockBlockCount)
	for i := uint16(0); i < unlockBlockCount; i++ {
		if transaction.unlockBlocks[i], err = UnlockBlockFromMarshalUtil(marshalUtil); err != nil {
			return
		}
	}

	return
}

// TransactionFromBytes unmarshals a Transaction from a sequence of bytes.
func TransactionFromBytes(transactionBytes []byte) (transaction *Transaction, err error) {
	return TransactionFromMarshalUtil(marshalutil.New(transactionBytes))
}

// ID returns the identifier of the Transaction.
func (t *Transaction) ID() TransactionID {
	return t.essence.TransactionID()
}

// Essence returns the TransactionEssence of the Transaction.
func (t *Transaction) Essence() *TransactionEssence {
	return t.essence
}

// UnlockBlocks returns the UnlockBlocks of the Transaction.
func (t *Transaction) UnlockBlocks() []UnlockBlock {
	return t.unlockBlocks
}

// Bytes returns a marshaled version of the Transaction.
func (t *Transaction) Bytes() []byte {
	marshalUtil := marshalutil.New()
	marshalUtil.WriteBytes(t.essence.Bytes())
	marshalUtil.WriteUint16(uint16(len(t.unlockBlocks)))
	for _, unlockBlock := range t.unlockBlocks {
		marshalUtil.WriteBytes(unlockBlock.Bytes())
	}

	return marshalUtil.Bytes()
}

// String returns a human-readable representation of the Transaction.
func (t *Transaction) String() string {
	return stringify.Struct("Transaction",
		stringify.StructField("id", t.ID().Base58()),
		stringify.StructField("essence", t.essence),
	)
}

// endregion ///////////////////////////////////////////////////////////////////////////////////////////////////////////
