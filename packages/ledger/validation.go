package ledger

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/blake2b"
)

// TransactionBalancesValid returns true if the transaction neither creates nor destroys funds: for every token class
// the consumed amount equals the created amount.
func TransactionBalancesValid(inputs []*Output, outputs []*Output) bool {
	consumed := make(Balances)
	for _, input := range inputs {
		consumed.Add(input.Balances)
	}

	created := make(Balances)
	for _, output := range outputs {
		created.Add(output.Balances)
	}

	if len(consumed) != len(created) {
		return false
	}
	for tokenID, amount := range consumed {
		if created[tokenID] != amount {
			return false
		}
	}

	return true
}

// UnlockBlocksValidWithError checks that every input of the transaction is properly unlocked: the unlock block's
// public key digests to the input's address and its signature verifies against the transaction essence. The inputs
// must be provided in the order of the essence's inputs.
func UnlockBlocksValidWithError(inputs []*Output, transaction *Transaction) (valid bool, err error) {
	unlockBlocks := transaction.UnlockBlocks()
	if len(inputs) != len(unlockBlocks) {
		return false, errors.Errorf("amount of inputs (%d) does not match amount of unlock blocks (%d)", len(inputs), len(unlockBlocks))
	}

	essenceBytes := transaction.Essence().Bytes()
	for i, unlockBlock := range unlockBlocks {
		if unlockBlock.Type == ReferenceUnlockBlockType {
			referencedIndex := int(unlockBlock.ReferencedIndex)
			if referencedIndex >= len(unlockBlocks) || unlockBlocks[referencedIndex].Type != SignatureUnlockBlockType {
				return false, errors.Errorf("unlock block %d references an invalid unlock block %d", i, referencedIndex)
			}
			unlockBlock = unlockBlocks[referencedIndex]
		}

		addressDigest := blake2b.Sum256(unlockBlock.PublicKey.Bytes())
		if addressDigest != inputs[i].Address.AddressBytes {
			return false, nil
		}
		if !unlockBlock.PublicKey.VerifySignature(essenceBytes, unlockBlock.Signature) {
			return false, nil
		}
	}

	return true, nil
}
