package transfer

import (
	"bytes"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/iotaledger/wallet.go/packages/account"
	"github.com/iotaledger/wallet.go/packages/ledger"
)

var (
	// ErrInsufficientFunds is returned when the spendable outputs do not cover the required funds.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTooManyOutputs is returned when covering the required funds would consume more inputs than a transaction
	// can carry.
	ErrTooManyOutputs = errors.New("funds are spread over too many outputs")
)

// SelectOutputs deterministically picks outputs from the spendable set that cover the required funds. For every
// required token class it first looks for a single output holding the exact amount, otherwise it greedily picks the
// largest outputs first. Ties break on the output ID, so the same spendable set and the same requirement always
// produce the same selection.
func SelectOutputs(spendableOutputs []*account.Output, requiredFunds ledger.Balances) (selectedOutputs []*account.Output, err error) {
	selected := make(map[ledger.OutputID]*account.Output)

	for _, tokenID := range sortedTokenIDs(requiredFunds) {
		requiredAmount := requiredFunds[tokenID]
		for _, output := range selected {
			contribution := output.Object.Amount(tokenID)
			if contribution >= requiredAmount {
				requiredAmount = 0

				break
			}
			requiredAmount -= contribution
		}
		if requiredAmount == 0 {
			continue
		}

		candidates := make([]*account.Output, 0)
		for _, output := range spendableOutputs {
			if _, alreadySelected := selected[output.Object.ID]; alreadySelected {
				continue
			}
			if output.Object.Amount(tokenID) > 0 {
				candidates = append(candidates, output)
			}
		}

		// a single output holding the exact amount avoids a remainder for this token
		if exactMatch := findExactMatch(candidates, tokenID, requiredAmount); exactMatch != nil {
			selected[exactMatch.Object.ID] = exactMatch

			continue
		}

		sortCandidates(candidates, tokenID)
		for _, candidate := range candidates {
			selected[candidate.Object.ID] = candidate
			if contribution := candidate.Object.Amount(tokenID); contribution >= requiredAmount {
				requiredAmount = 0

				break
			} else {
				requiredAmount -= contribution
			}
		}
		if requiredAmount > 0 {
			return nil, errors.Wrapf(ErrInsufficientFunds, "token %s", tokenID.String())
		}
	}

	if len(selected) > ledger.MaxInputCount {
		return nil, errors.Wrapf(ErrTooManyOutputs, "selection requires %d inputs but a transaction can carry at most %d", len(selected), ledger.MaxInputCount)
	}

	selectedOutputs = make([]*account.Output, 0, len(selected))
	for _, output := range selected {
		selectedOutputs = append(selectedOutputs, output)
	}
	sort.Slice(selectedOutputs, func(i, j int) bool {
		return bytes.Compare(selectedOutputs[i].Object.ID.Bytes(), selectedOutputs[j].Object.ID.Bytes()) < 0
	})

	return
}

// findExactMatch returns the output whose amount of the given token equals the required amount, preferring the
// smallest output ID when multiple match.
func findExactMatch(candidates []*account.Output, tokenID ledger.TokenID, requiredAmount uint64) (exactMatch *account.Output) {
	for _, candidate := range candidates {
		if candidate.Object.Amount(tokenID) != requiredAmount {
			continue
		}
		if exactMatch == nil || bytes.Compare(candidate.Object.ID.Bytes(), exactMatch.Object.ID.Bytes()) < 0 {
			exactMatch = candidate
		}
	}

	return
}

// sortCandidates orders the candidates by descending amount of the given token, breaking ties on the output ID.
func sortCandidates(candidates []*account.Output, tokenID ledger.TokenID) {
	sort.Slice(candidates, func(i, j int) bool {
		amountI, amountJ := candidates[i].Object.Amount(tokenID), candidates[j].Object.Amount(tokenID)
		if amountI != amountJ {
			return amountI > amountJ
		}

		return bytes.Compare(candidates[i].Object.ID.Bytes(), candidates[j].Object.ID.Bytes()) < 0
	})
}

func sortedTokenIDs(balances ledger.Balances) (tokenIDs []ledger.TokenID) {
	tokenIDs = make([]ledger.TokenID, 0, len(balances))
	for tokenID := range balances {
		tokenIDs = append(tokenIDs, tokenID)
	}
	sort.Slice(tokenIDs, func(i, j int) bool {
		return bytes.Compare(tokenIDs[i].Bytes(), tokenIDs[j].Bytes()) < 0
	})

	return
}
