// Package syncmanager reconciles the locally tracked account state with what the node reports. A sync run fetches
// the unspent outputs of every known address, probes beyond the known address range for funded addresses, resolves
// the fate of pending transactions and folds the resulting delta into the account in one atomic step.
//
// Transient node failures are retried with a backoff. Addresses that still fail after the retries are skipped and
// reported, so one unreachable query degrades the run to a partial sync instead of failing it.
package syncmanager

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/iotaledger/hive.go/logger"

	"github.com/iotaledger/wallet.go/packages/account"
	"github.com/iotaledger/wallet.go/packages/address"
	"github.com/iotaledger/wallet.go/packages/connector"
	"github.com/iotaledger/wallet.go/packages/ledger"
	"github.com/iotaledger/wallet.go/packages/stronghold"
)

const (
	// DefaultGapLimit is the number of consecutive unfunded addresses after which the address range probing stops.
	DefaultGapLimit = 20

	// DefaultRetryAttempts is the number of times a failing node query is retried before the address is skipped.
	DefaultRetryAttempts = 3

	// DefaultRetryBackoff is the delay between two attempts of a failing node query.
	DefaultRetryBackoff = 500 * time.Millisecond
)

// Result summarizes one sync run of an account.
type Result struct {
	// Balance is the spendable balance after the sync.
	Balance ledger.Balances

	// NewOutputCount is the number of outputs that entered the account.
	NewOutputCount int

	// SpentOutputCount is the number of outputs that transitioned to spent.
	SpentOutputCount int

	// ConfirmedTransactions are the pending transactions the node confirmed.
	ConfirmedTransactions []ledger.TransactionID

	// InvalidatedTransactions are the pending transactions that lost a double spend.
	InvalidatedTransactions []ledger.TransactionID

	// DiscoveredAddresses are previously unknown funded addresses found by the range probing.
	DiscoveredAddresses []address.Address

	// FailedAddresses are the addresses whose node queries kept failing. Their outputs were left untouched.
	FailedAddresses []address.Address

	// Partial is true if parts of the account could not be synced, either because addresses failed or because the
	// locked secret store prevented the address range probing.
	Partial bool
}

// Syncer fetches the ledger state of accounts from a node and reconciles it with the local state.
type Syncer struct {
	connector     connector.Connector
	log           *logger.Logger
	gapLimit      uint64
	retryAttempts int
	retryBackoff  time.Duration
}

// Option is a function that configures a Syncer.
type Option func(*Syncer)

// GapLimit sets the number of consecutive unfunded addresses after which the address range probing stops.
func GapLimit(gapLimit uint64) Option {
	return func(syncer *Syncer) {
		syncer.gapLimit = gapLimit
	}
}

// RetryAttempts sets how often a failing node query is retried before the address is skipped.
func RetryAttempts(retryAttempts int) Option {
	return func(syncer *Syncer) {
		syncer.retryAttempts = retryAttempts
	}
}

// RetryBackoff sets the delay between two attempts of a failing node query.
func RetryBackoff(retryBackoff time.Duration) Option {
	return func(syncer *Syncer) {
		syncer.retryBackoff = retryBackoff
	}
}

// NewSyncer is the constructor for the Syncer.
func NewSyncer(conn connector.Connector, log *logger.Logger, options ...Option) (syncer *Syncer) {
	syncer = &Syncer{
		connector:     conn,
		log:           log,
		gapLimit:      DefaultGapLimit,
		retryAttempts: DefaultRetryAttempts,
		retryBackoff:  DefaultRetryBackoff,
	}
	for _, option := range options {
		option(syncer)
	}

	return
}

// SyncAccount runs one sync of the given account. The addressProvider is used to derive addresses beyond the known
// range; a nil provider (for example while the secret store is locked) skips the range probing and yields a
// partial result.
func (s *Syncer) SyncAccount(acc *account.Account, addressProvider stronghold.AddressProvider) (result *Result, err error) {
	diff := &account.SyncDiff{
		SpentOutputs: make(map[ledger.OutputID]ledger.TransactionID),
	}
	result = &Result{}

	fetchedOutputs, fetchedAddresses := s.fetchKnownAddresses(acc, result)
	if len(fetchedAddresses) == 0 && len(result.FailedAddresses) > 0 {
		return nil, errors.Errorf("failed to sync account %d: all %d addresses unreachable", acc.Index(), len(result.FailedAddresses))
	}
	s.probeAddressRange(acc, addressProvider, diff, result, fetchedOutputs)
	s.resolvePendingTransactions(acc, diff, fetchedAddresses, fetchedOutputs)
	s.collectDiff(acc, diff, fetchedAddresses, fetchedOutputs)

	syncResult := acc.ApplySyncDiff(diff)
	result.Balance = syncResult.Balance
	result.NewOutputCount = syncResult.NewOutputCount
	result.SpentOutputCount = syncResult.SpentOutputCount
	result.ConfirmedTransactions = syncResult.ConfirmedTransactions
	result.InvalidatedTransactions = syncResult.InvalidatedTransactions

	s.log.Debugf("synced account %d: %d new outputs, %d spent outputs, %d confirmed, %d invalidated, partial=%t",
		acc.Index(), result.NewOutputCount, result.SpentOutputCount, len(result.ConfirmedTransactions), len(result.InvalidatedTransactions), result.Partial)

	return result, nil
}

// fetchKnownAddresses queries the unspent outputs of every address the account already tracks. Failing addresses
// are reported in the result and excluded from the returned fetch set.
func (s *Syncer) fetchKnownAddresses(acc *account.Account, result *Result) (fetchedOutputs map[ledger.OutputID]*ledger.Output, fetchedAddresses map[[address.Length]byte]bool) {
	fetchedOutputs = make(map[ledger.OutputID]*ledger.Output)
	fetchedAddresses = make(map[[address.Length]byte]bool)

	for _, accountAddress := range acc.Addresses() {
		outputs, err := s.fetchOutputs(accountAddress.Address)
		if err != nil {
			s.log.Warnf("failed to sync address %s of account %d: %s", accountAddress.Base58(), acc.Index(), err)
			result.FailedAddresses = append(result.FailedAddresses, accountAddress.Address)
			result.Partial = true

			continue
		}

		fetchedAddresses[accountAddress.AddressBytes] = true
		for _, output := range outputs {
			fetchedOutputs[output.ID] = output
		}
	}

	return
}

// probeAddressRange derives addresses beyond the known range and checks them for funds until gapLimit consecutive
// addresses turn out to be unfunded. Both the external and the internal chain are probed.
func (s *Syncer) probeAddressRange(acc *account.Account, addressProvider stronghold.AddressProvider, diff *account.SyncDiff, result *Result, fetchedOutputs map[ledger.OutputID]*ledger.Output) {
	if addressProvider == nil {
		result.Partial = true

		return
	}

	for _, internal := range []bool{false, true} {
		startIndex := uint64(0)
		if lastIndex, exists := acc.LastAddressIndex(internal); exists {
			startIndex = lastIndex + 1
		}

		for emptyInARow, probeIndex := uint64(0), startIndex; emptyInARow < s.gapLimit; probeIndex++ {
			probedAddress, err := addressProvider.Address(probeIndex, internal)
			if err != nil {
				// the secret store locked itself mid-sync
				result.Partial = true

				return
			}

			outputs, err := s.fetchOutputs(probedAddress)
			if err != nil {
				s.log.Warnf("failed to probe address %s of account %d: %s", probedAddress.Base58(), acc.Index(), err)
				result.Partial = true

				return
			}
			if len(outputs) == 0 {
				emptyInARow++

				continue
			}

			emptyInARow = 0
			diff.DiscoveredAddresses = append(diff.DiscoveredAddresses, account.Address{Address: probedAddress})
			result.DiscoveredAddresses = append(result.DiscoveredAddresses, probedAddress)
			for _, output := range outputs {
				fetchedOutputs[output.ID] = output
			}
		}
	}
}

// resolvePendingTransactions checks the inclusion state of every pending transaction. Confirmed transactions enter
// the diff as confirmed. A transaction the node denies knowing whose inputs also vanished from the unspent set lost
// a double spend, so its consumed inputs enter the diff as spent.
func (s *Syncer) resolvePendingTransactions(acc *account.Account, diff *account.SyncDiff, fetchedAddresses map[[address.Length]byte]bool, fetchedOutputs map[ledger.OutputID]*ledger.Output) {
	for _, pendingTransaction := range acc.PendingTransactions() {
		transactionID := pendingTransaction.ID()

		inclusionState, err := s.retryInclusionState(transactionID)
		if err != nil {
			s.log.Warnf("failed to check inclusion state of transaction %s: %s", transactionID.Base58(), err)

			continue
		}

		switch inclusionState {
		case connector.InclusionStateConfirmed:
			diff.ConfirmedTransactions = append(diff.ConfirmedTransactions, transactionID)

		case connector.InclusionStateRejected, connector.InclusionStateUnknown:
			for _, inputID := range pendingTransaction.Transaction.Essence().Inputs() {
				input, exists := acc.Output(inputID)
				if !exists || !fetchedAddresses[input.Object.Address.AddressBytes] {
					continue
				}
				if _, stillUnspent := fetchedOutputs[inputID]; !stillUnspent {
					diff.SpentOutputs[inputID] = ledger.EmptyTransactionID
				}
			}
		}
	}
}

// collectDiff derives the new and spent outputs from the fetch set. Outputs on addresses that failed to sync are
// left untouched.
func (s *Syncer) collectDiff(acc *account.Account, diff *account.SyncDiff, fetchedAddresses map[[address.Length]byte]bool, fetchedOutputs map[ledger.OutputID]*ledger.Output) {
	trackedOutputs := acc.Outputs()
	trackedOutputIDs := make(map[ledger.OutputID]bool, len(trackedOutputs))
	for _, trackedOutput := range trackedOutputs {
		trackedOutputIDs[trackedOutput.Object.ID] = true
	}

	for _, fetchedOutput := range fetchedOutputs {
		if !trackedOutputIDs[fetchedOutput.ID] {
			diff.NewOutputs = append(diff.NewOutputs, fetchedOutput)
		}
	}

	for _, trackedOutput := range trackedOutputs {
		if trackedOutput.State == account.OutputStateSpent {
			continue
		}
		if !fetchedAddresses[trackedOutput.Object.Address.AddressBytes] {
			continue
		}
		if _, stillUnspent := fetchedOutputs[trackedOutput.Object.ID]; stillUnspent {
			continue
		}
		if trackedOutput.State == account.OutputStateLocked {
			// only resolvePendingTransactions may report locked outputs as spent, after consulting the node
			// about the pending transaction that holds the lock
			continue
		}
		diff.SpentOutputs[trackedOutput.Object.ID] = ledger.EmptyTransactionID
	}
}

// fetchOutputs queries the unspent outputs of a single address, retrying transient failures.
func (s *Syncer) fetchOutputs(addr address.Address) (outputs []*ledger.Output, err error) {
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.retryBackoff)
		}

		var unspentOutputs map[address.Address][]*ledger.Output
		if unspentOutputs, err = s.connector.UnspentOutputs(addr); err == nil {
			return unspentOutputs[addr], nil
		}
		if !errors.Is(err, connector.ErrTransient) {
			return nil, err
		}
	}

	return nil, err
}

// retryInclusionState queries the inclusion state of a transaction, retrying transient failures.
func (s *Syncer) retryInclusionState(transactionID ledger.TransactionID) (inclusionState connector.InclusionState, err error) {
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.retryBackoff)
		}

		if inclusionState, err = s.connector.TransactionInclusionState(transactionID); err == nil {
			return inclusionState, nil
		}
		if !errors.Is(err, connector.ErrTransient) {
			return connector.InclusionStateUnknown, err
		}
	}

	return connector.InclusionStateUnknown, err
}
