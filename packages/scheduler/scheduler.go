// Package scheduler runs account syncs in the background on a fixed interval. One scheduler drives all accounts
// of a wallet; a failing account sync is logged and does not keep the remaining accounts from syncing.
package scheduler

import (
	"context"
	"time"

	"github.com/iotaledger/hive.go/logger"
	"github.com/iotaledger/hive.go/timeutil"
	"go.uber.org/atomic"

	"github.com/iotaledger/wallet.go/packages/account"
	"github.com/iotaledger/wallet.go/packages/stronghold"
	"github.com/iotaledger/wallet.go/packages/syncmanager"
)

// DefaultInterval is the default period between two background sync rounds.
const DefaultInterval = 30 * time.Second

// ResultConsumer is called with the outcome of every successful account sync.
type ResultConsumer func(acc *account.Account, result *syncmanager.Result)

// Scheduler periodically syncs a set of accounts. Start and Stop are idempotent and a stopped scheduler finishes
// the account it is currently syncing but skips the rest of the round.
type Scheduler struct {
	syncer         *syncmanager.Syncer
	log            *logger.Logger
	interval       time.Duration
	accountsFunc   func() []*account.Account
	providerFunc   func() stronghold.AddressProvider
	resultConsumer ResultConsumer
	running        atomic.Bool
	shutdown       context.CancelFunc
	ticker         *timeutil.Ticker
}

// New is the constructor for the Scheduler. The accountsFunc is consulted at the start of every round, so accounts
// created after the scheduler started are picked up automatically. The providerFunc supplies the address provider
// for the range probing and may return nil while the secret store is locked.
func New(syncer *syncmanager.Syncer, log *logger.Logger, interval time.Duration, accountsFunc func() []*account.Account, providerFunc func() stronghold.AddressProvider, resultConsumer ResultConsumer) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		syncer:         syncer,
		log:            log,
		interval:       interval,
		accountsFunc:   accountsFunc,
		providerFunc:   providerFunc,
		resultConsumer: resultConsumer,
	}
}

// Start launches the background sync loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	if !s.running.CAS(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.shutdown = cancel
	s.ticker = timeutil.NewTicker(s.syncRound, s.interval, ctx)
	s.log.Infof("background sync started (interval %s)", s.interval)
}

// Stop terminates the background sync loop and waits for a running round to wind down. Stopping a stopped
// scheduler is a no-op.
func (s *Scheduler) Stop() {
	if !s.running.CAS(true, false) {
		return
	}

	s.shutdown()
	s.ticker.WaitForGracefulShutdown()
	s.log.Infof("background sync stopped")
}

// IsRunning returns true if the background sync loop is active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// syncRound syncs every account once. Errors are contained per account and the round aborts between accounts when
// the scheduler is stopped.
func (s *Scheduler) syncRound() {
	addressProvider := s.providerFunc()

	for _, acc := range s.accountsFunc() {
		if !s.running.Load() {
			return
		}

		result, err := s.syncer.SyncAccount(acc, addressProvider)
		if err != nil {
			s.log.Warnf("background sync of account %d failed: %s", acc.Index(), err)

			continue
		}
		if s.resultConsumer != nil {
			s.resultConsumer(acc, result)
		}
	}
}
