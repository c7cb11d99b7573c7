package wallet

import (
	"time"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/logger"

	"github.com/iotaledger/wallet.go/packages/connector"
	"github.com/iotaledger/wallet.go/packages/scheduler"
	"github.com/iotaledger/wallet.go/packages/secretmanager"
	"github.com/iotaledger/wallet.go/packages/syncmanager"
)

// Options is a struct that is used to aggregate the optional parameters provided in the New call.
type Options struct {
	store                 kvstore.KVStore
	connector             connector.Connector
	log                   *logger.Logger
	syncInterval          time.Duration
	gapLimit              uint64
	passwordClearInterval time.Duration
}

// Option represents the return type of optional parameters that can be handed into the constructor of the Wallet
// to configure its behavior.
type Option func(*Options)

// WebAPI connects the wallet to a node reachable under the given base url.
func WebAPI(baseURL string) Option {
	return func(options *Options) {
		options.connector = connector.NewWebConnector(baseURL)
	}
}

// GenericConnector is an option that allows us to provide a custom Connector implementation, like the in-memory
// connector used in tests.
func GenericConnector(conn connector.Connector) Option {
	return func(options *Options) {
		options.connector = conn
	}
}

// Store is an option that hands a persistent KVStore to the wallet. Without it the wallet state only lives in
// memory.
func Store(store kvstore.KVStore) Option {
	return func(options *Options) {
		options.store = store
	}
}

// Logger is an option that replaces the wallet's logger.
func Logger(log *logger.Logger) Option {
	return func(options *Options) {
		options.log = log
	}
}

// SyncInterval sets the period between two background sync rounds.
func SyncInterval(syncInterval time.Duration) Option {
	return func(options *Options) {
		options.syncInterval = syncInterval
	}
}

// GapLimit sets the number of consecutive unfunded addresses after which the sync stops probing the address range.
func GapLimit(gapLimit uint64) Option {
	return func(options *Options) {
		options.gapLimit = gapLimit
	}
}

// PasswordClearInterval sets the period of inactivity after which the cached password is wiped. A value of zero
// disables the automatic clearing.
func PasswordClearInterval(passwordClearInterval time.Duration) Option {
	return func(options *Options) {
		options.passwordClearInterval = passwordClearInterval
	}
}

// buildOptions applies the given options to the defaults.
func buildOptions(options ...Option) (result *Options) {
	result = &Options{
		syncInterval:          scheduler.DefaultInterval,
		gapLimit:              syncmanager.DefaultGapLimit,
		passwordClearInterval: secretmanager.DefaultClearInterval,
	}
	for _, option := range options {
		option(result)
	}

	if result.store == nil {
		result.store = mapdb.NewMapDB()
	}
	if result.connector == nil {
		result.connector = connector.NewInMemoryConnector()
	}
	if result.log == nil {
		result.log = logger.NewExampleLogger("wallet")
	}

	return
}
