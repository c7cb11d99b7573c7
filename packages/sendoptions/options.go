package sendoptions

import (
	"github.com/cockroachdb/errors"

	"github.com/iotaledger/wallet.go/packages/address"
	"github.com/iotaledger/wallet.go/packages/ledger"
)

// SendFundsOption is the type for the optional parameters for the SendFunds call.
type SendFundsOption func(*SendFundsOptions) error

// Destination is an option for the SendFunds call that defines a destination for funds that are supposed to be moved.
func Destination(addr address.Address, amount uint64, optionalTokenID ...ledger.TokenID) SendFundsOption {
	// determine which token to use
	tokenID := ledger.BaseToken
	if len(optionalTokenID) >= 1 {
		tokenID = optionalTokenID[0]
	}

	return func(options *SendFundsOptions) error {
		if amount == 0 {
			return errors.Wrap(ErrZeroAmount, "the amount provided in the destinations needs to be larger than 0")
		}

		if options.Destinations == nil {
			options.Destinations = make(map[address.Address]ledger.Balances)
		}
		if _, addressExists := options.Destinations[addr]; !addressExists {
			options.Destinations[addr] = make(ledger.Balances)
		}
		options.Destinations[addr][tokenID] += amount

		return nil
	}
}

// Remainder is an option for the SendFunds call that allows us to specify the remainder address that is supposed to be
// used in the corresponding transaction.
func Remainder(addr address.Address) SendFundsOption {
	return func(options *SendFundsOptions) error {
		options.RemainderAddress = addr

		return nil
	}
}

// NFTDestination is an option for the SendFunds call that moves the non-fungible token with the given ID to the
// given address. The balances of the output carrying the token travel with it.
func NFTDestination(addr address.Address, nftID ledger.NFTID) SendFundsOption {
	return func(options *SendFundsOptions) error {
		if nftID.IsEmpty() {
			return errors.New("an empty NFTID cannot be transferred")
		}

		if options.NFTDestinations == nil {
			options.NFTDestinations = make(map[ledger.NFTID]address.Address)
		}
		options.NFTDestinations[nftID] = addr

		return nil
	}
}

// AllowMicroAmounts is an option for the SendFunds call that allows outputs below the dust minimum to be created.
func AllowMicroAmounts() SendFundsOption {
	return func(options *SendFundsOptions) error {
		options.AllowMicroAmounts = true

		return nil
	}
}

// ErrZeroAmount is returned when a destination with an amount of zero is provided.
var ErrZeroAmount = errors.New("zero amount")

// SendFundsOptions is a struct that is used to aggregate the optional parameters provided in the SendFunds call.
type SendFundsOptions struct {
	Destinations      map[address.Address]ledger.Balances
	NFTDestinations   map[ledger.NFTID]address.Address
	RemainderAddress  address.Address
	AllowMicroAmounts bool
}

// RequiredFunds derives how many funds are required to execute the transfer.
func (s *SendFundsOptions) RequiredFunds() ledger.Balances {
	requiredFunds := make(ledger.Balances)
	for _, balances := range s.Destinations {
		requiredFunds.Add(balances)
	}

	return requiredFunds
}

// Build is a utility function that constructs the SendFundsOptions.
func Build(options ...SendFundsOption) (result *SendFundsOptions, err error) {
	// create options to collect the arguments provided
	result = &SendFundsOptions{}

	// apply arguments to our options
	for _, option := range options {
		if err = option(result); err != nil {
			return
		}
	}

	// sanitize parameters
	if len(result.Destinations) == 0 && len(result.NFTDestinations) == 0 {
		err = errors.New("you need to provide at least one Destination for a valid transfer to be issued")

		return
	}

	return
}
