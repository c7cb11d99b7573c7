package consolidateoptions

import (
	"github.com/iotaledger/wallet.go/packages/address"
)

// ConsolidateFundsOption is the type for the optional parameters for the ConsolidateFunds call.
type ConsolidateFundsOption func(*ConsolidateFundsOptions) error

// Destination is an option for the ConsolidateFunds call that defines the address the consolidated funds are sent
// to. It defaults to a fresh internal address of the account.
func Destination(addr address.Address) ConsolidateFundsOption {
	return func(options *ConsolidateFundsOptions) error {
		options.DestinationAddress = addr
		options.DestinationAddressSet = true

		return nil
	}
}

// ConsolidateFundsOptions is a struct that is used to aggregate the optional parameters provided in the
// ConsolidateFunds call.
type ConsolidateFundsOptions struct {
	DestinationAddress    address.Address
	DestinationAddressSet bool
}

// Build is a utility function that constructs the ConsolidateFundsOptions.
func Build(options ...ConsolidateFundsOption) (result *ConsolidateFundsOptions, err error) {
	// create options to collect the arguments provided
	result = &ConsolidateFundsOptions{}

	// apply arguments to our options
	for _, option := range options {
		if err = option(result); err != nil {
			return
		}
	}

	return
}
