package ledger

const (
	// MaxInputCount defines the maximum amount of inputs a single transaction can consume.
	MaxInputCount = 127

	// MaxOutputCount defines the maximum amount of outputs a single transaction can create.
	MaxOutputCount = 127

	// DustMinimum defines the minimum amount of base tokens a standalone output must hold. Outputs below this
	// threshold are rejected by the network unless they are explicitly allowed micro amounts.
	DustMinimum uint64 = 100
)
