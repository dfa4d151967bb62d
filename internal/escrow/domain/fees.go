package domain

// FeeBreakdown splits a hold amount into the platform's cut and the
// contractor's payout. ProcessorFeeEstimate is informational only; the
// platform absorbs the card fee out of its share.
type FeeBreakdown struct {
	Amount               int64 `json:"amount"`
	PlatformFee          int64 `json:"platformFee"`
	ContractorPayout     int64 `json:"contractorPayout"`
	ProcessorFeeEstimate int64 `json:"processorFeeEstimate"`
}

// ComputeFees derives the fee breakdown for an amount in cents.
// platform_fee rounds half-up at feeBps basis points; the processor
// estimate models 2.9% + 30 cents.
func ComputeFees(amount, feeBps int64) FeeBreakdown {
	platformFee := (amount*feeBps + 5000) / 10000
	processorFee := (amount*29+500)/1000 + 30
	return FeeBreakdown{
		Amount:               amount,
		PlatformFee:          platformFee,
		ContractorPayout:     amount - platformFee,
		ProcessorFeeEstimate: processorFee,
	}
}
