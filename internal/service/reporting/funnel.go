package reporting

import "github.com/shopspring/decimal"

// FunnelCounts are exact stage counts for the quotation pipeline.
type FunnelCounts struct {
	Created   int64 `json:"created"`
	Sent      int64 `json:"sent"`
	Accepted  int64 `json:"accepted"`
	Converted int64 `json:"converted"`
}

// FunnelRates are the stage-to-stage conversion percentages, rounded
// to whole numbers for display. The underlying counts stay exact.
type FunnelRates struct {
	FunnelCounts
	SendRate       int64 `json:"send_rate"`
	AcceptanceRate int64 `json:"acceptance_rate"`
	ConversionRate int64 `json:"conversion_rate"`
}

// AggregateFunnel computes the pipeline rates. A zero denominator
// yields a zero rate rather than an error.
func AggregateFunnel(counts FunnelCounts) FunnelRates {
	return FunnelRates{
		FunnelCounts:   counts,
		SendRate:       ratePercent(counts.Sent, counts.Created),
		AcceptanceRate: ratePercent(counts.Accepted, counts.Sent),
		ConversionRate: ratePercent(counts.Converted, counts.Accepted),
	}
}

func ratePercent(num, den int64) int64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(num).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(den)).
		Round(0).
		IntPart()
}
