package billing

import "bizbooks-backend/internal/domain/values"

// TaxBreakdown splits a tax amount into its GST components. For
// intrastate supplies the tax is halved into CGST and SGST; interstate
// supplies carry the whole amount as IGST. Exactly one of the two
// shapes holds and the components always sum back to the tax amount.
type TaxBreakdown struct {
	CGST values.Money `json:"cgst"`
	SGST values.Money `json:"sgst"`
	IGST values.Money `json:"igst"`
}

// SplitTax divides a line's tax amount per the supply type.
// Odd paise from the intrastate halving goes to CGST; the tie-break is
// a convention observed in filings, not a statutory rule.
func SplitTax(tax values.Money, interstate bool) TaxBreakdown {
	if interstate {
		return TaxBreakdown{
			CGST: values.Zero(),
			SGST: values.Zero(),
			IGST: tax,
		}
	}

	cgst, sgst := tax.SplitHalf()
	return TaxBreakdown{
		CGST: cgst,
		SGST: sgst,
		IGST: values.Zero(),
	}
}

// Add accumulates another breakdown into this one.
func (t TaxBreakdown) Add(other TaxBreakdown) TaxBreakdown {
	return TaxBreakdown{
		CGST: t.CGST.Add(other.CGST),
		SGST: t.SGST.Add(other.SGST),
		IGST: t.IGST.Add(other.IGST),
	}
}

// Total returns cgst+sgst+igst.
func (t TaxBreakdown) Total() values.Money {
	return t.CGST.Add(t.SGST).Add(t.IGST)
}
