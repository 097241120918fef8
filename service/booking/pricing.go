package booking

// PricingAdjuster is the hook external policy (membership tiers, discounts)
// plugs into after the engine computes the base total. The engine treats the
// returned value as opaque and final.
type PricingAdjuster interface {
	AdjustTotal(customerID, companyID uint, total float64) float64
}

// passthroughPricing is the default: no adjustment.
type passthroughPricing struct{}

func (passthroughPricing) AdjustTotal(customerID, companyID uint, total float64) float64 {
	return total
}
