package services

import "math"

// SubscriptionSaturationMultiple is the oversubscription at which the
// progress bar reads full.
const SubscriptionSaturationMultiple = 10.0

// ListingGainPercentage is (listingPrice/issuePrice - 1) * 100, or nil when
// either price is unknown or the issue price is zero.
func ListingGainPercentage(listingPrice, issuePrice *float64) *float64 {
	if listingPrice == nil || issuePrice == nil || *issuePrice == 0 {
		return nil
	}
	return finitePtr((*listingPrice / *issuePrice - 1) * 100)
}

// SubscriptionProgress maps a subscription multiple onto [0, 1].
func SubscriptionProgress(multiple *float64) *float64 {
	if multiple == nil {
		return nil
	}
	progress := math.Min(1, math.Max(0, *multiple/SubscriptionSaturationMultiple))
	return finitePtr(progress)
}

// MinimumInvestment is one lot at the given price.
func MinimumInvestment(lotSize *int, price *float64) *float64 {
	if lotSize == nil || price == nil {
		return nil
	}
	return finitePtr(float64(*lotSize) * *price)
}

// RepresentativePrice is the issue price, or the upper band when only a
// range is known.
func RepresentativePrice(issuePrice, bandHigh *float64) *float64 {
	if issuePrice != nil {
		return issuePrice
	}
	return bandHigh
}

func finitePtr(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
