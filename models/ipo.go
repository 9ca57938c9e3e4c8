package models

import (
	"encoding/json"
	"time"
)

// CanonicalIPO is the normalized display model handed to rendering code.
// A nil pointer means the value is unknown; rendering decides on the
// placeholder text ("N/A", "TBA").
type CanonicalIPO struct {
	ID string `json:"id,omitempty"`
	// Key identifies the record within a catalog: the upstream id, or a
	// name-based UUID when the source sent none.
	Key string `json:"key,omitempty"`

	// Identification
	CompanyName    *string `json:"companyName,omitempty"`
	Symbol         *string `json:"symbol,omitempty"`
	Exchange       *string `json:"exchange,omitempty"`
	Registrar      *string `json:"registrar,omitempty"`
	ReportedStatus *string `json:"reportedStatus,omitempty"`

	// Timeline
	OpenDate      *time.Time `json:"openDate,omitempty"`
	CloseDate     *time.Time `json:"closeDate,omitempty"`
	AllotmentDate *time.Time `json:"allotmentDate,omitempty"`
	ListingDate   *time.Time `json:"listingDate,omitempty"`

	// Pricing
	PriceRange        *string  `json:"priceRange,omitempty"`
	PriceBandLow      *float64 `json:"priceBandLow,omitempty"`
	PriceBandHigh     *float64 `json:"priceBandHigh,omitempty"`
	IssuePrice        *string  `json:"issuePrice,omitempty"`
	IssuePriceNumeric *float64 `json:"issuePriceNumeric,omitempty"`
	LotSize           *int     `json:"lotSize,omitempty"`
	IssueSize         *string  `json:"issueSize,omitempty"`
	IssueSizeNumeric  *float64 `json:"issueSizeNumeric,omitempty"`

	// Listing
	ListingPrice       *float64 `json:"listingPrice,omitempty"`
	ListingGain        *string  `json:"listingGain,omitempty"`
	ListingGainNumeric *float64 `json:"listingGainNumeric,omitempty"`
	GMP                *string  `json:"gmp,omitempty"`
	GMPNumeric         *float64 `json:"gmpNumeric,omitempty"`

	// Subscription multiples per investor category
	SubscriptionOverall  *float64 `json:"subscriptionOverall,omitempty"`
	SubscriptionQIB      *float64 `json:"subscriptionQIB,omitempty"`
	SubscriptionNII      *float64 `json:"subscriptionNII,omitempty"`
	SubscriptionRetail   *float64 `json:"subscriptionRetail,omitempty"`
	SubscriptionEmployee *float64 `json:"subscriptionEmployee,omitempty"`

	// Derived
	ListingGainPercentage *float64 `json:"listingGainPercentage,omitempty"`
	SubscriptionProgress  *float64 `json:"subscriptionProgress,omitempty"`
	MinimumInvestment     *float64 `json:"minimumInvestment,omitempty"`

	Classification Classification `json:"classification"`
}

// ToRaw converts the canonical record back into a raw record so it can be
// fed through the normalizer again.
func (c CanonicalIPO) ToRaw() (RawIPORecord, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return DecodeRawRecord(data)
}

// FieldPresence reports, per canonical field, whether the record carries a value.
func (c CanonicalIPO) FieldPresence() map[CanonicalField]bool {
	return map[CanonicalField]bool{
		FieldID:                   c.ID != "",
		FieldCompanyName:          c.CompanyName != nil,
		FieldSymbol:               c.Symbol != nil,
		FieldExchange:             c.Exchange != nil,
		FieldRegistrar:            c.Registrar != nil,
		FieldReportedStatus:       c.ReportedStatus != nil,
		FieldOpenDate:             c.OpenDate != nil,
		FieldCloseDate:            c.CloseDate != nil,
		FieldAllotmentDate:        c.AllotmentDate != nil,
		FieldListingDate:          c.ListingDate != nil,
		FieldPriceRange:           c.PriceRange != nil,
		FieldIssuePrice:           c.IssuePrice != nil,
		FieldLotSize:              c.LotSize != nil,
		FieldIssueSize:            c.IssueSize != nil,
		FieldListingPrice:         c.ListingPrice != nil,
		FieldListingGain:          c.ListingGain != nil,
		FieldGMP:                  c.GMP != nil,
		FieldSubscriptionOverall:  c.SubscriptionOverall != nil,
		FieldSubscriptionQIB:      c.SubscriptionQIB != nil,
		FieldSubscriptionNII:      c.SubscriptionNII != nil,
		FieldSubscriptionRetail:   c.SubscriptionRetail != nil,
		FieldSubscriptionEmployee: c.SubscriptionEmployee != nil,
	}
}

// DisplayName returns the company name or an empty string.
func (c CanonicalIPO) DisplayName() string {
	if c.CompanyName == nil {
		return ""
	}
	return *c.CompanyName
}
