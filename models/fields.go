package models

// CanonicalField names a field of the normalized display record. The name
// doubles as the JSON key of that field in CanonicalIPO.
type CanonicalField string

const (
	FieldID                   CanonicalField = "id"
	FieldCompanyName          CanonicalField = "companyName"
	FieldSymbol               CanonicalField = "symbol"
	FieldExchange             CanonicalField = "exchange"
	FieldRegistrar            CanonicalField = "registrar"
	FieldReportedStatus       CanonicalField = "reportedStatus"
	FieldOpenDate             CanonicalField = "openDate"
	FieldCloseDate            CanonicalField = "closeDate"
	FieldAllotmentDate        CanonicalField = "allotmentDate"
	FieldListingDate          CanonicalField = "listingDate"
	FieldPriceRange           CanonicalField = "priceRange"
	FieldIssuePrice           CanonicalField = "issuePrice"
	FieldLotSize              CanonicalField = "lotSize"
	FieldIssueSize            CanonicalField = "issueSize"
	FieldListingPrice         CanonicalField = "listingPrice"
	FieldListingGain          CanonicalField = "listingGain"
	FieldGMP                  CanonicalField = "gmp"
	FieldSubscriptionOverall  CanonicalField = "subscriptionOverall"
	FieldSubscriptionQIB      CanonicalField = "subscriptionQIB"
	FieldSubscriptionNII      CanonicalField = "subscriptionNII"
	FieldSubscriptionRetail   CanonicalField = "subscriptionRetail"
	FieldSubscriptionEmployee CanonicalField = "subscriptionEmployee"
)

// CanonicalFields lists every resolvable field in display order.
var CanonicalFields = []CanonicalField{
	FieldID,
	FieldCompanyName,
	FieldSymbol,
	FieldExchange,
	FieldRegistrar,
	FieldReportedStatus,
	FieldOpenDate,
	FieldCloseDate,
	FieldAllotmentDate,
	FieldListingDate,
	FieldPriceRange,
	FieldIssuePrice,
	FieldLotSize,
	FieldIssueSize,
	FieldListingPrice,
	FieldListingGain,
	FieldGMP,
	FieldSubscriptionOverall,
	FieldSubscriptionQIB,
	FieldSubscriptionNII,
	FieldSubscriptionRetail,
	FieldSubscriptionEmployee,
}

// CriticalFields are the fields a card cannot be rendered without.
var CriticalFields = []CanonicalField{
	FieldCompanyName,
	FieldOpenDate,
	FieldIssuePrice,
}
