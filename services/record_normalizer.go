package services

import (
	"math"
	"strconv"
	"time"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
)

// Normalizer turns raw records of any known shape into CanonicalIPO values.
type Normalizer struct {
	resolver   *FieldResolver
	classifier *StatusClassifier
	utility    *UtilityService
	clock      shared.Clock
	metrics    *shared.ServiceMetrics
}

// NewNormalizer creates a normalizer. A nil resolver uses the default
// aliases and a nil clock uses the system clock.
func NewNormalizer(resolver *FieldResolver, clock shared.Clock) *Normalizer {
	if resolver == nil {
		resolver = NewFieldResolver(nil)
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	utility := NewUtilityService()
	return &Normalizer{
		resolver:   resolver,
		classifier: NewStatusClassifier(resolver, utility),
		utility:    utility,
		clock:      clock,
		metrics:    shared.NewServiceMetrics("Record_Normalizer"),
	}
}

// Classifier returns the classifier sharing this normalizer's aliases.
func (n *Normalizer) Classifier() *StatusClassifier {
	return n.classifier
}

// Clock returns the clock Normalize reads "now" from.
func (n *Normalizer) Clock() shared.Clock {
	return n.clock
}

// Metrics returns the normalizer's counters.
func (n *Normalizer) Metrics() *shared.ServiceMetrics {
	return n.metrics
}

// Normalize normalizes raw against the injected clock.
func (n *Normalizer) Normalize(raw models.RawIPORecord) (models.CanonicalIPO, error) {
	return n.NormalizeAt(raw, n.clock.Now())
}

// NormalizeAll normalizes every record against a single "now", keeping order.
func (n *Normalizer) NormalizeAll(raws []models.RawIPORecord) ([]models.CanonicalIPO, error) {
	return n.NormalizeAllAt(raws, n.clock.Now())
}

// NormalizeAllAt is NormalizeAll with an explicit reference time.
func (n *Normalizer) NormalizeAllAt(raws []models.RawIPORecord, now time.Time) ([]models.CanonicalIPO, error) {
	out := make([]models.CanonicalIPO, 0, len(raws))
	for _, raw := range raws {
		canonical, err := n.NormalizeAt(raw, now)
		if err != nil {
			return nil, err
		}
		out = append(out, canonical)
	}
	return out, nil
}

// NormalizeAt resolves every canonical field once, coerces numeric fields,
// classifies and computes derived values. raw is never modified.
func (n *Normalizer) NormalizeAt(raw models.RawIPORecord, now time.Time) (models.CanonicalIPO, error) {
	start := time.Now()
	values := make(map[models.CanonicalField]interface{}, len(models.CanonicalFields))

	for _, field := range models.CanonicalFields {
		value, found, err := n.resolver.Resolve(raw, field)
		if err != nil {
			n.metrics.RecordRequest(false, time.Since(start))
			return models.CanonicalIPO{}, err
		}
		if found {
			values[field] = value
			n.metrics.IncrementCustomCounter("resolved_" + string(field))
		}
	}

	ipo := models.CanonicalIPO{
		CompanyName:    n.text(values[models.FieldCompanyName]),
		Symbol:         n.text(values[models.FieldSymbol]),
		Exchange:       n.text(values[models.FieldExchange]),
		Registrar:      n.text(values[models.FieldRegistrar]),
		ReportedStatus: n.text(values[models.FieldReportedStatus]),

		OpenDate:      n.classifier.ParseDateValue(values[models.FieldOpenDate]),
		CloseDate:     n.classifier.ParseDateValue(values[models.FieldCloseDate]),
		AllotmentDate: n.classifier.ParseDateValue(values[models.FieldAllotmentDate]),
		ListingDate:   n.classifier.ParseDateValue(values[models.FieldListingDate]),

		PriceRange:        n.text(values[models.FieldPriceRange]),
		IssuePrice:        n.text(values[models.FieldIssuePrice]),
		IssuePriceNumeric: number(values[models.FieldIssuePrice]),
		LotSize:           count(values[models.FieldLotSize]),
		IssueSize:         n.text(values[models.FieldIssueSize]),
		IssueSizeNumeric:  number(values[models.FieldIssueSize]),

		ListingPrice:       number(values[models.FieldListingPrice]),
		ListingGain:        n.text(values[models.FieldListingGain]),
		ListingGainNumeric: number(values[models.FieldListingGain]),
		GMP:                n.text(values[models.FieldGMP]),
		GMPNumeric:         number(values[models.FieldGMP]),

		SubscriptionOverall:  number(values[models.FieldSubscriptionOverall]),
		SubscriptionQIB:      number(values[models.FieldSubscriptionQIB]),
		SubscriptionNII:      number(values[models.FieldSubscriptionNII]),
		SubscriptionRetail:   number(values[models.FieldSubscriptionRetail]),
		SubscriptionEmployee: number(values[models.FieldSubscriptionEmployee]),
	}

	if value, ok := values[models.FieldPriceRange]; ok {
		ipo.PriceBandLow, ipo.PriceBandHigh = ParsePriceBand(value)
	}

	if id := n.text(values[models.FieldID]); id != nil {
		ipo.ID = *id
	}
	ipo.Classification = ClassifyDates(ipo.OpenDate, ipo.CloseDate, ipo.ListingDate, now)

	ipo.ListingGainPercentage = ListingGainPercentage(ipo.ListingPrice, ipo.IssuePriceNumeric)
	ipo.SubscriptionProgress = SubscriptionProgress(ipo.SubscriptionOverall)
	ipo.MinimumInvestment = MinimumInvestment(ipo.LotSize, RepresentativePrice(ipo.IssuePriceNumeric, ipo.PriceBandHigh))

	n.metrics.RecordRequest(true, time.Since(start))
	n.metrics.IncrementCustomCounter("status_" + string(ipo.Classification.Status))

	logrus.WithFields(logrus.Fields{
		"component": "Normalizer",
		"id":        ipo.ID,
		"status":    ipo.Classification.Status,
		"resolved":  len(values),
	}).Debug("Normalized IPO record")

	return ipo, nil
}

// text renders scalar values as trimmed display strings.
func (n *Normalizer) text(value interface{}) *string {
	var s string
	switch v := value.(type) {
	case string:
		s = n.utility.NormalizeTextContent(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	default:
		if f, ok := ToNumber(v); ok {
			s = strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	if IsPlaceholder(s) {
		return nil
	}
	return &s
}

func number(value interface{}) *float64 {
	f, ok := ToNumber(value)
	if !ok {
		return nil
	}
	return &f
}

// count coerces share counts; fractional or negative counts are dropped.
func count(value interface{}) *int {
	f, ok := ToNumber(value)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	c := int(f)
	return &c
}
