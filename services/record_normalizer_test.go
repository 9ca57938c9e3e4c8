package services

import (
	"fmt"
	"testing"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(nil, shared.FixedClock{At: classifierNow})
}

func TestNormalizeEndToEnd(t *testing.T) {
	normalizer := newTestNormalizer()

	upcoming, err := normalizer.Normalize(models.RawIPORecord{
		"issue_price":  "94-99",
		"opening_date": day(1).Format("2006-01-02"),
		"closing_date": day(3).Format("2006-01-02"),
	})
	require.NoError(t, err)
	require.NotNil(t, upcoming.IssuePriceNumeric)
	assert.Equal(t, 99.0, *upcoming.IssuePriceNumeric)
	assert.Equal(t, models.Classification{Status: models.StatusUpcoming, Window: models.WindowThisWeek}, upcoming.Classification)
	assert.Nil(t, upcoming.MinimumInvestment, "no lot size means no minimum investment")

	open, err := normalizer.Normalize(models.RawIPORecord{
		"issue_price":  "94-99",
		"opening_date": day(-1).Format("2006-01-02"),
		"closing_date": day(1).Format("2006-01-02"),
		"lot_size":     "150 Shares",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, open.Classification.Status)
	require.NotNil(t, open.LotSize)
	assert.Equal(t, 150, *open.LotSize)
	require.NotNil(t, open.MinimumInvestment)
	assert.Equal(t, 14850.0, *open.MinimumInvestment)
}

func TestNormalizeMinimalRecord(t *testing.T) {
	normalizer := newTestNormalizer()

	ipo, err := normalizer.Normalize(models.RawIPORecord{
		"company_name": "Acme Fintech Ltd",
		"open_date":    "2025-06-12",
	})
	require.NoError(t, err)

	require.NotNil(t, ipo.CompanyName)
	assert.Equal(t, "Acme Fintech Ltd", *ipo.CompanyName)
	require.NotNil(t, ipo.OpenDate)
	assert.Equal(t, "2025-06-12", ipo.OpenDate.Format("2006-01-02"))
	assert.Empty(t, ipo.ID, "no upstream id means no id")
	assert.Empty(t, ipo.Key)

	presence := ipo.FieldPresence()
	for field, present := range presence {
		switch field {
		case models.FieldCompanyName, models.FieldOpenDate:
			assert.True(t, present, field)
		default:
			assert.False(t, present, field)
		}
	}
	assert.Nil(t, ipo.ListingGainPercentage)
	assert.Nil(t, ipo.SubscriptionProgress)
	assert.Nil(t, ipo.MinimumInvestment)
}

func TestNormalizeDetailedRecord(t *testing.T) {
	normalizer := newTestNormalizer()

	ipo, err := normalizer.Normalize(models.RawIPORecord{
		"ipo_id": 4512.0,
		"name":   "  Orbit   Cables  Limited ",
		"basicDetails": map[string]interface{}{
			"priceBand": "₹450-₹475",
			"listingAt": "NSE, BSE",
		},
		"listingDetails": map[string]interface{}{
			"final_issue_price": "₹475",
			"listing_price":     "₹522.50",
		},
		"listingDayTrading": map[string]interface{}{"listing_gain": "+10.00%"},
		"lotDetails":        []interface{}{map[string]interface{}{"shares": 31.0}},
		"subscription_details": map[string]interface{}{
			"total":  "25.4x",
			"qib":    "60.12",
			"nii":    "30",
			"retail": "8.5 times",
		},
		"schedule": map[string]interface{}{
			"open_date":    "02-06-2025",
			"close_date":   "04-06-2025",
			"listing_date": "09-06-2025",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "4512", ipo.ID)
	assert.Equal(t, "Orbit Cables Limited", *ipo.CompanyName)
	assert.Equal(t, "NSE, BSE", *ipo.Exchange)
	assert.Equal(t, 450.0, *ipo.PriceBandLow)
	assert.Equal(t, 475.0, *ipo.PriceBandHigh)
	assert.Equal(t, 475.0, *ipo.IssuePriceNumeric)
	assert.Equal(t, 522.5, *ipo.ListingPrice)
	assert.InDelta(t, 10.0, *ipo.ListingGainPercentage, 1e-9)
	assert.Equal(t, 10.0, *ipo.ListingGainNumeric)
	assert.Equal(t, 25.4, *ipo.SubscriptionOverall)
	assert.Equal(t, 60.12, *ipo.SubscriptionQIB)
	assert.Equal(t, 8.5, *ipo.SubscriptionRetail)
	assert.Nil(t, ipo.SubscriptionEmployee)
	assert.Equal(t, 1.0, *ipo.SubscriptionProgress)
	assert.Equal(t, 31.0*475, *ipo.MinimumInvestment)
	assert.Equal(t, models.StatusListed, ipo.Classification.Status)
}

func TestNormalizeUsesIssuePriceOnlyForListingGain(t *testing.T) {
	normalizer := newTestNormalizer()

	ipo, err := normalizer.Normalize(models.RawIPORecord{
		"price_range":   "₹90-₹100",
		"issue_price":   "0",
		"listing_price": 120.0,
	})
	require.NoError(t, err)
	assert.Nil(t, ipo.ListingGainPercentage)

	ipo, err = normalizer.Normalize(models.RawIPORecord{"price_range": "₹90-₹100", "listing_price": 120.0})
	require.NoError(t, err)
	assert.Nil(t, ipo.ListingGainPercentage)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	normalizer := newTestNormalizer()
	raw := models.RawIPORecord{
		"company_name": "Acme",
		"basicDetails": map[string]interface{}{"issuePrice": "₹10", "lotSize": 1000.0},
		"lotDetails":   []interface{}{map[string]interface{}{"shares": 1000.0}},
	}
	before := raw.Clone()

	_, err := normalizer.Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(before, raw))
}

func TestNormalizeAllKeepsOrder(t *testing.T) {
	normalizer := newTestNormalizer()
	raws := []models.RawIPORecord{
		{"company_name": "Zeta"},
		{"company_name": "Alpha"},
		{"company_name": "Mu"},
	}

	ipos, err := normalizer.NormalizeAll(raws)
	require.NoError(t, err)
	require.Len(t, ipos, 3)
	assert.Equal(t, "Zeta", ipos[0].DisplayName())
	assert.Equal(t, "Alpha", ipos[1].DisplayName())
	assert.Equal(t, "Mu", ipos[2].DisplayName())
	assert.Equal(t, int64(3), normalizer.Metrics().GetSnapshot().TotalRequests)
}

// TestNormalizeIdempotence feeds canonical output back through the
// normalizer for every supported record shape.
func TestNormalizeIdempotence(t *testing.T) {
	normalizer := newTestNormalizer()
	properties := gopter.NewProperties(nil)

	properties.Property("normalize(toRaw(normalize(x))) == normalize(x)", prop.ForAll(
		func(shape int, name, price string, openOffset, lot int, multiple float64) bool {
			raw := buildShapedRecord(shape, name, price, openOffset, lot, multiple)

			first, err := normalizer.NormalizeAt(raw, classifierNow)
			if err != nil {
				return false
			}
			refed, err := first.ToRaw()
			if err != nil {
				return false
			}
			second, err := normalizer.NormalizeAt(refed, classifierNow)
			if err != nil {
				return false
			}

			if diff := cmp.Diff(first, second); diff != "" {
				t.Logf("shape %d not idempotent (-first +second):\n%s", shape, diff)
				return false
			}
			return true
		},
		gen.IntRange(0, 2),
		gen.OneConstOf("Acme Fintech Ltd", "Orbit Cables Limited", "  Spaced   Name  ", "N/A", "Zen Tech"),
		gen.OneConstOf("94-99", "₹450-₹475", "₹100", "N/A", "Rs. 1,250", ""),
		gen.IntRange(-20, 20),
		gen.IntRange(0, 2000),
		gen.Float64Range(0, 300),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func buildShapedRecord(shape int, name, price string, openOffset, lot int, multiple float64) models.RawIPORecord {
	open := day(openOffset)
	closing := day(openOffset + 2)
	listing := day(openOffset + 5)

	switch shape {
	case 0:
		return models.RawIPORecord{
			"company_name": name,
			"issue_price":  price,
			"open_date":    open.Format("2006-01-02"),
			"close_date":   closing.Format("2006-01-02"),
			"listing_date": listing.Format("2006-01-02"),
			"lot_size":     float64(lot),
			"status":       "Open",
			"gmp":          fmt.Sprintf("+%d", lot%40),
			"subscription_details": map[string]interface{}{
				"total": multiple,
				"qib":   fmt.Sprintf("%.2fx", multiple*2),
			},
		}
	case 1:
		return models.RawIPORecord{
			"basicDetails": map[string]interface{}{
				"companyName": name,
				"priceRange":  price,
				"lotSize":     fmt.Sprintf("%d Shares", lot),
				"registrar":   "Link Intime India Private Ltd",
			},
			"tentativeDetails": map[string]interface{}{
				"openDate":    open.Format("Jan 2, 2006"),
				"closeDate":   closing.Format("Mon, Jan 2, 2006"),
				"listingDate": listing.Format("2 Jan 2006"),
			},
		}
	default:
		return models.RawIPORecord{
			"name": name,
			"listingDetails": map[string]interface{}{
				"final_issue_price": price,
				"listing_price":     fmt.Sprintf("₹%d", lot/3+10),
			},
			"listingDayTrading": map[string]interface{}{"listing_gain": fmt.Sprintf("%+.2f%%", multiple-150)},
			"lotDetails":        []interface{}{map[string]interface{}{"shares": float64(lot)}},
			"schedule": map[string]interface{}{
				"open_date":  open.Format("02-01-2006"),
				"close_date": closing.Format("02-01-2006"),
			},
			"subscription": map[string]interface{}{"total": fmt.Sprintf("%.1f times", multiple)},
		}
	}
}
