package services

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameNormalization(t *testing.T) {
	utility := NewUtilityService()

	assert.Equal(t, "acme fintech", utility.NormalizeIPOName("  Acme   Fintech Ltd."))
	assert.Equal(t, "zen tech", utility.NormalizeIPOName("Zen Tech Limited"))
	assert.Equal(t, "zen-tech", utility.GenerateSlug("Zen Tech Limited"))
	assert.Equal(t, "orbit-cables", utility.GenerateSlug("Orbit & Cables Pvt."))
	assert.Empty(t, utility.GenerateSlug(""))
}

func TestIsPlaceholder(t *testing.T) {
	for _, value := range []string{"", " N/A ", "TBA", "To Be Announced", "-", "null"} {
		assert.True(t, IsPlaceholder(value), "%q", value)
	}
	for _, value := range []string{"0", "₹99", "Jun 9, 2025"} {
		assert.False(t, IsPlaceholder(value), "%q", value)
	}
}

func TestParseDateFormatsAndOrdinals(t *testing.T) {
	utility := NewUtilityService()
	june9 := time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC)

	for _, input := range []string{"2025-06-09", "9th Jun 2025", "Mon, Jun 9, 2025", "09-06-2025", "2025-06-09T23:30:00+05:30"} {
		parsed := utility.ParseDate(input)
		require.NotNil(t, parsed, input)
		assert.Equal(t, june9, *parsed, input)
	}

	assert.Nil(t, utility.ParseDate("TBA"))
	assert.Nil(t, utility.ParseDate("sometime in June"))
}

func TestParseReferenceTime(t *testing.T) {
	utility := NewUtilityService()

	instant, err := utility.ParseReferenceTime("2025-06-10T09:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC), instant)

	day, err := utility.ParseReferenceTime(" 2025-06-10 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC), day)

	_, err = utility.ParseReferenceTime("someday")
	var serviceErr *shared.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "INVALID_REFERENCE_TIME", serviceErr.Code)
	assert.Equal(t, shared.ErrorCategoryValidation, serviceErr.Category)
}

func TestParseHTMLTable(t *testing.T) {
	html := `<table>
		<tr><th>Label</th><th>Value</th></tr>
		<tr><td>Open Date:</td><td>  Jun 9,
			2025 </td></tr>
		<tr><td>orphan</td></tr>
		<tr><td>Lot Size</td><td><span></span><div>150 Shares</div></td></tr>
	</table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	rows := NewUtilityService().ParseHTMLTable(doc.Find("table"))
	require.Len(t, rows, 3)
	assert.Equal(t, "Open Date:", rows[1].Label)
	assert.Equal(t, "Jun 9, 2025", rows[1].Value)
	assert.InDelta(t, 0.8, rows[1].Confidence, 1e-9)
	assert.Equal(t, "150 Shares", rows[2].Value)
}

func TestMapTableRowsAssignsEachRowOnce(t *testing.T) {
	rows := []TableRow{
		{Index: 0, Label: "Issue Price Band", Value: "₹94 to ₹99", Confidence: 1},
		{Index: 1, Label: "Issue Price", Value: "₹99", Confidence: 1},
		{Index: 2, Label: "Lot Size", Value: "150 Shares", Confidence: 1},
		{Index: 3, Label: "Registrar", Value: "TBA", Confidence: 1},
		{Index: 4, Label: "Random Footer", Value: "Contact us", Confidence: 1},
	}

	record := NewUtilityService().MapTableRows(rows)
	assert.Equal(t, models.RawIPORecord{
		"price_band":  "₹94 to ₹99",
		"issue_price": "₹99",
		"lot_size":    "150 Shares",
	}, record)
}

func TestScrapedKeysResolveToTheirFields(t *testing.T) {
	resolver := NewFieldResolver(nil)
	for field, key := range scrapedFieldKeys {
		value, found, err := resolver.Resolve(models.RawIPORecord{key: "42"}, field)
		require.NoError(t, err, field)
		assert.True(t, found, "%s should resolve from %s", field, key)
		assert.Equal(t, "42", value)
	}
}
