package services

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
)

var (
	whitespaceRegex    = regexp.MustCompile(`\s+`)
	nonAlnumSpaceRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	slugRegex          = regexp.MustCompile(`[^a-z0-9]+`)
	ordinalSuffixRegex = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)
)

// minLabelMatchScore is the lowest weighted score accepted as a label match.
const minLabelMatchScore = 0.3

// placeholderValues are display strings that stand for "no value yet".
var placeholderValues = map[string]struct{}{
	"tba":                 {},
	"to be announced":     {},
	"to be decided":       {},
	"tbd":                 {},
	"n/a":                 {},
	"na":                  {},
	"not available":       {},
	"not applicable":      {},
	"not disclosed":       {},
	"awaited":             {},
	"will be updated":     {},
	"yet to be announced": {},
	"--":                  {},
	"-":                   {},
	"—":                   {},
	"":                    {},
	"nil":                 {},
	"null":                {},
	"undefined":           {},
}

// supportedDateFormats are tried in order by ParseDate.
var supportedDateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	"Monday, Jan 2, 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan, 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2-Jan-06",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
}

// UtilityService provides text processing, normalization, and table parsing utilities
type UtilityService struct {
	serviceMetrics *shared.ServiceMetrics
}

// NewUtilityService creates a new utility service instance
func NewUtilityService() *UtilityService {
	return &UtilityService{
		serviceMetrics: shared.NewServiceMetrics("Utility_Service"),
	}
}

// NormalizeIPOName normalizes an IPO name for matching
// Removes common suffixes, special characters, converts to lowercase, and trims whitespace
func (s *UtilityService) NormalizeIPOName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))

	suffixes := []string{" ltd.", " ltd", " limited", " pvt.", " pvt", " private", " ipo"}
	for _, suffix := range suffixes {
		normalized = strings.TrimSuffix(normalized, suffix)
	}

	normalized = nonAlnumSpaceRegex.ReplaceAllString(normalized, "")
	normalized = whitespaceRegex.ReplaceAllString(normalized, " ")

	return strings.TrimSpace(normalized)
}

// NormalizeTextContent collapses whitespace and trims the text
func (s *UtilityService) NormalizeTextContent(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// IsPlaceholder reports whether text is empty or a known "no value" marker.
func IsPlaceholder(text string) bool {
	_, ok := placeholderValues[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// ParseDate parses a date in any supported display format and returns the
// calendar day as UTC midnight. Placeholders and unknown formats yield nil.
func (s *UtilityService) ParseDate(dateStr string) *time.Time {
	dateStr = s.NormalizeTextContent(dateStr)
	if IsPlaceholder(dateStr) {
		return nil
	}
	dateStr = ordinalSuffixRegex.ReplaceAllString(dateStr, "$1")

	for _, format := range supportedDateFormats {
		parsed, err := time.Parse(format, dateStr)
		if err == nil {
			day := CalendarDay(parsed)
			return &day
		}
	}

	logrus.WithField("component", "UtilityService").Debugf("Unrecognized date format: %q", dateStr)
	return nil
}

// ParseReferenceTime parses an override for "now". RFC3339 input keeps its
// instant; any other supported date format yields that day's UTC midnight.
func (s *UtilityService) ParseReferenceTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	if day := s.ParseDate(value); day != nil {
		return *day, nil
	}
	return time.Time{}, shared.NewServiceError(shared.ErrorCategoryValidation, "INVALID_REFERENCE_TIME",
		fmt.Sprintf("unrecognized time %q", value), "UtilityService", "ParseReferenceTime", false, nil)
}

// CalendarDay returns UTC midnight of t's calendar day in t's own location.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GenerateSlug creates URL-friendly identifiers
func (s *UtilityService) GenerateSlug(text string) string {
	if text == "" {
		return ""
	}

	slug := strings.ToLower(strings.TrimSpace(text))

	suffixes := []string{" ltd.", " ltd", " limited", " pvt.", " pvt", " private", " ipo", " inc.", " inc", " corp.", " corp", " company", " co."}
	for _, suffix := range suffixes {
		slug = strings.TrimSuffix(slug, suffix)
	}

	slug = slugRegex.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// TableRow represents a parsed table row with label and value
type TableRow struct {
	Index      int     // Row index in the table
	Label      string  // The row label (first column)
	Value      string  // The row value (second column)
	Confidence float64 // Confidence score for the match
}

// ParseHTMLTable parses a table selection into label/value rows.
// Works for colly callbacks (e.DOM) and for goquery documents built from rendered HTML.
func (s *UtilityService) ParseHTMLTable(table *goquery.Selection) []TableRow {
	var rows []TableRow

	table.Find("tr").Each(func(index int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, s.extractCellValue(cell))
		})

		if len(cells) < 2 {
			return
		}

		label := strings.TrimSpace(cells[0])
		value := strings.TrimSpace(cells[1])
		if label == "" && value == "" {
			return
		}

		confidence := s.calculateLabelConfidence(label)
		rows = append(rows, TableRow{
			Index:      index,
			Label:      label,
			Value:      value,
			Confidence: confidence,
		})
		logrus.Debugf("Parsed table row: %s -> %s (confidence: %.2f)", label, value, confidence)
	})

	return rows
}

// labelMatchScore scores a row against a set of target labels, weighted
// by the row's own label confidence.
func (s *UtilityService) labelMatchScore(row TableRow, targetLabels []string) float64 {
	normalizedRowLabel := s.normalizeLabel(row.Label)

	var best float64
	for _, targetLabel := range targetLabels {
		score := s.calculateMatchScore(normalizedRowLabel, s.normalizeLabel(targetLabel)) * row.Confidence
		if score > best {
			best = score
		}
	}
	return best
}

// scrapedFieldKeys maps canonical fields to the snake_case key a scraped
// record stores them under. Each key is a registered alias of its field.
var scrapedFieldKeys = map[models.CanonicalField]string{
	models.FieldCompanyName:          "company_name",
	models.FieldSymbol:               "symbol",
	models.FieldExchange:             "exchange",
	models.FieldRegistrar:            "registrar",
	models.FieldOpenDate:             "open_date",
	models.FieldCloseDate:            "close_date",
	models.FieldAllotmentDate:        "allotment_date",
	models.FieldListingDate:          "listing_date",
	models.FieldPriceRange:           "price_band",
	models.FieldIssuePrice:           "issue_price",
	models.FieldLotSize:              "lot_size",
	models.FieldIssueSize:            "issue_size",
	models.FieldListingPrice:         "listing_price",
	models.FieldListingGain:          "listing_gain",
	models.FieldGMP:                  "gmp",
	models.FieldSubscriptionOverall:  "subscription_overall",
	models.FieldSubscriptionQIB:      "subscription_qib",
	models.FieldSubscriptionNII:      "subscription_nii",
	models.FieldSubscriptionRetail:   "subscription_retail",
	models.FieldSubscriptionEmployee: "subscription_employee",
}

// GetTargetLabelsForField returns possible table label variations for a field
func (s *UtilityService) GetTargetLabelsForField(field models.CanonicalField) []string {
	labelMap := map[models.CanonicalField][]string{
		models.FieldCompanyName: {"company name", "issuer", "company"},
		models.FieldSymbol: {
			"symbol", "nse symbol", "bse symbol", "ticker",
			"scrip code", "stock symbol", "trading symbol",
		},
		models.FieldExchange: {"listing at", "exchange", "listed on", "listing exchange"},
		models.FieldRegistrar: {
			"registrar", "registrar to issue", "registrar name",
			"registrar to the issue", "registrar and share transfer agent",
		},
		models.FieldOpenDate: {
			"ipo open date", "open date", "opening date", "opens on",
			"subscription open", "subscription opens", "opens",
		},
		models.FieldCloseDate: {
			"ipo close date", "close date", "closing date", "closes on",
			"subscription close", "subscription closes", "closes",
		},
		models.FieldAllotmentDate: {
			"allotment date", "basis of allotment", "allotment finalization",
			"result date", "tentative allotment",
		},
		models.FieldListingDate: {
			"listing date", "lists on", "listing on",
			"expected listing", "tentative listing date",
		},
		models.FieldPriceRange:   {"price band", "price range", "issue price band"},
		models.FieldIssuePrice:   {"issue price", "final issue price", "price per share", "offer price"},
		models.FieldLotSize:      {"lot size", "market lot", "minimum lot", "application lot", "minimum shares"},
		models.FieldIssueSize:    {"issue size", "total issue size", "public issue size", "fresh issue size"},
		models.FieldListingPrice: {"listing price", "listing day open", "open price on listing", "listing day price"},
		models.FieldListingGain: {
			"listing gain", "listing gains", "listing performance",
			"listing premium", "first day gain", "debut gain",
		},
		models.FieldGMP:                  {"gmp", "grey market premium", "ipo gmp"},
		models.FieldSubscriptionOverall:  {"overall subscription", "total subscription", "subscription status", "subscribed"},
		models.FieldSubscriptionQIB:      {"qib", "qualified institutional buyers", "qib subscription"},
		models.FieldSubscriptionNII:      {"nii", "non institutional investors", "hni", "nii subscription"},
		models.FieldSubscriptionRetail:   {"retail", "retail individual investors", "rii", "retail subscription"},
		models.FieldSubscriptionEmployee: {"employee", "employees", "employee reservation"},
	}

	if labels, exists := labelMap[field]; exists {
		return labels
	}

	return []string{string(field)}
}

// MapTableRows builds a flat raw record from label/value rows using fuzzy
// label matching. Pairs are assigned best score first so that each row and
// each field is used at most once.
func (s *UtilityService) MapTableRows(rows []TableRow) models.RawIPORecord {
	type candidate struct {
		field    models.CanonicalField
		order    int
		rowIndex int
		score    float64
	}

	var candidates []candidate
	for order, field := range models.CanonicalFields {
		if _, ok := scrapedFieldKeys[field]; !ok {
			continue
		}
		labels := s.GetTargetLabelsForField(field)
		for i, row := range rows {
			if IsPlaceholder(row.Value) {
				continue
			}
			if score := s.labelMatchScore(row, labels); score >= minLabelMatchScore {
				candidates = append(candidates, candidate{field: field, order: order, rowIndex: i, score: score})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].order != candidates[j].order {
			return candidates[i].order < candidates[j].order
		}
		return candidates[i].rowIndex < candidates[j].rowIndex
	})

	record := models.RawIPORecord{}
	claimedRows := make(map[int]bool)
	for _, c := range candidates {
		key := scrapedFieldKeys[c.field]
		if claimedRows[c.rowIndex] {
			continue
		}
		if _, taken := record[key]; taken {
			continue
		}
		claimedRows[c.rowIndex] = true
		record[key] = rows[c.rowIndex].Value
		logrus.Debugf("Mapped table label '%s' to %s (score %.2f)", rows[c.rowIndex].Label, key, c.score)
	}

	return record
}

// extractCellValue extracts text content from a table cell
// Handles various cell formats and nested elements
func (s *UtilityService) extractCellValue(cell *goquery.Selection) string {
	text := strings.TrimSpace(cell.Text())

	if text == "" {
		cell.Find("span, div, p, a").EachWithBreak(func(_ int, nested *goquery.Selection) bool {
			text = strings.TrimSpace(nested.Text())
			return text == ""
		})
	}

	return s.cleanCellText(text)
}

// normalizeLabel normalizes a label for matching
func (s *UtilityService) normalizeLabel(label string) string {
	normalized := strings.ToLower(label)

	replacer := strings.NewReplacer(":", "", ".", "", ",", "", "(", "", ")", "", "-", " ", "_", " ")
	normalized = replacer.Replace(normalized)

	return strings.Join(strings.Fields(normalized), " ")
}

// calculateMatchScore calculates similarity score between two normalized labels
func (s *UtilityService) calculateMatchScore(label1, label2 string) float64 {
	if label1 == label2 {
		return 1.0
	}

	if strings.Contains(label1, label2) || strings.Contains(label2, label1) {
		return 0.8
	}

	words1 := strings.Fields(label1)
	words2 := strings.Fields(label2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}

	matchingWords := 0
	for _, word1 := range words1 {
		for _, word2 := range words2 {
			if word1 == word2 {
				matchingWords++
				break
			}
		}
	}

	// Jaccard similarity (intersection / union)
	totalWords := len(words1) + len(words2) - matchingWords
	if totalWords == 0 {
		return 0.0
	}

	score := float64(matchingWords) / float64(totalWords)
	if matchingWords > 0 {
		score = math.Max(score, 0.4)
	}

	return score
}

// calculateLabelConfidence calculates confidence score for a label
func (s *UtilityService) calculateLabelConfidence(label string) float64 {
	if label == "" {
		return 0.0
	}

	confidence := 0.5
	normalizedLabel := s.normalizeLabel(label)

	ipoKeywords := []string{
		"date", "price", "size", "investment", "registrar", "symbol",
		"subscription", "listing", "gain", "open", "close", "result",
		"allotment", "issue", "band", "minimum", "lot", "shares",
		"gmp", "qib", "nii", "retail", "employee", "exchange",
	}

	for _, keyword := range ipoKeywords {
		if strings.Contains(normalizedLabel, keyword) {
			confidence += 0.2
			break
		}
	}

	// Labels with colons are common in data tables
	if strings.Contains(label, ":") {
		confidence += 0.1
	}

	if len(normalizedLabel) < 3 {
		confidence -= 0.2
	}

	if IsPlaceholder(label) {
		confidence -= 0.3
	}

	return math.Min(1.0, math.Max(0.0, confidence))
}

// cleanCellText cleans up extracted cell text
func (s *UtilityService) cleanCellText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Metrics returns the current service metrics
func (s *UtilityService) Metrics() *shared.ServiceMetrics {
	return s.serviceMetrics
}

// RecordOperation records a utility service operation with metrics tracking
func (s *UtilityService) RecordOperation(operationName string, success bool, processingTime time.Duration) {
	if s.serviceMetrics != nil {
		s.serviceMetrics.RecordRequest(success, processingTime)
		s.serviceMetrics.IncrementCustomCounter(operationName)
	}
}
