package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var headingSuffixRegex = regexp.MustCompile(`(?i)\s+(ipo|sme ipo)(\s+(details|date|price|gmp).*)?$`)

// PageRenderer returns the HTML of a page after client-side rendering.
type PageRenderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// ChromePageRenderer renders pages in headless Chrome.
type ChromePageRenderer struct {
	timeout time.Duration
}

// NewChromePageRenderer creates a renderer bounded by timeout per page.
func NewChromePageRenderer(timeout time.Duration) *ChromePageRenderer {
	return &ChromePageRenderer{timeout: timeout}
}

// Render navigates to url and returns the outer HTML once tables are present.
func (r *ChromePageRenderer) Render(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(browserUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, r.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(url),
		chromedp.WaitVisible("table tr", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", shared.NewServiceError(shared.ErrorCategoryNetwork, "CHROMEDP_RENDER_FAILED",
			"Failed to render page with chromedp", "HTML_Table_Source", "Render", true, err)
	}
	return html, nil
}

// HTMLTableSource scrapes IPO detail pages whose facts live in label/value tables.
type HTMLTableSource struct {
	urls        []string
	renderer    PageRenderer
	utility     *UtilityService
	rateLimiter *shared.HTTPRequestRateLimiter
	timeout     time.Duration
	metrics     *shared.ServiceMetrics
}

// NewHTMLTableSource creates a scraper. A nil renderer crawls static HTML with colly.
func NewHTMLTableSource(urls []string, renderer PageRenderer, cfg shared.ServiceConfig) *HTMLTableSource {
	return &HTMLTableSource{
		urls:        urls,
		renderer:    renderer,
		utility:     NewUtilityService(),
		rateLimiter: shared.NewHTTPRequestRateLimiter(cfg.RequestRateLimit),
		timeout:     cfg.HTTPRequestTimeout,
		metrics:     shared.NewServiceMetrics("HTML_Table_Source"),
	}
}

// Name identifies the source in logs and metrics.
func (s *HTMLTableSource) Name() string {
	return "html"
}

// Metrics returns scrape counters.
func (s *HTMLTableSource) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

// Utility returns the table parser, whose metrics count page extractions.
func (s *HTMLTableSource) Utility() *UtilityService {
	return s.utility
}

// LoadRecords scrapes every configured page. Pages that fail are logged and
// skipped; the call fails only if no page could be scraped.
func (s *HTMLTableSource) LoadRecords(ctx context.Context) ([]models.RawIPORecord, error) {
	var records []models.RawIPORecord
	var failures []error

	for _, url := range s.urls {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		record, err := s.scrape(ctx, url)
		s.metrics.RecordRequest(err == nil, time.Since(start))
		if err != nil {
			failures = append(failures, err)
			logrus.WithFields(logrus.Fields{
				"component": "HTMLTableSource",
				"url":       url,
				"error":     err.Error(),
			}).Warn("Failed to scrape IPO page")
			continue
		}
		records = append(records, record)
	}

	if len(s.urls) > 0 && len(failures) == len(s.urls) {
		return nil, shared.NewServiceError(shared.ErrorCategoryNetwork, "SCRAPE_FAILED",
			shared.BuildBatchProcessingErrorSummary(0, len(failures), failures), "HTMLTableSource", "LoadRecords", true, failures[0])
	}

	return records, nil
}

func (s *HTMLTableSource) scrape(ctx context.Context, url string) (models.RawIPORecord, error) {
	if s.renderer != nil {
		html, err := s.renderer.Render(ctx, url)
		if err != nil {
			return nil, err
		}
		return s.ExtractFromHTML(html, url)
	}
	return s.crawl(ctx, url)
}

// crawl fetches a static page with colly.
func (s *HTMLTableSource) crawl(ctx context.Context, url string) (models.RawIPORecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := colly.NewCollector(
		colly.UserAgent(browserUserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	if s.timeout > 0 {
		collector.SetRequestTimeout(s.timeout)
	}

	var record models.RawIPORecord
	var scrapeErr error

	collector.OnHTML("html", func(e *colly.HTMLElement) {
		record = s.ExtractRecord(e.DOM, url)
	})
	collector.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("HTTP %d: %w", r.StatusCode, err)
	})

	if err := collector.Visit(url); err != nil && scrapeErr == nil {
		scrapeErr = err
	}
	if scrapeErr != nil {
		return nil, shared.WrapError(scrapeErr, shared.ErrorCategoryNetwork, "COLLY_SCRAPING_FAILED", "HTMLTableSource", "crawl", true)
	}
	if len(record) == 0 {
		return nil, shared.NewServiceError(shared.ErrorCategoryProcessing, "NO_IPO_TABLES", "no IPO facts found on page "+url, "HTMLTableSource", "crawl", false, nil)
	}

	return record, nil
}

// ExtractFromHTML parses rendered HTML into a raw record.
func (s *HTMLTableSource) ExtractFromHTML(html, pageURL string) (models.RawIPORecord, error) {
	document, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryValidation, "HTML_PARSE_FAILED", "HTMLTableSource", "ExtractFromHTML", false)
	}

	record := s.ExtractRecord(document.Selection, pageURL)
	if len(record) == 0 {
		return nil, shared.NewServiceError(shared.ErrorCategoryProcessing, "NO_IPO_TABLES", "no IPO facts found on page "+pageURL, "HTMLTableSource", "ExtractFromHTML", false, nil)
	}
	return record, nil
}

// ExtractRecord maps every label/value table on the page onto snake_case
// keys the field resolver knows. The page heading stands in for a missing
// company name.
func (s *HTMLTableSource) ExtractRecord(page *goquery.Selection, pageURL string) models.RawIPORecord {
	start := time.Now()
	var rows []TableRow
	page.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows = append(rows, s.utility.ParseHTMLTable(table)...)
	})
	// row indexes must be unique across tables
	for i := range rows {
		rows[i].Index = i
	}

	record := s.utility.MapTableRows(rows)

	if _, ok := record["company_name"]; !ok {
		heading := s.utility.NormalizeTextContent(page.Find("h1").First().Text())
		heading = strings.TrimSpace(headingSuffixRegex.ReplaceAllString(heading, ""))
		if heading != "" && !IsPlaceholder(heading) {
			record["company_name"] = heading
		}
	}

	s.utility.RecordOperation("extract_record", len(record) > 0, time.Since(start))
	if len(record) == 0 {
		return record
	}

	record["source_url"] = pageURL
	logrus.WithFields(logrus.Fields{
		"component": "HTMLTableSource",
		"url":       pageURL,
		"fields":    len(record) - 1,
		"rows":      len(rows),
	}).Debug("Extracted IPO facts from page")

	return record
}
