package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/xuri/excelize/v2"
)

// ExportSheetName is the worksheet holding exported records.
const ExportSheetName = "IPOs"

var exportHeaders = []string{
	"id", "company_name", "symbol", "exchange", "status", "window",
	"open_date", "close_date", "allotment_date", "listing_date",
	"price_range", "price_band_low", "price_band_high", "issue_price", "lot_size", "issue_size",
	"listing_price", "listing_gain_pct", "gmp",
	"subscription_overall", "subscription_qib", "subscription_nii", "subscription_retail", "subscription_employee",
	"subscription_progress", "minimum_investment",
}

// BuildWorkbook writes one header row plus one row per record. Unknown
// values are left blank.
func BuildWorkbook(records []models.CanonicalIPO) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ExportSheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ExportSheetName, cell, h); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header %s: %w", h, err)
		}
	}

	for i, record := range records {
		r := i + 2
		var setErr error
		set := func(col int, value any) {
			if setErr != nil {
				return
			}
			cell, _ := excelize.CoordinatesToCellName(col, r)
			setErr = f.SetCellValue(ExportSheetName, cell, value)
		}

		set(1, record.ID)
		set(2, derefString(record.CompanyName))
		set(3, derefString(record.Symbol))
		set(4, derefString(record.Exchange))
		set(5, string(record.Classification.Status))
		set(6, string(record.Classification.Window))
		set(7, formatDay(record.OpenDate))
		set(8, formatDay(record.CloseDate))
		set(9, formatDay(record.AllotmentDate))
		set(10, formatDay(record.ListingDate))
		set(11, derefString(record.PriceRange))
		set(12, derefFloat(record.PriceBandLow))
		set(13, derefFloat(record.PriceBandHigh))
		set(14, derefFloat(record.IssuePriceNumeric))
		set(15, derefInt(record.LotSize))
		set(16, derefString(record.IssueSize))
		set(17, derefFloat(record.ListingPrice))
		set(18, derefFloat(record.ListingGainPercentage))
		set(19, derefString(record.GMP))
		set(20, derefFloat(record.SubscriptionOverall))
		set(21, derefFloat(record.SubscriptionQIB))
		set(22, derefFloat(record.SubscriptionNII))
		set(23, derefFloat(record.SubscriptionRetail))
		set(24, derefFloat(record.SubscriptionEmployee))
		set(25, derefFloat(record.SubscriptionProgress))
		set(26, derefFloat(record.MinimumInvestment))

		if setErr != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d: %w", r, setErr)
		}
	}

	return f, nil
}

// WriteXLSX streams the workbook for records to w.
func WriteXLSX(w io.Writer, records []models.CanonicalIPO) error {
	f, err := BuildWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.Write(w)
}

// ExportRecordsToXLSX saves the workbook at outputPath, creating parent directories.
func ExportRecordsToXLSX(records []models.CanonicalIPO, outputPath string) error {
	f, err := BuildWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func formatDay(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02")
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
