package services

import (
	"time"

	"github.com/fenilmodi00/ipo-display/models"
)

const (
	thisWeekDays = 7
	nextWeekDays = 14
)

// StatusClassifier derives status and window from a record's dates.
// It never reads the wall clock; callers pass "now".
type StatusClassifier struct {
	resolver *FieldResolver
	utility  *UtilityService
}

// NewStatusClassifier creates a classifier that resolves dates with resolver.
func NewStatusClassifier(resolver *FieldResolver, utility *UtilityService) *StatusClassifier {
	if resolver == nil {
		resolver = NewFieldResolver(nil)
	}
	if utility == nil {
		utility = NewUtilityService()
	}
	return &StatusClassifier{resolver: resolver, utility: utility}
}

// Classify resolves the open, close and listing dates of a raw record and
// classifies them against now.
func (c *StatusClassifier) Classify(record models.RawIPORecord, now time.Time) (models.Classification, error) {
	open, err := c.resolveDate(record, models.FieldOpenDate)
	if err != nil {
		return models.Classification{Status: models.StatusUnknown}, err
	}
	closing, err := c.resolveDate(record, models.FieldCloseDate)
	if err != nil {
		return models.Classification{Status: models.StatusUnknown}, err
	}
	listing, err := c.resolveDate(record, models.FieldListingDate)
	if err != nil {
		return models.Classification{Status: models.StatusUnknown}, err
	}

	return ClassifyDates(open, closing, listing, now), nil
}

// ParseDateValue turns a resolved raw value into a calendar day.
func (c *StatusClassifier) ParseDateValue(value interface{}) *time.Time {
	switch v := value.(type) {
	case time.Time:
		day := CalendarDay(v)
		return &day
	case *time.Time:
		if v == nil {
			return nil
		}
		day := CalendarDay(*v)
		return &day
	case string:
		return c.utility.ParseDate(v)
	default:
		return nil
	}
}

func (c *StatusClassifier) resolveDate(record models.RawIPORecord, field models.CanonicalField) (*time.Time, error) {
	value, found, err := c.resolver.Resolve(record, field)
	if err != nil || !found {
		return nil, err
	}
	return c.ParseDateValue(value), nil
}

// ClassifyDates compares calendar days: now's day in its own location
// against each record date's day.
func ClassifyDates(open, closing, listing *time.Time, now time.Time) models.Classification {
	today := CalendarDay(now)

	if open == nil && closing == nil && listing == nil {
		return models.Classification{Status: models.StatusUnknown}
	}

	if listing != nil && !today.Before(CalendarDay(*listing)) {
		return models.Classification{Status: models.StatusListed}
	}

	if closing != nil && today.After(CalendarDay(*closing)) {
		return models.Classification{Status: models.StatusClosed}
	}

	if open != nil {
		openDay := CalendarDay(*open)
		if !today.Before(openDay) {
			return models.Classification{Status: models.StatusOpen}
		}
		return models.Classification{
			Status: models.StatusUpcoming,
			Window: windowFor(daysBetween(today, openDay)),
		}
	}

	// No opening date, but a close or listing date still ahead.
	return models.Classification{Status: models.StatusUpcoming, Window: models.WindowComingSoon}
}

func windowFor(daysUntilOpen int) models.Window {
	switch {
	case daysUntilOpen >= 0 && daysUntilOpen < thisWeekDays:
		return models.WindowThisWeek
	case daysUntilOpen >= thisWeekDays && daysUntilOpen < nextWeekDays:
		return models.WindowNextWeek
	default:
		return models.WindowComingSoon
	}
}

// daysBetween counts whole days between two UTC midnights.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
