package services

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyReplacer = strings.NewReplacer(
		"₹", " ", "$", " ", "€", " ", "£", " ", "¥", " ",
		"rs.", " ", "inr", " ",
		",", "",
		"−", "-", // minus sign
		"–", "-", // en dash
		"—", "-", // em dash
	)
	rupeeWordRegex = regexp.MustCompile(`\brs\b`)
	rangeRegex     = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*[a-z%]*\s*(?:-|\bto\b|~)\s*(\d+(?:\.\d+)?)`)
	signedRegex    = regexp.MustCompile(`([+-]?)\s*(\d+(?:\.\d+)?|\.\d+)`)
)

// ToNumber coerces a display value into a number. Currency marks, thousands
// separators and unit suffixes are ignored; a range yields its upper bound.
// Placeholders, digit-free text and non-finite numbers report false.
func ToNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		return parseNumericText(v)
	default:
		return 0, false
	}
}

// ParsePriceBand splits a price range display ("₹450-₹475", "94 to 99") into
// its bounds. A single price yields equal bounds.
func ParsePriceBand(value interface{}) (low, high *float64) {
	text, isText := value.(string)
	if !isText {
		if f, ok := ToNumber(value); ok {
			return &f, &f
		}
		return nil, nil
	}

	cleaned, ok := cleanNumericText(text)
	if !ok {
		return nil, nil
	}

	if a, b, ok := leadingRange(cleaned); ok {
		lo, hi := math.Min(a, b), math.Max(a, b)
		return &lo, &hi
	}

	if f, ok := parseNumericText(text); ok {
		return &f, &f
	}
	return nil, nil
}

func parseNumericText(text string) (float64, bool) {
	cleaned, ok := cleanNumericText(text)
	if !ok {
		return 0, false
	}

	if a, b, ok := leadingRange(cleaned); ok {
		return finite(math.Max(a, b))
	}

	match := signedRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return 0, false
	}

	f, err := strconv.ParseFloat(match[1]+match[2], 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

// leadingRange reads a range only when it starts at the first number of
// the text, so a trailing date such as "(as on 10-01-2025)" is not taken
// for one.
func leadingRange(cleaned string) (float64, float64, bool) {
	loc := signedRegex.FindStringSubmatchIndex(cleaned)
	if loc == nil {
		return 0, 0, false
	}
	match := rangeRegex.FindStringSubmatch(cleaned[loc[4]:])
	if match == nil {
		return 0, 0, false
	}
	a, errA := strconv.ParseFloat(match[1], 64)
	b, errB := strconv.ParseFloat(match[2], 64)
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return a, b, true
}

func cleanNumericText(text string) (string, bool) {
	if IsPlaceholder(text) {
		return "", false
	}
	cleaned := currencyReplacer.Replace(strings.ToLower(text))
	cleaned = rupeeWordRegex.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if !strings.ContainsAny(cleaned, "0123456789") {
		return "", false
	}
	return cleaned, true
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
