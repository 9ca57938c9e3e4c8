package models

// IPOBuckets groups canonical records the way listing pages render them.
type IPOBuckets struct {
	Open       []CanonicalIPO `json:"open"`
	ThisWeek   []CanonicalIPO `json:"this_week"`
	NextWeek   []CanonicalIPO `json:"next_week"`
	ComingSoon []CanonicalIPO `json:"coming_soon"`
	Closed     []CanonicalIPO `json:"closed"`
	Listed     []CanonicalIPO `json:"listed"`
	Unknown    []CanonicalIPO `json:"unknown"`
}

// Counts returns the number of records per bucket.
func (b IPOBuckets) Counts() map[string]int {
	return map[string]int{
		"open":        len(b.Open),
		"this_week":   len(b.ThisWeek),
		"next_week":   len(b.NextWeek),
		"coming_soon": len(b.ComingSoon),
		"closed":      len(b.Closed),
		"listed":      len(b.Listed),
		"unknown":     len(b.Unknown),
	}
}
