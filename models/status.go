package models

// Status is the lifecycle stage of an IPO derived from its dates.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusOpen     Status = "open"
	StatusClosed   Status = "closed"
	StatusListed   Status = "listed"
	StatusUnknown  Status = "unknown"
)

// Window buckets upcoming IPOs by how soon they open.
type Window string

const (
	WindowNone       Window = ""
	WindowThisWeek   Window = "this week"
	WindowNextWeek   Window = "next week"
	WindowComingSoon Window = "coming soon"
)

// Classification is recomputed on every read since it depends on "now".
type Classification struct {
	Status Status `json:"status"`
	Window Window `json:"window,omitempty"`
}

// ParseStatus maps a filter string to a Status. The second value is false
// for anything that is not a known status.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusUpcoming, StatusOpen, StatusClosed, StatusListed, StatusUnknown:
		return Status(value), true
	}
	return "", false
}

// ParseWindow maps a filter string to a Window. Underscore and hyphen
// spellings ("this_week", "coming-soon") are accepted.
func ParseWindow(value string) (Window, bool) {
	switch value {
	case "this week", "this_week", "this-week":
		return WindowThisWeek, true
	case "next week", "next_week", "next-week":
		return WindowNextWeek, true
	case "coming soon", "coming_soon", "coming-soon", "later":
		return WindowComingSoon, true
	}
	return WindowNone, false
}
