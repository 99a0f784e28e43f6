package schedule

import "github.com/neexbeast/match-weather/internal/caldate"

// Match is the canonical schedule record. UID is the natural key.
type Match struct {
	UID           string       `json:"uid"`
	Date          caldate.Date `json:"date"`
	Name          string       `json:"name"`
	VenueFullName string       `json:"venue_full_name"`
	City          string       `json:"city"`
	State         string       `json:"state"`
	Country       string       `json:"country"`
}

// DayReport summarises one schedule sync.
type DayReport struct {
	Date     caldate.Date `json:"date"`
	Fetched  int          `json:"fetched"`
	Rejected int          `json:"rejected"`
	Inserted int          `json:"inserted"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
	Matches  []Match      `json:"matches"`
}
