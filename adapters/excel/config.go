package excel

import (
	"fmt"
	"time"
)

// SeriesGrandSlam is the Series value of the four majors.
const SeriesGrandSlam = "Grand Slam"

// GrandSlamMode selects matches by Series.
type GrandSlamMode int

const (
	GrandSlamExclude GrandSlamMode = 0 // non grand slams only
	GrandSlamOnly    GrandSlamMode = 1
	GrandSlamBoth    GrandSlamMode = 2
)

// Filter restricts which rows of a match table are loaded.
type Filter struct {
	Tournament string        `json:"tournament"` // "all" or "" for every tournament
	GrandSlam  GrandSlamMode `json:"grand_slam"`
	StartDate  *time.Time    `json:"start_date,omitempty"` // inclusive
	EndDate    *time.Time    `json:"end_date,omitempty"`   // inclusive
}

// DefaultFilter keeps every row.
func DefaultFilter() Filter {
	return Filter{Tournament: "all", GrandSlam: GrandSlamBoth}
}

// Validate checks the grand slam mode and the date range.
func (f Filter) Validate() error {
	if f.GrandSlam < GrandSlamExclude || f.GrandSlam > GrandSlamBoth {
		return fmt.Errorf("grand slam mode must be 0, 1 or 2, got %d", f.GrandSlam)
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return fmt.Errorf("end date %s is before start date %s",
			f.EndDate.Format("2006-01-02"), f.StartDate.Format("2006-01-02"))
	}
	return nil
}

// Keep reports whether a row with these attributes passes the filter.
func (f Filter) Keep(date time.Time, tournament, series string) bool {
	if f.Tournament != "" && f.Tournament != "all" && tournament != f.Tournament {
		return false
	}
	switch f.GrandSlam {
	case GrandSlamExclude:
		if series == SeriesGrandSlam {
			return false
		}
	case GrandSlamOnly:
		if series != SeriesGrandSlam {
			return false
		}
	}
	if f.StartDate != nil && date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && date.After(*f.EndDate) {
		return false
	}
	return true
}
