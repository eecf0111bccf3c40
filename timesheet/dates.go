package timesheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/timesheet-engine/generic"
)

var serialPattern = regexp.MustCompile(`^[0-9]{1,5}(\.[0-9]+)?$`)

// dateLayouts are tried in order. Four-digit-year layouts come first so
// 01-02-2025 is never read with a two-digit year.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"1/2/2006",
	"01/02/2006",
	"1/2/2006 15:04",
	"1-2-2006",
	"01-02-2006",
	"20060102",
	"1/2/06",
	"01/02/06",
	"1-2-06",
	"01-02-06",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate reads a date cell: an Excel serial number or one of the common
// export layouts.
func ParseDate(value string) (generic.TimePoint, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return generic.TimePoint{}, fmt.Errorf("empty date")
	}

	if serialPattern.MatchString(value) {
		serial, err := strconv.ParseFloat(value, 64)
		if err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return generic.DayOf(t), nil
			}
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return generic.DayOf(t), nil
		}
	}
	return generic.TimePoint{}, fmt.Errorf("unrecognised date %q", value)
}
