/*
leavecodes.go - Pre-built leave-code configurations

PURPOSE:
  Ready-to-use leave recognition rules for common absence types, so a new
  team can ingest timesheets before anyone has tuned its configuration.

AVAILABLE CODES (first match wins, so order matters):
  H:    Holiday. Explanations like "H3" or "F12" set the holiday id
  HV:   Half-day vacation, 4 hours
  V:    Vacation
  S:    Sick leave
  B:    Bereavement
  J:    Jury duty
  P:    Parental leave
  LWOP: Leave without pay (not counted as leave)

MATCHING:
  A search is a case-insensitive substring of the hours cell. When the cell
  matches nothing, the description and explanation are tried, but there a
  search must start a word. Searches are at least two characters; short ones
  like "ho" still catch words such as "hotfix", so prefer whole stems.

CUSTOMIZATION:
  Teams usually override search strings to match their vendor's export and
  set per-code hours for half-day codes. See factory.TeamFactory.
*/
package timesheet

import "github.com/warp/timesheet-engine/generic"

// DefaultStandardHours is the usual full-day leave charge.
var DefaultStandardHours = generic.NewHoursFromInt(8)

// DefaultLeaveCodes returns a fresh copy of the preset rules.
func DefaultLeaveCodes() []generic.LeaveCodeRule {
	half := generic.NewHoursFromInt(4)
	return []generic.LeaveCodeRule{
		{Code: generic.HolidayCode, IsLeave: true, Search: "hol"},
		{Code: "HV", IsLeave: true, Search: "half", Hours: &half},
		{Code: "V", IsLeave: true, Search: "vac"},
		{Code: "S", IsLeave: true, Search: "sick"},
		{Code: "B", IsLeave: true, Search: "bereave"},
		{Code: "J", IsLeave: true, Search: "jury"},
		{Code: "P", IsLeave: true, Search: "parental"},
		{Code: "LWOP", IsLeave: false, Search: "unpaid"},
	}
}

// DefaultTeamLeaveConfig builds a complete config from the presets.
func DefaultTeamLeaveConfig(teamID generic.TeamID) generic.TeamLeaveConfig {
	return generic.TeamLeaveConfig{
		TeamID:        teamID,
		StandardHours: DefaultStandardHours,
		Rules:         DefaultLeaveCodes(),
	}
}
