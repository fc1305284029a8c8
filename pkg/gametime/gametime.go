// Package gametime maps real time onto the in-game baseball calendar.
// The league the bot serves runs an accelerated season: two real days
// advance the game world by one year.
package gametime

import "time"

// MinYear is the earliest year the calculation backend has league data for.
const MinYear = 862

// baseGameYear is the in-game year at baseRealDate.
const baseGameYear = 1385

// realDaysPerGameYear is how many real days one game year takes.
const realDaysPerGameYear = 2

// baseRealDate anchors the calendar: 2025-09-09 21:00 JST.
var baseRealDate = time.Date(2025, time.September, 9, 21, 0, 0, 0, time.FixedZone("JST", 9*60*60))

// CurrentYear returns the in-game year at the given instant.
// The returned year trails the raw projection by one so that a season still
// in progress is never selectable.
func CurrentYear(now time.Time) int {
	days := int(now.Sub(baseRealDate).Hours() / 24)
	return baseGameYear + days/realDaysPerGameYear - 1
}

// ValidYear reports whether year is within the range the backend accepts as
// of the given instant.
func ValidYear(year int, now time.Time) bool {
	return year >= MinYear && year <= CurrentYear(now)
}
