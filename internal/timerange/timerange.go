// Package timerange narrows a daily price history to the window a range
// selector describes.
package timerange

import (
	"sort"
	"time"

	"stockboard/internal/stock"
)

// Token is a range selector as shown in the UI.
type Token string

const (
	FiveDays    Token = "5D"
	OneWeek     Token = "1W"
	OneMonth    Token = "1M"
	ThreeMonths Token = "3M"
	SixMonths   Token = "6M"
	OneYear     Token = "1Y"
)

// Tokens lists the selectors in display order.
func Tokens() []Token {
	return []Token{FiveDays, OneWeek, OneMonth, ThreeMonths, SixMonths, OneYear}
}

// Cutoff returns the earliest date (midnight UTC) still inside the window
// ending at now. Day-based tokens subtract calendar days; month-based tokens
// move by calendar months, clamping to the last day when the target month is
// shorter, so one month back from March 31 is the last day of February.
// Unknown tokens fall back to one week.
func Cutoff(tok Token, now time.Time) time.Time {
	t := midnightUTC(now)
	switch tok {
	case FiveDays:
		return t.AddDate(0, 0, -5)
	case OneMonth:
		return monthsBack(t, 1)
	case ThreeMonths:
		return monthsBack(t, 3)
	case SixMonths:
		return monthsBack(t, 6)
	case OneYear:
		return monthsBack(t, 12)
	default:
		return t.AddDate(0, 0, -7)
	}
}

// Filter returns the suffix of h on or after the window cutoff. The history
// must be sorted ascending by date.
func Filter(h stock.History, tok Token, now time.Time) stock.History {
	cutoff := Cutoff(tok, now)
	i := sort.Search(len(h), func(i int) bool {
		return !h[i].Date.Before(cutoff)
	})
	return h[i:]
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthsBack steps t back the given number of calendar months. It never
// normalizes overflow the way AddDate does: a day past the end of the target
// month clamps to that month's last day instead of spilling into the next.
func monthsBack(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 - months
	y += total / 12
	rem := total % 12
	if rem < 0 {
		rem += 12
		y--
	}
	month := time.Month(rem + 1)
	if last := daysIn(month, y); d > last {
		d = last
	}
	return time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
}

// daysIn reports the number of days in the given month.
func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
