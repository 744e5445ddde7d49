package timerange

import (
	"testing"
	"time"

	"stockboard/internal/stock"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCutoff_FiveDays(t *testing.T) {
	got := Cutoff(FiveDays, day(2024, 1, 15))
	if !got.Equal(day(2024, 1, 10)) {
		t.Fatalf("want 2024-01-10, got %s", got)
	}
}

func TestCutoff_MonthClampsToShorterMonth(t *testing.T) {
	// One month back from March 31 is the last day of February, not March 3.
	got := Cutoff(OneMonth, day(2023, 3, 31))
	if !got.Equal(day(2023, 2, 28)) {
		t.Fatalf("want 2023-02-28, got %s", got)
	}
}

func TestCutoff_MonthClampsLeapYear(t *testing.T) {
	got := Cutoff(OneMonth, day(2024, 3, 31))
	if !got.Equal(day(2024, 2, 29)) {
		t.Fatalf("want 2024-02-29, got %s", got)
	}
}

func TestCutoff_SixMonthsClamps(t *testing.T) {
	got := Cutoff(SixMonths, day(2023, 8, 31))
	if !got.Equal(day(2023, 2, 28)) {
		t.Fatalf("want 2023-02-28, got %s", got)
	}
}

func TestCutoff_YearFromLeapDay(t *testing.T) {
	got := Cutoff(OneYear, day(2024, 2, 29))
	if !got.Equal(day(2023, 2, 28)) {
		t.Fatalf("want 2023-02-28, got %s", got)
	}
}

func TestCutoff_MonthCrossesYearBoundary(t *testing.T) {
	got := Cutoff(OneMonth, day(2024, 1, 15))
	if !got.Equal(day(2023, 12, 15)) {
		t.Fatalf("want 2023-12-15, got %s", got)
	}
}

func TestCutoff_UnknownTokenFallsBackToWeek(t *testing.T) {
	got := Cutoff(Token("2Y"), day(2024, 1, 15))
	if !got.Equal(day(2024, 1, 8)) {
		t.Fatalf("want 1W fallback 2024-01-08, got %s", got)
	}
}

func TestCutoff_TimeOfDayIgnored(t *testing.T) {
	now := time.Date(2024, 1, 15, 15, 30, 45, 123, time.UTC)
	got := Cutoff(FiveDays, now)
	if !got.Equal(day(2024, 1, 10)) {
		t.Fatalf("want midnight 2024-01-10, got %s", got)
	}
}

func TestFilter_IncludesPointOnCutoff(t *testing.T) {
	h := stock.History{
		{Date: stock.NewDate(2024, 1, 5), Close: 1},
		{Date: stock.NewDate(2024, 1, 8), Close: 2}, // exactly on the 1W cutoff
		{Date: stock.NewDate(2024, 1, 12), Close: 3},
	}
	got := Filter(h, OneWeek, day(2024, 1, 15))
	if len(got) != 2 {
		t.Fatalf("want 2 points, got %d: %+v", len(got), got)
	}
	if got[0].Date.String() != "2024-01-08" {
		t.Fatalf("want window to open on the cutoff day, got %s", got[0].Date)
	}
}

func TestFilter_EmptyHistory(t *testing.T) {
	if got := Filter(nil, OneMonth, day(2024, 1, 15)); len(got) != 0 {
		t.Fatalf("want empty, got %+v", got)
	}
}

func TestFilter_AllOlderThanWindow(t *testing.T) {
	h := stock.History{
		{Date: stock.NewDate(2023, 6, 1), Close: 1},
		{Date: stock.NewDate(2023, 6, 2), Close: 2},
	}
	if got := Filter(h, FiveDays, day(2024, 1, 15)); len(got) != 0 {
		t.Fatalf("want empty, got %+v", got)
	}
}

func TestFilter_WeekWindowOverLongSeries(t *testing.T) {
	start := day(2023, 1, 1)
	h := make(stock.History, 400)
	for i := range h {
		h[i] = stock.HistoryPoint{Date: stock.DateOf(start.AddDate(0, 0, i)), Close: float64(i)}
	}
	now := start.AddDate(0, 0, 399)

	got := Filter(h, OneWeek, now)

	// Cutoff day through today inclusive: 8 daily points.
	if len(got) != 8 {
		t.Fatalf("want 8 points, got %d", len(got))
	}
	if !got[0].Date.Equal(Cutoff(OneWeek, now)) {
		t.Fatalf("window opens at %s, want %s", got[0].Date, Cutoff(OneWeek, now))
	}
}

func TestTokens_DisplayOrder(t *testing.T) {
	want := []Token{FiveDays, OneWeek, OneMonth, ThreeMonths, SixMonths, OneYear}
	got := Tokens()
	if len(got) != len(want) {
		t.Fatalf("want %d tokens, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: want %s, got %s", i, want[i], got[i])
		}
	}
}
