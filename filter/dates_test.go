package filter

import (
	"testing"
	"time"
)

type stubNatural struct {
	seen string
}

func (s *stubNatural) ParseDate(text string, base time.Time) (time.Time, bool) {
	s.seen = text
	if text == "in two days" {
		return base.AddDate(0, 0, 2), true
	}
	return time.Time{}, false
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestDateResolverKeywords(t *testing.T) {
	// testNow is Wednesday 2026-03-11 10:00
	r := &DateResolver{WeekStart: time.Sunday}

	tests := []struct {
		value string
		want  time.Time
	}{
		{"now", testNow},
		{"today", day(2026, 3, 11)},
		{"TODAY", day(2026, 3, 11)},
		{"tomorrow", day(2026, 3, 12)},
		{"yesterday", day(2026, 3, 10)},
		{"start_of_week", day(2026, 3, 8)},
		{"start of week", day(2026, 3, 8)},
		{"end_of_week", day(2026, 3, 15).Add(-time.Nanosecond)},
		{"next_week", day(2026, 3, 15)},
		{"last week", day(2026, 3, 1)},
		{"start_of_month", day(2026, 3, 1)},
		{"end_of_month", day(2026, 4, 1).Add(-time.Nanosecond)},
		{"next_month", day(2026, 4, 1)},
		{"last_month", day(2026, 2, 1)},
		{"wednesday", day(2026, 3, 11)},
		{"wed", day(2026, 3, 11)},
		{"next wednesday", day(2026, 3, 18)},
		{"last wednesday", day(2026, 3, 4)},
		{"friday", day(2026, 3, 13)},
		{"next_fri", day(2026, 3, 13)},
		{"monday", day(2026, 3, 16)},
		{"last monday", day(2026, 3, 9)},
		{"today+3", day(2026, 3, 14)},
		{"today - 1", day(2026, 3, 10)},
		{"next_week+7", day(2026, 3, 22)},
		{"end_of_week-2", day(2026, 3, 13).Add(-time.Nanosecond)},
		{"2026-04-01", day(2026, 4, 1)},
		{"2026-04-01T09:30", time.Date(2026, 4, 1, 9, 30, 0, 0, time.Local)},
		{"2026-04-01T09:30:00Z", time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := r.Resolve(tt.value, testNow)
			if !ok {
				t.Fatalf("Resolve(%q) did not resolve", tt.value)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestDateResolverWeekStart(t *testing.T) {
	r := &DateResolver{WeekStart: time.Monday}
	got, ok := r.Resolve("start_of_week", testNow)
	if !ok || !got.Equal(day(2026, 3, 9)) {
		t.Errorf("Monday week start = %v, %v", got, ok)
	}

	// Sunday itself with a Monday week start belongs to the previous week
	sunday := time.Date(2026, 3, 15, 12, 0, 0, 0, time.Local)
	got, ok = r.Resolve("start_of_week", sunday)
	if !ok || !got.Equal(day(2026, 3, 9)) {
		t.Errorf("Monday week start on Sunday = %v, %v", got, ok)
	}
}

func TestDateResolverNaturalFallback(t *testing.T) {
	natural := &stubNatural{}
	r := &DateResolver{Natural: natural}

	got, ok := r.Resolve("in two days", testNow)
	if !ok || !got.Equal(testNow.AddDate(0, 0, 2)) {
		t.Errorf("natural fallback = %v, %v", got, ok)
	}

	if _, ok := r.Resolve("gibberish", testNow); ok {
		t.Error("expected unresolved value")
	}
	if natural.seen != "gibberish" {
		t.Errorf("natural parser saw %q", natural.seen)
	}

	natural.seen = ""
	if _, ok := r.Resolve("today", testNow); !ok || natural.seen != "" {
		t.Error("keywords must not reach the natural parser")
	}
}

func TestWhenParser(t *testing.T) {
	p := NewWhenParser()
	got, ok := p.ParseDate("next friday at 3pm", testNow)
	if !ok {
		t.Fatal("expected when to parse a weekday phrase")
	}
	if got.Weekday() != time.Friday || got.Hour() != 15 {
		t.Errorf("unexpected parse result %v", got)
	}
}

func TestParseWeekday(t *testing.T) {
	if wd, err := ParseWeekday("Monday"); err != nil || wd != time.Monday {
		t.Errorf("ParseWeekday(Monday) = %v, %v", wd, err)
	}
	if _, err := ParseWeekday("funday"); err == nil {
		t.Error("expected error")
	}
}
