package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// NaturalDateParser resolves free-form text such as "in 3 days" relative
// to base. It is consulted only after keywords and ISO-8601 fail.
type NaturalDateParser interface {
	ParseDate(text string, base time.Time) (time.Time, bool)
}

// DateResolver turns comparison values into instants for dueDate ordering.
type DateResolver struct {
	WeekStart time.Weekday
	Natural   NaturalDateParser
}

var defaultResolver = sync.OnceValue(func() *DateResolver {
	return &DateResolver{WeekStart: time.Sunday, Natural: NewWhenParser()}
})

// DefaultDateResolver returns the shared resolver with Sunday week start and
// the English natural-language parser.
func DefaultDateResolver() *DateResolver {
	return defaultResolver()
}

// NewDateResolver builds a resolver with the given week start and the
// default natural-language parser.
func NewDateResolver(weekStart time.Weekday) *DateResolver {
	return &DateResolver{WeekStart: weekStart, Natural: DefaultDateResolver().Natural}
}

var offsetSuffix = regexp.MustCompile(`^(.*?)\s*([+-])\s*(\d+)$`)

var isoLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Resolve returns the instant value denotes relative to now. The second
// result is false when nothing recognizes the value.
func (r *DateResolver) Resolve(value string, now time.Time) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, ok := r.keyword(value, now); ok {
		return t, true
	}
	if m := offsetSuffix.FindStringSubmatch(value); m != nil {
		if base, ok := r.keyword(m[1], now); ok {
			days, err := strconv.Atoi(m[3])
			if err == nil {
				if m[2] == "-" {
					days = -days
				}
				return base.AddDate(0, 0, days), true
			}
		}
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, value, now.Location()); err == nil {
			return t, true
		}
	}

	if r.Natural != nil {
		return r.Natural.ParseDate(value, now)
	}
	return time.Time{}, false
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts a full or three-letter weekday name.
func ParseWeekday(s string) (time.Weekday, error) {
	if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return wd, nil
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}

func normalizeKeyword(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	return strings.Join(strings.Fields(s), " ")
}

func (r *DateResolver) keyword(value string, now time.Time) (time.Time, bool) {
	today := startOfDay(now)
	weekStart := r.startOfWeek(today)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	switch kw := normalizeKeyword(value); kw {
	case "now":
		return now, true
	case "today":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	case "start of week":
		return weekStart, true
	case "end of week":
		return weekStart.AddDate(0, 0, 7).Add(-time.Nanosecond), true
	case "next week":
		return weekStart.AddDate(0, 0, 7), true
	case "last week":
		return weekStart.AddDate(0, 0, -7), true
	case "start of month":
		return monthStart, true
	case "end of month":
		return monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond), true
	case "next month":
		return monthStart.AddDate(0, 1, 0), true
	case "last month":
		return monthStart.AddDate(0, -1, 0), true
	default:
		return weekdayKeyword(kw, today)
	}
}

// weekdayKeyword handles "friday", "next fri" and "last monday". A bare
// weekday is the next occurrence counting today; "next" excludes today and
// "last" looks backwards excluding today.
func weekdayKeyword(kw string, today time.Time) (time.Time, bool) {
	direction := ""
	if prefix, rest, ok := strings.Cut(kw, " "); ok {
		direction, kw = prefix, rest
	}
	wd, ok := weekdayNames[kw]
	if !ok {
		return time.Time{}, false
	}

	ahead := (int(wd) - int(today.Weekday()) + 7) % 7
	switch direction {
	case "", "this":
		return today.AddDate(0, 0, ahead), true
	case "next":
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), true
	case "last":
		back := (int(today.Weekday()) - int(wd) + 7) % 7
		if back == 0 {
			back = 7
		}
		return today.AddDate(0, 0, -back), true
	default:
		return time.Time{}, false
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (r *DateResolver) startOfWeek(today time.Time) time.Time {
	back := (int(today.Weekday()) - int(r.WeekStart) + 7) % 7
	return today.AddDate(0, 0, -back)
}

// whenParser adapts github.com/olebedev/when to NaturalDateParser.
type whenParser struct {
	w *when.Parser
}

// NewWhenParser returns an English natural-language date parser.
func NewWhenParser() NaturalDateParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &whenParser{w: w}
}

func (p *whenParser) ParseDate(text string, base time.Time) (time.Time, bool) {
	res, err := p.w.Parse(text, base)
	if err != nil || res == nil {
		return time.Time{}, false
	}
	return res.Time, true
}
