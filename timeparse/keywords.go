package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/poiesic/recall/core"
)

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// matchKeyword resolves the exact keyword expressions: today, yesterday,
// this/last week, this/last month, this/last year.
func matchKeyword(expr string, ref time.Time) *match {
	switch expr {
	case "today":
		return &match{rng: dayRange(ref, "today")}
	case "yesterday":
		return &match{rng: dayRange(ref.AddDate(0, 0, -1), "yesterday")}
	case "this week":
		ws := startOfWeek(ref)
		return &match{rng: &core.TimeRange{
			Start:       ws,
			End:         endOfDay(ws.AddDate(0, 0, 6)),
			Description: "this week",
		}}
	case "last week":
		ws := startOfWeek(ref).AddDate(0, 0, -7)
		return &match{rng: &core.TimeRange{
			Start:       ws,
			End:         endOfDay(ws.AddDate(0, 0, 6)),
			Description: "last week",
		}}
	case "this month":
		start, end := monthBounds(ref.Year(), ref.Month())
		return &match{rng: &core.TimeRange{Start: start, End: end, Description: "this month"}}
	case "last month":
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		start, end := monthBounds(first.Year(), first.Month())
		return &match{rng: &core.TimeRange{Start: start, End: end, Description: "last month"}}
	case "this year":
		return &match{rng: &core.TimeRange{
			Start:       time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
			End:         endOfDay(time.Date(ref.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)),
			Description: "this year",
		}}
	case "last year":
		year := ref.Year() - 1
		return &match{rng: &core.TimeRange{
			Start:       time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:         endOfDay(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)),
			Description: "last year",
		}}
	}
	return nil
}

var weekdayRe = regexp.MustCompile(`^(last|this) ([a-z]+)$`)

// matchWeekday resolves "last <weekday>" and "this <weekday>".
//
// "last <weekday>" is the most recent strictly past occurrence: on a
// Monday, "last monday" is 7 days back. "this <weekday>" stays within
// the current Monday-start week and may be in the future.
func matchWeekday(expr string, ref time.Time) *match {
	groups := weekdayRe.FindStringSubmatch(expr)
	if groups == nil {
		return nil
	}
	target, ok := weekdayNames[groups[2]]
	if !ok {
		return nil
	}

	var day time.Time
	switch groups[1] {
	case "last":
		delta := (int(ref.Weekday()) - int(target) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		day = ref.AddDate(0, 0, -delta)
	case "this":
		index := (int(target) + 6) % 7 // Monday = 0 .. Sunday = 6
		day = startOfWeek(ref).AddDate(0, 0, index)
	}

	description := fmt.Sprintf("%s %s", groups[1], day.Weekday())
	return &match{rng: dayRange(day, description)}
}

var (
	lastCountRe = regexp.MustCompile(`^(?:the )?last (\d+) (day|week|month)s?$`)
	agoRe       = regexp.MustCompile(`^(\d+) (day|week)s? ago$`)
)

// matchRelativeCount resolves "last N days/weeks/months" and
// "N days/weeks ago". Months approximate to 30-day blocks.
func matchRelativeCount(expr string, ref time.Time) *match {
	if groups := lastCountRe.FindStringSubmatch(expr); groups != nil {
		n, err := strconv.Atoi(groups[1])
		if err != nil || n < 1 {
			return nil
		}
		days := n
		switch groups[2] {
		case "week":
			days = n * 7
		case "month":
			days = n * 30
		}
		return &match{rng: &core.TimeRange{
			Start:       startOfDay(ref.AddDate(0, 0, -days)),
			End:         endOfDay(ref),
			Description: fmt.Sprintf("last %d %ss", n, groups[2]),
		}}
	}

	if groups := agoRe.FindStringSubmatch(expr); groups != nil {
		n, err := strconv.Atoi(groups[1])
		if err != nil || n < 1 {
			return nil
		}
		switch groups[2] {
		case "day":
			return &match{rng: dayRange(ref.AddDate(0, 0, -n), fmt.Sprintf("%d days ago", n))}
		case "week":
			ws := startOfWeek(ref.AddDate(0, 0, -7*n))
			return &match{rng: &core.TimeRange{
				Start:       ws,
				End:         endOfDay(ws.AddDate(0, 0, 6)),
				Description: fmt.Sprintf("%d weeks ago", n),
			}}
		}
	}

	return nil
}
