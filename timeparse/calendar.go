package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/poiesic/recall/core"
)

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var quarterRe = regexp.MustCompile(`^q([1-4])(?: of)?(?: (\d{4}))?$`)

// matchQuarter resolves "Q1".."Q4" with an optional year. Quarters have
// fixed month boundaries. Without a year the most recent started quarter
// is assumed.
func matchQuarter(expr string, ref time.Time) *match {
	groups := quarterRe.FindStringSubmatch(expr)
	if groups == nil {
		return nil
	}
	quarter, _ := strconv.Atoi(groups[1])
	startMonth := time.Month(3*(quarter-1) + 1)

	year := ref.Year()
	if groups[2] != "" {
		year, _ = strconv.Atoi(groups[2])
	} else if time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC).After(ref) {
		year--
	}

	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end := endOfDay(start.AddDate(0, 3, -1))
	return &match{rng: &core.TimeRange{
		Start:       start,
		End:         end,
		Description: fmt.Sprintf("Q%d %d", quarter, year),
	}}
}

var (
	betweenRe = regexp.MustCompile(`^between (.+?) and (.+)$`)
	toRe      = regexp.MustCompile(`^(.+?) to (.+)$`)
	sinceRe   = regexp.MustCompile(`^since (.+)$`)
	beforeRe  = regexp.MustCompile(`^before (.+)$`)
	afterRe   = regexp.MustCompile(`^after (.+)$`)
	onRe      = regexp.MustCompile(`^(?:on|during) (.+)$`)
)

// matchRange resolves explicit ranges ("X to Y", "between X and Y") and
// the since/before/after/on/during prepositional forms. Sub-expressions
// recurse into the same cascade.
func (p *Parser) matchRange(expr string, ref time.Time) *match {
	if groups := betweenRe.FindStringSubmatch(expr); groups != nil {
		return p.spanOf(groups[1], groups[2], ref)
	}
	if groups := toRe.FindStringSubmatch(expr); groups != nil {
		return p.spanOf(groups[1], groups[2], ref)
	}

	if groups := sinceRe.FindStringSubmatch(expr); groups != nil {
		sub := p.resolveSub(groups[1], ref)
		if sub == nil {
			return nil
		}
		return &match{rng: &core.TimeRange{
			Start:       sub.Start,
			End:         endOfDay(ref),
			Description: "since " + sub.Description,
		}}
	}

	if groups := beforeRe.FindStringSubmatch(expr); groups != nil {
		sub := p.resolveSub(groups[1], ref)
		if sub == nil {
			return nil
		}
		return &match{rng: &core.TimeRange{
			Start:       time.Unix(0, 0).UTC(),
			End:         sub.Start.Add(-time.Nanosecond),
			Description: "before " + sub.Description,
		}}
	}

	if groups := afterRe.FindStringSubmatch(expr); groups != nil {
		sub := p.resolveSub(groups[1], ref)
		if sub == nil {
			return nil
		}
		end := endOfDay(ref)
		if sub.End.After(end) {
			return nil
		}
		return &match{rng: &core.TimeRange{
			Start:       sub.End,
			End:         end,
			Description: "after " + sub.Description,
		}}
	}

	if groups := onRe.FindStringSubmatch(expr); groups != nil {
		sub := p.resolveSub(groups[1], ref)
		if sub == nil {
			return nil
		}
		return &match{rng: sub}
	}

	return nil
}

func (p *Parser) spanOf(fromExpr, toExpr string, ref time.Time) *match {
	from := p.resolveSub(fromExpr, ref)
	to := p.resolveSub(toExpr, ref)
	if from == nil || to == nil {
		return nil
	}
	if from.Start.After(to.End) {
		return nil
	}
	return &match{rng: &core.TimeRange{
		Start:       from.Start,
		End:         to.End,
		Description: from.Description + " to " + to.Description,
	}}
}

var monthRe = regexp.MustCompile(`^(last )?([a-z]+)(?: (\d{4}))?$`)

// matchMonth resolves a month name with an optional year.
//
// Without a year the most recent plausible year is the primary
// candidate. The result is flagged ambiguous, with the primary and the
// year before it as clarification options, when either (a) "last
// <month>" is used with the reference in the year's first half and the
// target in its second half, or (b) the reference and target months are
// within two calendar months of each other and not identical. A
// year-qualified month reference is never ambiguous.
func matchMonth(expr string, ref time.Time) *match {
	groups := monthRe.FindStringSubmatch(expr)
	if groups == nil {
		return nil
	}
	month, ok := monthNames[groups[2]]
	if !ok {
		return nil
	}
	isLast := groups[1] != ""

	if groups[3] != "" {
		year, _ := strconv.Atoi(groups[3])
		start, end := monthBounds(year, month)
		return &match{rng: &core.TimeRange{
			Start:       start,
			End:         end,
			Description: fmt.Sprintf("%s %d", month, year),
		}}
	}

	refMonth := ref.Month()
	year := ref.Year()
	if isLast {
		if month >= refMonth {
			year--
		}
	} else if month > refMonth {
		year--
	}

	halfYearSplit := isLast && refMonth <= time.June && month >= time.July
	ambiguous := halfYearSplit || nearbyMonths(refMonth, month)

	start, end := monthBounds(year, month)
	result := &match{
		rng: &core.TimeRange{
			Start:       start,
			End:         end,
			Description: fmt.Sprintf("%s %d", month, year),
		},
		ambiguous: ambiguous,
	}
	if ambiguous {
		result.options = []string{
			fmt.Sprintf("%s %d", month, year),
			fmt.Sprintf("%s %d", month, year-1),
		}
	}
	return result
}

// nearbyMonths reports whether two months are within two calendar months
// of each other on the circular twelve-month scale, and not identical.
func nearbyMonths(a, b time.Month) bool {
	if a == b {
		return false
	}
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	if d > 6 {
		d = 12 - d
	}
	return d <= 2
}

var yearRe = regexp.MustCompile(`^(\d{4})$`)

// matchYear resolves a bare four-digit year.
func matchYear(expr string, _ time.Time) *match {
	groups := yearRe.FindStringSubmatch(expr)
	if groups == nil {
		return nil
	}
	year, _ := strconv.Atoi(groups[1])
	if year < 1970 || year > 2100 {
		return nil
	}
	return &match{rng: &core.TimeRange{
		Start:       time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:         endOfDay(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)),
		Description: groups[1],
	}}
}

var (
	isoDateRe      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	slashDateRe    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	monthDayRe     = regexp.MustCompile(`^([a-z]+) (\d{1,2})(?:st|nd|rd|th)?(?:,? (\d{4}))?$`)
	dayMonthRe     = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)? ([a-z]+)(?: (\d{4}))?$`)
	dateLabelLayout = "January 2, 2006"
)

// matchCalendarDate resolves explicit calendar dates: ISO yyyy-mm-dd,
// m/d/yyyy, "<month> <day>[, year]" and "<day> <month> [year]". Invalid
// calendar dates are skipped, not raised.
func matchCalendarDate(expr string, ref time.Time) *match {
	if groups := isoDateRe.FindStringSubmatch(expr); groups != nil {
		year, _ := strconv.Atoi(groups[1])
		month, _ := strconv.Atoi(groups[2])
		day, _ := strconv.Atoi(groups[3])
		if d, ok := validDate(year, time.Month(month), day); ok {
			return &match{rng: dayRange(d, d.Format(dateLabelLayout))}
		}
		return nil
	}

	if groups := slashDateRe.FindStringSubmatch(expr); groups != nil {
		month, _ := strconv.Atoi(groups[1])
		day, _ := strconv.Atoi(groups[2])
		year, _ := strconv.Atoi(groups[3])
		if d, ok := validDate(year, time.Month(month), day); ok {
			return &match{rng: dayRange(d, d.Format(dateLabelLayout))}
		}
		return nil
	}

	if groups := monthDayRe.FindStringSubmatch(expr); groups != nil {
		if month, ok := monthNames[groups[1]]; ok {
			day, _ := strconv.Atoi(groups[2])
			return monthDayMatch(month, day, groups[3], ref)
		}
	}

	if groups := dayMonthRe.FindStringSubmatch(expr); groups != nil {
		if month, ok := monthNames[groups[2]]; ok {
			day, _ := strconv.Atoi(groups[1])
			return monthDayMatch(month, day, groups[3], ref)
		}
	}

	return nil
}

// monthDayMatch resolves a month/day pair. Without a year the most
// recent plausible occurrence is chosen.
func monthDayMatch(month time.Month, day int, yearText string, ref time.Time) *match {
	if yearText != "" {
		year, _ := strconv.Atoi(yearText)
		if d, ok := validDate(year, month, day); ok {
			return &match{rng: dayRange(d, d.Format(dateLabelLayout))}
		}
		return nil
	}

	d, ok := validDate(ref.Year(), month, day)
	if !ok {
		return nil
	}
	if d.After(endOfDay(ref)) {
		var rolled bool
		if d, rolled = validDate(ref.Year()-1, month, day); !rolled {
			return nil
		}
	}
	return &match{rng: dayRange(d, d.Format(dateLabelLayout))}
}

var ordinalDayRe = regexp.MustCompile(`^(?:the )?(\d{1,2})(?:st|nd|rd|th)$`)

// matchOrdinalDay is the final heuristic for bare ordinal days like
// "the 25th". The current month is assumed unless the resulting date is
// still in the future relative to the reference, in which case it rolls
// back one month.
func matchOrdinalDay(expr string, ref time.Time) *match {
	groups := ordinalDayRe.FindStringSubmatch(expr)
	if groups == nil {
		return nil
	}
	day, _ := strconv.Atoi(groups[1])

	d, ok := validDate(ref.Year(), ref.Month(), day)
	if ok && !startOfDay(d).After(ref) {
		return &match{rng: dayRange(d, d.Format(dateLabelLayout))}
	}

	previous := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	d, ok = validDate(previous.Year(), previous.Month(), day)
	if !ok {
		return nil
	}
	return &match{rng: dayRange(d, d.Format(dateLabelLayout))}
}
