package timeparse

import (
	"strings"
	"time"

	"github.com/poiesic/recall/core"
)

// Confidence levels assigned to parse results.
const (
	ConfidenceUnambiguous = 0.9
	ConfidenceAmbiguous   = 0.6
	ConfidenceAssumed     = 0.5
)

// DefaultRange selects the range returned when no expression matches.
type DefaultRange int

const (
	// DefaultNone returns no range when nothing matches.
	DefaultNone DefaultRange = iota
	// DefaultDay falls back to the reference day.
	DefaultDay
	// DefaultWeek falls back to the reference Monday-start week.
	DefaultWeek
	// DefaultMonth falls back to the reference calendar month.
	DefaultMonth
	// DefaultYear falls back to the reference calendar year.
	DefaultYear
)

// match is the structured partial result of one matcher.
type match struct {
	rng       *core.TimeRange
	ambiguous bool
	options   []string
}

// matcher inspects a normalized expression against a reference instant.
// It returns nil when the expression is not its shape.
type matcher func(expr string, ref time.Time) *match

// Parser resolves free-text time expressions. It is safe for concurrent
// use; all state is immutable after construction.
type Parser struct {
	clock        func() time.Time
	defaultRange DefaultRange
	matchers     []matcher
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the clock used when no explicit reference instant is
// supplied. Default is time.Now.
func WithClock(clock func() time.Time) Option {
	return func(p *Parser) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithDefaultRange sets the fallback policy applied when no matcher
// fires. Default is DefaultNone.
func WithDefaultRange(d DefaultRange) Option {
	return func(p *Parser) {
		p.defaultRange = d
	}
}

// NewParser creates a parser with the full matcher cascade. The cascade
// order is part of the contract and must not be reordered.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		clock:        time.Now,
		defaultRange: DefaultNone,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.matchers = []matcher{
		matchKeyword,
		matchWeekday,
		matchRelativeCount,
		matchQuarter,
		p.matchRange,
		matchMonth,
		matchYear,
		matchCalendarDate,
		matchOrdinalDay,
	}
	return p
}

// Parse resolves an expression against the parser's clock. Returns nil
// when no time pattern matches and no default-range policy is set. For
// ambiguous expressions the primary candidate is returned.
func (p *Parser) Parse(text string) *core.TimeRange {
	return p.ParseAt(text, p.clock())
}

// ParseAt resolves an expression against an explicit reference instant.
func (p *Parser) ParseAt(text string, ref time.Time) *core.TimeRange {
	result := p.ParseWithAmbiguityAt(text, ref)
	if result == nil {
		return nil
	}
	return result.Range
}

// ParseWithAmbiguity resolves an expression and reports ambiguity with
// ordered clarification options.
func (p *Parser) ParseWithAmbiguity(text string) *core.TimeParseResult {
	return p.ParseWithAmbiguityAt(text, p.clock())
}

// ParseWithAmbiguityAt is ParseWithAmbiguity with an explicit reference
// instant. Returns nil when no pattern matches and the default-range
// policy is DefaultNone.
func (p *Parser) ParseWithAmbiguityAt(text string, ref time.Time) *core.TimeParseResult {
	expr := normalize(text)
	ref = ref.UTC()

	if expr != "" {
		for _, m := range p.matchers {
			result := m(expr, ref)
			if result == nil {
				continue
			}
			confidence := ConfidenceUnambiguous
			if result.ambiguous {
				confidence = ConfidenceAmbiguous
			}
			if result.rng != nil {
				result.rng.Confidence = confidence
				if result.rng.Description == "" {
					result.rng.Description = expr
				}
			}
			return &core.TimeParseResult{
				Range:                result.rng,
				Confidence:           confidence,
				Ambiguous:            result.ambiguous,
				ClarificationOptions: result.options,
				RawExpression:        text,
			}
		}
	}

	if rng := p.fallbackRange(ref); rng != nil {
		return &core.TimeParseResult{
			Range:         rng,
			Confidence:    rng.Confidence,
			RawExpression: text,
		}
	}
	return nil
}

// resolveSub runs the cascade for a sub-expression of a larger range
// expression. Ambiguity collapses to the primary candidate and the
// default-range policy does not apply.
func (p *Parser) resolveSub(expr string, ref time.Time) *core.TimeRange {
	expr = normalize(expr)
	if expr == "" {
		return nil
	}
	for _, m := range p.matchers {
		if result := m(expr, ref); result != nil {
			return result.rng
		}
	}
	return nil
}

func (p *Parser) fallbackRange(ref time.Time) *core.TimeRange {
	switch p.defaultRange {
	case DefaultDay:
		rng := dayRange(ref, "today")
		rng.Confidence = ConfidenceAssumed
		return rng
	case DefaultWeek:
		ws := startOfWeek(ref)
		return &core.TimeRange{
			Start:       ws,
			End:         endOfDay(ws.AddDate(0, 0, 6)),
			Description: "this week",
			Confidence:  ConfidenceAssumed,
		}
	case DefaultMonth:
		start, end := monthBounds(ref.Year(), ref.Month())
		return &core.TimeRange{
			Start:       start,
			End:         end,
			Description: "this month",
			Confidence:  ConfidenceAssumed,
		}
	case DefaultYear:
		return &core.TimeRange{
			Start:       time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
			End:         endOfDay(time.Date(ref.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)),
			Description: "this year",
			Confidence:  ConfidenceAssumed,
		}
	default:
		return nil
	}
}

// normalize lowercases, collapses whitespace, and strips surrounding
// punctuation so matchers can anchor on the whole expression.
func normalize(text string) string {
	expr := strings.ToLower(strings.TrimSpace(text))
	expr = strings.Trim(expr, ".,!?;")
	return strings.Join(strings.Fields(expr), " ")
}

// Calendar helpers. All produced ranges span full-day boundaries unless
// the expression specifies a narrower window.

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

func dayRange(t time.Time, description string) *core.TimeRange {
	return &core.TimeRange{
		Start:       startOfDay(t),
		End:         endOfDay(t),
		Description: description,
	}
}

// startOfWeek returns the Monday 00:00 of the week containing t.
func startOfWeek(t time.Time) time.Time {
	t = startOfDay(t)
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0 .. Sunday = 6
	return t.AddDate(0, 0, -offset)
}

func monthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := endOfDay(start.AddDate(0, 1, -1))
	return start, end
}

// validDate reports whether year/month/day is a real calendar date and
// returns it. time.Date normalizes overflow (Feb 30 becomes Mar 2), so
// the check compares the normalized components against the inputs.
func validDate(year int, month time.Month, day int) (time.Time, bool) {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
