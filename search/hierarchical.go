package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/poiesic/recall/core"
)

const (
	// DefaultMaxDays and DefaultMaxHoursPerDay bound a hierarchical
	// result when the caller passes zero.
	DefaultMaxDays        = 5
	DefaultMaxHoursPerDay = 3

	// dayWeight and hourWeight blend a day note's score with the average
	// of its hourly drill-down scores.
	dayWeight  = 0.6
	hourWeight = 0.4
)

// HierarchicalSearch runs a two-stage day/hour search: first rank daily
// summary notes, then drill into each retained day for its most relevant
// hourly notes. Each calendar day appears at most once in the result. When
// no daily note matches but a time filter is present, the hour notes inside
// the filter are grouped by date instead so the window still produces
// results.
func (s *Searcher) HierarchicalSearch(ctx context.Context, query string, filter *core.TimeRange, maxDays, maxHoursPerDay int) (*core.HierarchicalResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	if maxHoursPerDay <= 0 {
		maxHoursPerDay = DefaultMaxHoursPerDay
	}

	dayResult, err := s.Search(ctx, query, filter, core.NoteTypeDay, maxDays*2, 0)
	if err != nil {
		return nil, err
	}

	result := &core.HierarchicalResult{
		Query:             query,
		Applied:           filter,
		TotalSearched:     dayResult.TotalSearched,
		EmbeddingComputed: dayResult.EmbeddingComputed,
	}

	if len(dayResult.Matches) == 0 {
		if filter != nil {
			days, searched, err := s.hourFallback(ctx, query, filter, maxDays, maxHoursPerDay)
			if err != nil {
				return nil, err
			}
			result.Days = days
			result.TotalSearched += searched
		}
		return result, nil
	}

	// Dedup by calendar date; the best-scoring day note for a date wins.
	seen := make(map[time.Time]bool, len(dayResult.Matches))
	days := make([]core.DayMatch, 0, maxDays)
	for _, match := range dayResult.Matches {
		date := startOfDay(match.Note.Start)
		if seen[date] {
			continue
		}
		seen[date] = true
		dayNote := match
		days = append(days, core.DayMatch{
			Date:           date,
			DailyNote:      &dayNote,
			RelevanceScore: match.Score,
		})
		if len(days) == maxDays {
			break
		}
	}

	s.drillIntoDays(ctx, query, filter, days, maxHoursPerDay)

	for i := range days {
		days[i].RelevanceScore = blendScores(&days[i])
	}
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].RelevanceScore > days[j].RelevanceScore
	})

	result.Days = days
	return result, nil
}

// drillIntoDays runs the per-day hourly searches concurrently on the worker
// pool. Each task writes only its own slot so no locking is needed beyond
// the join.
func (s *Searcher) drillIntoDays(ctx context.Context, query string, filter *core.TimeRange, days []core.DayMatch, maxHoursPerDay int) {
	var wg sync.WaitGroup
	for i := range days {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			s.drillIntoDay(ctx, query, filter, &days[i], maxHoursPerDay)
		}
		if err := s.pool.Submit(task); err != nil {
			// Pool saturated or released; run inline rather than drop
			// the day's drill-down.
			task()
		}
	}
	wg.Wait()
}

// drillIntoDay fills in one day's hourly notes: a flat hour-note search
// constrained to the day's range intersected with the caller's filter.
func (s *Searcher) drillIntoDay(ctx context.Context, query string, filter *core.TimeRange, day *core.DayMatch, maxHoursPerDay int) {
	dayRange := &core.TimeRange{
		Start:       day.Date,
		End:         day.Date.Add(24*time.Hour - time.Nanosecond),
		Description: day.Date.Format("2006-01-02"),
	}
	if filter != nil {
		dayRange = filter.Intersect(dayRange)
		if dayRange == nil {
			return
		}
	}

	hourResult, err := s.Search(ctx, query, dayRange, core.NoteTypeHour, maxHoursPerDay, 0)
	if err != nil {
		s.logger.Warn("hourly drill-down failed", "date", day.Date, "err", err)
		return
	}
	day.HourlyNotes = hourResult.Matches
}

// hourFallback handles the case where no daily note matched but the caller
// supplied a time window: search hour notes within the window and group
// them by calendar date.
func (s *Searcher) hourFallback(ctx context.Context, query string, filter *core.TimeRange, maxDays, maxHoursPerDay int) ([]core.DayMatch, int, error) {
	hourResult, err := s.Search(ctx, query, filter, core.NoteTypeHour, maxDays*maxHoursPerDay, 0)
	if err != nil {
		return nil, 0, err
	}
	if len(hourResult.Matches) == 0 {
		return nil, hourResult.TotalSearched, nil
	}

	byDate := make(map[time.Time]*core.DayMatch)
	order := make([]time.Time, 0)
	for _, match := range hourResult.Matches {
		date := startOfDay(match.Note.Start)
		day, ok := byDate[date]
		if !ok {
			day = &core.DayMatch{Date: date}
			byDate[date] = day
			order = append(order, date)
		}
		if len(day.HourlyNotes) < maxHoursPerDay {
			day.HourlyNotes = append(day.HourlyNotes, match)
		}
	}

	days := make([]core.DayMatch, 0, len(order))
	for _, date := range order {
		day := byDate[date]
		day.RelevanceScore = averageScore(day.HourlyNotes)
		days = append(days, *day)
	}
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].RelevanceScore > days[j].RelevanceScore
	})
	if len(days) > maxDays {
		days = days[:maxDays]
	}
	return days, hourResult.TotalSearched, nil
}

// GetDayContext returns everything archived for one calendar day: the day
// summary (if present) and all hour notes in chronological order. Scores
// are fixed at 1.0 since this is a lookup, not a ranking. Returns nil when
// the day holds no notes.
func (s *Searcher) GetDayContext(ctx context.Context, date time.Time) (*core.DayMatch, error) {
	dayStart := startOfDay(date)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	notes, err := s.noteRepository.GetNotesByDateRange(ctx, dayStart, dayEnd, 0)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, nil
	}

	day := &core.DayMatch{Date: dayStart, RelevanceScore: 1.0}
	for _, note := range notes {
		match := core.NoteMatch{Note: note, Score: 1.0}
		if note.Type == core.NoteTypeDay {
			if day.DailyNote == nil {
				dayNote := match
				day.DailyNote = &dayNote
			}
			continue
		}
		day.HourlyNotes = append(day.HourlyNotes, match)
	}
	return day, nil
}

// blendScores combines a day note's score with its hourly drill-down.
func blendScores(day *core.DayMatch) float32 {
	dayScore := float32(0)
	if day.DailyNote != nil {
		dayScore = day.DailyNote.Score
	}
	if len(day.HourlyNotes) == 0 {
		return dayScore
	}
	return dayWeight*dayScore + hourWeight*averageScore(day.HourlyNotes)
}

func averageScore(matches []core.NoteMatch) float32 {
	if len(matches) == 0 {
		return 0
	}
	var sum float32
	for _, match := range matches {
		sum += match.Score
	}
	return sum / float32(len(matches))
}

// startOfDay truncates to midnight UTC.
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
