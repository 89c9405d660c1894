package search

import (
	"github.com/poiesic/recall/core"
)

// BuildContext flattens a hierarchical result into a single list of at most
// budget notes, breadth-first: every day's summary note comes before any
// hourly note, and hourly notes are taken one per day in rounds. A recall
// prompt built from the front of the list therefore covers every relevant
// day before going deep on any one of them.
func BuildContext(result *core.HierarchicalResult, budget int) []core.NoteMatch {
	if result == nil || len(result.Days) == 0 || budget <= 0 {
		return nil
	}

	out := make([]core.NoteMatch, 0, budget)
	for _, day := range result.Days {
		if day.DailyNote == nil {
			continue
		}
		out = append(out, *day.DailyNote)
		if len(out) == budget {
			return out
		}
	}

	for round := 0; ; round++ {
		added := false
		for _, day := range result.Days {
			if round >= len(day.HourlyNotes) {
				continue
			}
			added = true
			out = append(out, day.HourlyNotes[round])
			if len(out) == budget {
				return out
			}
		}
		if !added {
			return out
		}
	}
}
