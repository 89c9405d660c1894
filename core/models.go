package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Note IDs come from database sequences; entity IDs are content-based.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// NoteType identifies the granularity of an archived note.
type NoteType int

const (
	// NoteTypeHour is a fine-grained note covering roughly one hour.
	NoteTypeHour NoteType = iota + 1
	// NoteTypeDay is a coarse daily summary note.
	NoteTypeDay
)

// String returns the storage label for the note type.
func (t NoteType) String() string {
	switch t {
	case NoteTypeHour:
		return "hour"
	case NoteTypeDay:
		return "day"
	default:
		return "unknown"
	}
}

// NotePayload is the structured content of a note. All slice fields are
// non-nil after Normalize; optional fields default to empty.
type NotePayload struct {
	Summary    string
	Categories []string
	Entities   []string
	Activities []string
}

// Normalize fills nil slices with empty ones so downstream code never
// has to distinguish "absent" from "empty".
func (p *NotePayload) Normalize() {
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.Entities == nil {
		p.Entities = []string{}
	}
	if p.Activities == nil {
		p.Activities = []string{}
	}
}

// NoteRecord is an archived note. Records are written by the ingestion
// side and are read-only for retrieval. Start and End are inclusive and
// Start <= End holds for valid records.
type NoteRecord struct {
	Id         ID
	Type       NoteType
	Start      time.Time
	End        time.Time
	FileRef    string // Reference to the source file the note was built from
	Payload    NotePayload
	Entities   []EntityRef // Entity associations with strength scores
	Vector     []float32   // Embedding vector for semantic search (optional)
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Date returns the start of the calendar day the note belongs to, in UTC.
func (n *NoteRecord) Date() time.Time {
	s := n.Start.UTC()
	return time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
}

// EntityRecord is a canonical entity mentioned across notes.
type EntityRecord struct {
	Id            ID
	Type          string
	CanonicalName string
	Aliases       []string
	InsertedAt    time.Time
	UpdatedAt     time.Time
}

// Tuple returns a string representation of the entity as "(Type,CanonicalName)".
// This is used for generating deterministic IDs.
func (e *EntityRecord) Tuple() string {
	return "(" + e.Type + "," + e.CanonicalName + ")"
}

// EntityRef associates a note with an entity, carrying an association
// strength in [0,1].
type EntityRef struct {
	EntityId ID
	Strength float32
}

// NoteEntityRef is the reverse association, pointing from an entity back
// to a note that references it.
type NoteEntityRef struct {
	NoteId   ID
	Strength float32
}

// TimeRange is a resolved inclusive instant interval with a human label.
// Start <= End holds for all produced ranges.
type TimeRange struct {
	Start       time.Time
	End         time.Time
	Description string
	Confidence  float64
}

// Overlaps reports whether the range intersects [start, end].
func (r *TimeRange) Overlaps(start, end time.Time) bool {
	return !r.Start.After(end) && !r.End.Before(start)
}

// Contains reports whether t falls within the range.
func (r *TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Intersect returns the overlap of two ranges, or nil when they are disjoint.
// A nil other leaves the range unchanged.
func (r *TimeRange) Intersect(other *TimeRange) *TimeRange {
	if other == nil {
		out := *r
		return &out
	}
	start := r.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := r.End
	if other.End.Before(end) {
		end = other.End
	}
	if start.After(end) {
		return nil
	}
	return &TimeRange{Start: start, End: end, Description: r.Description, Confidence: r.Confidence}
}

// TimeParseResult is the outcome of parsing one time expression. It is
// created per parse call and never persisted.
type TimeParseResult struct {
	Range                *TimeRange
	Confidence           float64
	Ambiguous            bool
	ClarificationOptions []string // Ordered human labels, most recent candidate first
	RawExpression        string
}

// NoteMatch is one note in a result set. Distance is the raw similarity
// distance and is meaningful only for vector-derived matches; Score is
// in [0,1] with higher meaning better.
type NoteMatch struct {
	Note     *NoteRecord
	Distance float32
	Score    float32
}

// DayMatch groups one calendar day's results: the daily summary note (if
// any), a bounded list of hourly notes, and a blended relevance score.
type DayMatch struct {
	Date           time.Time // Start of the calendar day, UTC
	DailyNote      *NoteMatch
	HourlyNotes    []NoteMatch
	RelevanceScore float32
}

// SearchResult is the outcome of a flat search. Matches are ordered by
// descending score.
type SearchResult struct {
	Query             string
	Applied           *TimeRange
	Matches           []NoteMatch
	TotalSearched     int
	EmbeddingComputed bool
}

// HierarchicalResult is the outcome of a two-stage day/hour search.
// Days are ordered by descending relevance score and carry unique dates.
type HierarchicalResult struct {
	Query             string
	Applied           *TimeRange
	Days              []DayMatch
	TotalSearched     int
	EmbeddingComputed bool
}
