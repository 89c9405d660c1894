package search

import (
	"context"
	"sort"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
	"golang.org/x/sync/errgroup"
)

// HybridSearch fuses vector similarity with keyword ranking. When both
// sources return results the fused score is Vector*vectorScore +
// Lexical*lexicalScore, with a source that missed a particular note
// contributing zero. When only one source is available its scores pass
// through unweighted. Without a configured lexical index this is equivalent
// to Search.
func (s *Searcher) HybridSearch(ctx context.Context, query string, filter *core.TimeRange, noteType core.NoteType, limit int, minScore float32) (*core.SearchResult, error) {
	return s.HybridSearchWithMonitor(ctx, query, filter, noteType, limit, minScore, &noopMonitor{})
}

// HybridSearchWithMonitor is HybridSearch with observability hooks.
func (s *Searcher) HybridSearchWithMonitor(ctx context.Context, query string, filter *core.TimeRange, noteType core.NoteType, limit int, minScore float32, monitor SearchMonitor) (*core.SearchResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if s.lexicalIndex == nil {
		return s.Search(ctx, query, filter, noteType, limit, minScore)
	}
	if limit <= 0 {
		limit = 10
	}
	if minScore <= 0 {
		minScore = s.minScore
	}

	monitor.Start(query)

	result := &core.SearchResult{
		Query:   query,
		Applied: filter,
	}

	fetchLimit := limit
	if filter != nil {
		fetchLimit = limit * overFetchFactor
	}

	// Both branches run to completion and record their own outcome; a
	// failure on one side must not cancel the other, since fusion decides
	// afterwards how to degrade.
	var (
		vectorMatches []*core.NoteMatch
		vectorErr     error
		embedFailed   bool
		lexicalHits   []lexical.Hit
		lexicalErr    error
	)

	var group errgroup.Group
	group.Go(func() error {
		vector, err := s.embedQuery(ctx, query)
		if err != nil {
			embedFailed = true
			vectorErr = err
			return nil
		}
		vectorMatches, vectorErr = s.noteRepository.FindNearest(ctx, vector, noteType, fetchLimit)
		return nil
	})
	group.Go(func() error {
		lexicalHits, lexicalErr = s.lexicalIndex.Search(ctx, query, noteType, fetchLimit)
		return nil
	})
	_ = group.Wait()

	result.EmbeddingComputed = !embedFailed

	if vectorErr != nil {
		if embedFailed {
			s.logger.Warn("embedding unavailable, degrading to keyword search", "query", query, "err", vectorErr)
			monitor.DegradedToSingleSource("embedding unavailable")
		} else {
			s.logger.Error("vector search failed, degrading to keyword search", "err", vectorErr)
			monitor.DegradedToSingleSource("vector store unavailable")
		}
	}
	if lexicalErr != nil {
		s.logger.Warn("keyword search failed, degrading to vector search", "query", query, "err", lexicalErr)
		monitor.DegradedToSingleSource("lexical index unavailable")
	}
	if vectorErr != nil && lexicalErr != nil {
		s.logger.Error("both search sources unavailable", "query", query)
		return result, nil
	}

	vectorScores := make(map[core.ID]float32, len(vectorMatches))
	vectorNotes := make(map[core.ID]*core.NoteRecord, len(vectorMatches))
	vectorIDs := make([]uint64, 0, len(vectorMatches))
	for _, match := range vectorMatches {
		vectorScores[match.Note.Id] = match.Score
		vectorNotes[match.Note.Id] = match.Note
		vectorIDs = append(vectorIDs, uint64(match.Note.Id))
	}
	monitor.AfterVectorSearch(vectorIDs)

	lexicalScores := make(map[core.ID]float32, len(lexicalHits))
	lexicalIDs := make([]uint64, 0, len(lexicalHits))
	for _, hit := range lexicalHits {
		lexicalScores[hit.NoteID] = hit.Score
		lexicalIDs = append(lexicalIDs, uint64(hit.NoteID))
	}
	monitor.AfterLexicalSearch(lexicalIDs)

	// Notes known only by their lexical hit need resolving against the
	// store before scoring.
	missing := make([]core.ID, 0, len(lexicalScores))
	for id := range lexicalScores {
		if _, ok := vectorNotes[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		notes, err := s.noteRepository.GetNotes(ctx, missing...)
		if err != nil {
			s.logger.Error("note store unavailable", "err", err)
			return result, nil
		}
		monitor.AfterNoteRetrieval(notes)
		for _, note := range notes {
			vectorNotes[note.Id] = note
		}
	}

	// A side that failed or found nothing does not participate in
	// weighting: the surviving side's scores pass through unchanged so a
	// degraded query is not penalized for the missing signal.
	vectorHasResults := vectorErr == nil && len(vectorMatches) > 0
	lexicalHasResults := lexicalErr == nil && len(lexicalHits) > 0
	bothSources := vectorHasResults && lexicalHasResults

	matches := make([]core.NoteMatch, 0, len(vectorNotes))
	for id, note := range vectorNotes {
		vScore, inVector := vectorScores[id]
		lScore, inLexical := lexicalScores[id]

		var score float32
		switch {
		case bothSources:
			score = s.weights.Vector*vScore + s.weights.Lexical*lScore
		case vectorHasResults:
			score = vScore
		default:
			score = lScore
		}

		switch {
		case inVector && inLexical:
			monitor.VectorAndLexicalHit(note)
		case inVector:
			monitor.VectorHit(note)
		case inLexical:
			monitor.LexicalHit(note)
		}

		if filter != nil && !filter.Overlaps(note.Start, note.End) {
			continue
		}
		if score < minScore {
			continue
		}
		matches = append(matches, core.NoteMatch{Note: note, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	result.Matches = matches
	result.TotalSearched = len(vectorNotes)
	monitor.Finish(matches)
	return result, nil
}
