package search

import (
	"github.com/poiesic/recall/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterVectorSearch(ids []uint64)
	AfterLexicalSearch(ids []uint64)
	DegradedToSingleSource(reason string)
	AfterNoteRetrieval(notes []*core.NoteRecord)
	VectorAndLexicalHit(note *core.NoteRecord)
	VectorHit(note *core.NoteRecord)
	LexicalHit(note *core.NoteRecord)
	Finish(matches []core.NoteMatch)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                        {}
func (n *noopMonitor) AfterVectorSearch(_ []uint64)          {}
func (n *noopMonitor) AfterLexicalSearch(_ []uint64)         {}
func (n *noopMonitor) DegradedToSingleSource(_ string)       {}
func (n *noopMonitor) AfterNoteRetrieval(_ []*core.NoteRecord) {}
func (n *noopMonitor) VectorAndLexicalHit(_ *core.NoteRecord)  {}
func (n *noopMonitor) VectorHit(_ *core.NoteRecord)            {}
func (n *noopMonitor) LexicalHit(_ *core.NoteRecord)           {}
func (n *noopMonitor) Finish(_ []core.NoteMatch)               {}
