// Package session implements the hit-list bookkeeping a shell session
// keeps around a Scanner: the current hit list, an undo/redo history of
// prior lists, and named saved searches. The original CLI's
// do_search/do_filter/do_undo/do_redo (original_source/src/cli.c) call
// into a ramfuck_set_hits/ramfuck_undo/ramfuck_redo trio that isn't
// itself part of this retrieval; this package reconstructs that
// contract from how cli.c's dispatcher uses it (a single "current hits"
// slot, replaced and made undoable by every search/filter/clear).
package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/olealgoritme/ramfuck/internal/scan"
)

// ErrNoHistory is returned by Undo/Redo when there is nothing to move
// to in that direction.
var ErrNoHistory = errors.New("session: no history available")

// ErrUnknownSearch is returned by Recall for a name that was never
// saved.
var ErrUnknownSearch = errors.New("session: unknown saved search")

// Session tracks one attach's worth of hit-list state: the current hit
// list plus an undo/redo history and a set of named saved searches a
// user can return to across multiple searches.
type Session struct {
	history []snapshot
	cursor  int // index into history of the current hit list; -1 if empty

	saved map[string]snapshot
}

type snapshot struct {
	expr string
	hits []scan.Hit
}

// New returns a Session with no hits and no history.
func New() *Session {
	return &Session{cursor: -1, saved: make(map[string]snapshot)}
}

// Hits returns the current hit list, or nil if none.
func (s *Session) Hits() []scan.Hit {
	if s.cursor < 0 {
		return nil
	}
	return s.history[s.cursor].hits
}

// Expr returns the expression that produced the current hit list.
func (s *Session) Expr() string {
	if s.cursor < 0 {
		return ""
	}
	return s.history[s.cursor].expr
}

// SetHits records a new current hit list, produced by evaluating expr,
// pushing it onto the undo history. Any redo history beyond the current
// cursor is discarded, the usual undo-stack rule: a fresh action
// invalidates a previously undone future.
func (s *Session) SetHits(expr string, hits []scan.Hit) {
	s.history = append(s.history[:s.cursor+1], snapshot{expr: expr, hits: hits})
	s.cursor = len(s.history) - 1
}

// Clear resets to zero hits, itself an undoable action (mirrors
// cli.c's "hits" command calling ramfuck_set_hits(ctx, NULL)).
func (s *Session) Clear() {
	s.SetHits("", nil)
}

// Undo moves the cursor back one step in history, returning the
// restored hit list.
func (s *Session) Undo() ([]scan.Hit, error) {
	if s.cursor <= 0 {
		return nil, ErrNoHistory
	}
	s.cursor--
	return s.Hits(), nil
}

// Redo moves the cursor forward one step, reversing a prior Undo.
func (s *Session) Redo() ([]scan.Hit, error) {
	if s.cursor < 0 || s.cursor+1 >= len(s.history) {
		return nil, ErrNoHistory
	}
	s.cursor++
	return s.Hits(), nil
}

// SavedSearch names a hit list a user has chosen to keep around beyond
// the undo/redo window (spec.md §2's "saved searches" collaborator).
type SavedSearch struct {
	ID   uuid.UUID
	Name string
	Expr string
	Hits []scan.Hit
}

// Save stores the current hit list under name, replacing any search
// previously saved under that name, and returns its identifier.
func (s *Session) Save(name string) (SavedSearch, error) {
	if s.cursor < 0 {
		return SavedSearch{}, fmt.Errorf("session: no current hits to save")
	}
	cur := s.history[s.cursor]
	s.saved[name] = cur
	return SavedSearch{ID: uuid.New(), Name: name, Expr: cur.expr, Hits: cur.hits}, nil
}

// Recall restores a previously saved search as the current hit list,
// pushing it onto the undo history like any other SetHits.
func (s *Session) Recall(name string) ([]scan.Hit, error) {
	snap, ok := s.saved[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSearch, name)
	}
	s.SetHits(snap.expr, snap.hits)
	return snap.hits, nil
}

// SavedNames returns the names of all currently saved searches, in no
// particular order.
func (s *Session) SavedNames() []string {
	names := make([]string, 0, len(s.saved))
	for n := range s.saved {
		names = append(names, n)
	}
	return names
}

// Forget deletes a saved search by name.
func (s *Session) Forget(name string) {
	delete(s.saved, name)
}
