package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olealgoritme/ramfuck/internal/scan"
	"github.com/olealgoritme/ramfuck/internal/target"
)

func hits(addrs ...int) []scan.Hit {
	out := make([]scan.Hit, len(addrs))
	for i, a := range addrs {
		out[i] = scan.Hit{Addr: target.Address(0x1000 + a*4)}
	}
	return out
}

func TestSetHitsThenUndoRedo(t *testing.T) {
	s := New()
	require.Nil(t, s.Hits())

	s.SetHits("value == 1", hits(0, 1))
	require.Len(t, s.Hits(), 2)

	s.SetHits("value == 2", hits(0))
	require.Len(t, s.Hits(), 1)

	got, err := s.Undo()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "value == 1", s.Expr())

	got, err = s.Redo()
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = s.Redo()
	require.ErrorIs(t, err, ErrNoHistory)
}

func TestUndoAtStartFails(t *testing.T) {
	s := New()
	s.SetHits("value == 1", hits(0))
	_, err := s.Undo()
	require.ErrorIs(t, err, ErrNoHistory)
}

func TestNewSearchAfterUndoDropsRedoHistory(t *testing.T) {
	s := New()
	s.SetHits("a", hits(0))
	s.SetHits("b", hits(0, 1))
	_, err := s.Undo()
	require.NoError(t, err)

	s.SetHits("c", hits(2))
	require.Equal(t, "c", s.Expr())

	_, err = s.Redo()
	require.ErrorIs(t, err, ErrNoHistory)
}

func TestSaveAndRecall(t *testing.T) {
	s := New()
	s.SetHits("value == 1", hits(0, 1))

	saved, err := s.Save("candidates")
	require.NoError(t, err)
	require.Equal(t, "candidates", saved.Name)
	require.Contains(t, s.SavedNames(), "candidates")

	s.SetHits("value == 2", hits(3))
	require.Len(t, s.Hits(), 1)

	got, err := s.Recall("candidates")
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestRecallUnknownFails(t *testing.T) {
	s := New()
	_, err := s.Recall("nope")
	require.ErrorIs(t, err, ErrUnknownSearch)
}

func TestSaveWithNoHitsFails(t *testing.T) {
	s := New()
	_, err := s.Save("x")
	require.Error(t, err)
}

func TestClearIsUndoable(t *testing.T) {
	s := New()
	s.SetHits("value == 1", hits(0))
	s.Clear()
	require.Nil(t, s.Hits())

	got, err := s.Undo()
	require.NoError(t, err)
	require.Len(t, got, 1)
}
