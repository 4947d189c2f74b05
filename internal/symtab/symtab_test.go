package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olealgoritme/ramfuck/internal/value"
)

func TestInsertLookup(t *testing.T) {
	tab := New()
	cell := NewCell(value.NewS32(42))
	require.NoError(t, tab.Insert("value", value.S32, cell))

	sym, ok := tab.Lookup("value")
	require.True(t, ok)
	require.Equal(t, value.S32, sym.Type)
	require.Equal(t, int32(42), sym.Storage.Load().S32())
}

func TestDuplicateNameRejected(t *testing.T) {
	tab := New()
	require.NoError(t, tab.Insert("addr", value.U32, NewCell(value.NewU32(0))))
	err := tab.Insert("addr", value.U32, NewCell(value.NewU32(0)))
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestUnknownIdentifier(t *testing.T) {
	tab := New()
	_, ok := tab.Lookup("nope")
	require.False(t, ok)
}

func TestNilTableLookupFails(t *testing.T) {
	var tab *Table
	_, ok := tab.Lookup("addr")
	require.False(t, ok)
}
