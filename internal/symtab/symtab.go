// Package symtab implements the ordered name -> (type, storage) binding
// table the parser and evaluator consult for identifiers (spec.md §4.B).
//
// A Table's storage pointers are borrowed: the table never copies or
// owns the backing bytes behind a Symbol, and the caller must guarantee
// that storage outlives any AST built against the table.
package symtab

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/olealgoritme/ramfuck/internal/value"
)

// ErrDuplicateName is returned by Insert when name is already bound.
var ErrDuplicateName = errors.New("symtab: duplicate name")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// MaxNameLength is the identifier length bound spec.md §3 fixes at 63
// bytes.
const MaxNameLength = 63

// Storage is the borrowed backing cell a symbol reads from and writes
// to. It is a pointer-sized indirection rather than a raw unsafe
// pointer so the table works uniformly whether the backing bytes live
// in a Go-owned scan buffer or are synthesised on the fly (e.g. the
// scanner's per-address "addr"/"value" bindings).
type Storage interface {
	Load() value.Value
	Store(value.Value)
}

// CellStorage is the common Storage implementation: a single mutable
// value.Value cell owned by the caller (typically a local variable in
// the scanner's per-address loop).
type CellStorage struct {
	Cell value.Value
}

func (c *CellStorage) Load() value.Value   { return c.Cell }
func (c *CellStorage) Store(v value.Value) { c.Cell = v }

// NewCell returns a Storage bound to an initial value, for binding a
// name that doesn't already have caller-owned backing.
func NewCell(v value.Value) *CellStorage { return &CellStorage{Cell: v} }

// Symbol is the (type, storage) pair a name resolves to.
type Symbol struct {
	Name    string
	Type    value.Type
	Storage Storage
}

// Table is an ordered name -> Symbol map. Insertion order is preserved
// for deterministic iteration through Names; Lookup goes through a map
// keyed by name.
type Table struct {
	order []string
	byName map[string]*Symbol
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{byName: make(map[string]*Symbol)}
}

// Insert binds name to (typ, storage). Returns ErrDuplicateName if name
// is already bound in this table.
func (t *Table) Insert(name string, typ value.Type, storage Storage) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("symtab: %q is not a valid identifier", name)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("symtab: identifier %q exceeds %d bytes", name, MaxNameLength)
	}
	if _, exists := t.byName[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	t.order = append(t.order, name)
	t.byName[name] = &Symbol{Name: name, Type: typ, Storage: storage}
	return nil
}

// Lookup resolves name to its Symbol, if bound.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	if t == nil {
		return nil, false
	}
	s, ok := t.byName[name]
	return s, ok
}

// LookupSpan resolves the identifier named by a borrowed byte slice,
// avoiding an allocation for every identifier the lexer scans over
// (mirrors spec.md §4.B's name_lookup_span).
func (t *Table) LookupSpan(src []byte) (*Symbol, bool) {
	return t.Lookup(string(src))
}

// Names returns the bound names in insertion order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
