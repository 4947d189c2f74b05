package ast

import "github.com/davecgh/go-spew/spew"

// Dump deep-prints node's concrete structure field by field, for the
// shell's "--debug-dump" explain variant and for test failure messages
// where the RPN string alone doesn't show which concrete node type
// produced it.
func Dump(node Node) string {
	return spew.Sdump(node)
}
