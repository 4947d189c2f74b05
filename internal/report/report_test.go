package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olealgoritme/ramfuck/internal/scan"
	"github.com/olealgoritme/ramfuck/internal/target"
	"github.com/olealgoritme/ramfuck/internal/value"
)

func TestHitListRendersAddressesAndValues(t *testing.T) {
	Color = false
	var buf bytes.Buffer
	HitList(&buf, []scan.Hit{
		{Addr: 0x1000, Type: value.S32},
		{Addr: 0x1008, Type: value.S32},
	}, []string{"42", "7"})

	out := buf.String()
	require.Contains(t, out, "0x00001000")
	require.Contains(t, out, "42")
	require.Contains(t, out, "0x00001008")
	require.Contains(t, out, "7")
}

func TestHitListHandlesMissingValues(t *testing.T) {
	Color = false
	var buf bytes.Buffer
	HitList(&buf, []scan.Hit{{Addr: 0x2000, Type: value.U8}}, nil)
	require.Contains(t, buf.String(), "???")
}

func TestRegionsRendersProtAndName(t *testing.T) {
	Color = false
	var buf bytes.Buffer
	Regions(&buf, []target.Region{
		{Start: 0x400000, Size: 0x1000, Prot: target.Read | target.Exec, Name: "/bin/app"},
	})
	out := buf.String()
	require.Contains(t, out, "r-x")
	require.Contains(t, out, "/bin/app")
}

func TestNarrowNameFoldsFullwidthCharacters(t *testing.T) {
	// U+FF41..U+FF5A are the fullwidth forms of "a".."z"; narrowing them
	// should yield the plain ASCII spelling.
	require.Equal(t, "app.exe", narrowName("ａｐｐ.ｅｘｅ"))
}

func TestRegionsNarrowsFullwidthRegionName(t *testing.T) {
	Color = false
	var buf bytes.Buffer
	Regions(&buf, []target.Region{
		{Start: 0x400000, Size: 0x1000, Prot: target.Read, Name: "ａｐｐ.ｅｘｅ"},
	})
	out := buf.String()
	require.Contains(t, out, "app.exe")
}
