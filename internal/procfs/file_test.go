package procfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olealgoritme/ramfuck/internal/target"
)

func TestFileTargetReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o600))

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Write(8, []byte{0xde, 0xad, 0xbe, 0xef}))

	got := make([]byte, 4)
	require.NoError(t, f.Read(8, got))
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got)

	regions, err := f.Regions()
	require.NoError(t, err)
	require.Len(t, regions, 1)
	require.EqualValues(t, 64, regions[0].Size)
	require.Equal(t, target.Read|target.Write, regions[0].Prot)
}

func TestFileTargetReadOutOfRangeFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 16), 0o600))

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 8)
	err = f.Read(12, buf)
	require.Error(t, err)
}

func TestFileTargetPauseResumeAreNoops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 4), 0o600))

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Pause())
	require.NoError(t, f.Resume())
}
