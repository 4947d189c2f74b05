package procfs

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olealgoritme/ramfuck/internal/target"
)

// spawnSleeper starts a short-lived child we can safely pause, resume,
// and read /proc/<pid>/maps against without ever touching the test
// binary's own process.
func spawnSleeper(t *testing.T) int32 {
	t.Helper()
	cmd := exec.Command("/bin/sleep", "5")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return int32(cmd.Process.Pid)
}

func TestAttachAndRegionsOnRealProcess(t *testing.T) {
	pid := spawnSleeper(t)
	// Give the kernel a moment to populate /proc/<pid>/maps after exec.
	time.Sleep(50 * time.Millisecond)

	p, err := Attach(pid)
	require.NoError(t, err)
	defer p.Close()

	regions, err := p.Regions()
	require.NoError(t, err)
	require.NotEmpty(t, regions)

	var sawReadable bool
	for _, r := range regions {
		require.True(t, r.Size > 0)
		if r.Prot&target.Read != 0 {
			sawReadable = true
		}
	}
	require.True(t, sawReadable, "expected at least one readable region")
}

func TestPauseResumeOnRealProcess(t *testing.T) {
	pid := spawnSleeper(t)
	time.Sleep(50 * time.Millisecond)

	p, err := Attach(pid)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Pause())
	require.NoError(t, p.Pause()) // idempotent
	require.NoError(t, p.Resume())
	require.NoError(t, p.Resume()) // idempotent
}

func TestAttachUnknownPidFails(t *testing.T) {
	_, err := Attach(1 << 30)
	require.Error(t, err)
}

func TestFindByNameNoMatch(t *testing.T) {
	_, err := FindByName("definitely-not-a-real-process-name-xyz")
	require.Error(t, err)
}
