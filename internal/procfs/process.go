// Package procfs implements target.MemoryTarget against a live Linux
// process: region enumeration from /proc/<pid>/maps, reads and writes
// through /proc/<pid>/mem, and pause/resume via PTRACE_ATTACH/
// PTRACE_DETACH. It is the concrete half of spec.md §6's MemoryTarget
// seam; internal/target defines the interface and an in-memory fake the
// core's own tests use instead of this package.
package procfs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/process"
	"golang.org/x/sys/unix"

	"github.com/olealgoritme/ramfuck/internal/log"
	"github.com/olealgoritme/ramfuck/internal/target"
)

var procLog = log.Root.With("component", "procfs")

// Process is a target.MemoryTarget backed by a running process's
// /proc/<pid>/{mem,maps}.
type Process struct {
	pid    int32
	mem    *os.File
	width  int
	paused bool
}

// Attach opens pid's memory file for reading and writing, falling back
// to read-only when write access is refused. The caller
// must have ptrace permission over pid (CAP_SYS_PTRACE, or be its
// parent/owner under default yama ptrace_scope rules).
func Attach(pid int32) (*Process, error) {
	mem, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDWR, 0)
	if err != nil {
		mem, err = os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("procfs: open /proc/%d/mem: %w", pid, err)
		}
	}
	p := &Process{pid: pid, mem: mem, width: addressWidth()}
	procLog.Info("attached", "pid", pid, "addr_width", p.width)
	return p, nil
}

// FindByName attaches to the first running process gopsutil reports
// with the given executable name.
func FindByName(name string) (*Process, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("procfs: enumerate processes: %w", err)
	}
	for _, proc := range procs {
		n, err := proc.Name()
		if err != nil {
			continue
		}
		if n == name {
			return Attach(proc.Pid)
		}
	}
	return nil, fmt.Errorf("procfs: no running process named %q", name)
}

func addressWidth() int {
	if unix.Getpagesize() > 0 {
		// Every Linux target this module runs on is either a native
		// 64-bit kernel or a 32-bit one; uintptr's width here reflects
		// this binary's own build, which is the address width this
		// module was built to talk to.
		return strconv.IntSize
	}
	return 64
}

func (p *Process) AddressWidth() int { return p.width }

// Read fills buf from addr via pread(/proc/<pid>/mem, addr).
func (p *Process) Read(addr target.Address, buf []byte) error {
	n, err := p.mem.ReadAt(buf, int64(addr))
	if err != nil || n != len(buf) {
		return &target.ReadError{Addr: addr, Size: len(buf), Err: firstErr(err, n, len(buf))}
	}
	return nil
}

// Write stores buf at addr via pwrite(/proc/<pid>/mem, addr).
func (p *Process) Write(addr target.Address, buf []byte) error {
	n, err := p.mem.WriteAt(buf, int64(addr))
	if err != nil || n != len(buf) {
		return &target.WriteError{Addr: addr, Size: len(buf), Err: firstErr(err, n, len(buf))}
	}
	return nil
}

func firstErr(err error, got, want int) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("short transfer: %d of %d bytes", got, want)
}

// Pause stops the target via PTRACE_ATTACH and waits for the resulting
// stop to land. A plain SIGSTOP isn't enough on current kernels: Write
// against /proc/<pid>/mem for a process this program neither forked nor
// is already tracing fails ptrace_may_access's scope check regardless
// of the target's run state, so Poke needs the tracer relationship
// PTRACE_ATTACH establishes, not just a stopped task.
func (p *Process) Pause() error {
	if p.paused {
		return nil
	}
	if err := unix.PtraceAttach(int(p.pid)); err != nil {
		return fmt.Errorf("procfs: PTRACE_ATTACH pid %d: %w", p.pid, err)
	}
	var status unix.WaitStatus
	if _, err := unix.Wait4(int(p.pid), &status, 0, nil); err != nil {
		return fmt.Errorf("procfs: wait for pid %d to stop: %w", p.pid, err)
	}
	p.paused = true
	return nil
}

// Resume reverses Pause via PTRACE_DETACH, which both lets the target
// run again and releases the tracer relationship; PTRACE_CONT alone
// would leave it traced and stop it again at its next signal.
func (p *Process) Resume() error {
	if !p.paused {
		return nil
	}
	if err := unix.PtraceDetach(int(p.pid)); err != nil {
		return fmt.Errorf("procfs: PTRACE_DETACH pid %d: %w", p.pid, err)
	}
	p.paused = false
	return nil
}

// Close releases the open /proc/<pid>/mem file descriptor, detaching
// the tracer first if Pause was never matched by a Resume.
func (p *Process) Close() error {
	if p.paused {
		_ = unix.PtraceDetach(int(p.pid))
		p.paused = false
	}
	return p.mem.Close()
}

// Regions parses /proc/<pid>/maps into target.Region values.
func (p *Process) Regions() ([]target.Region, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", p.pid))
	if err != nil {
		return nil, fmt.Errorf("procfs: open /proc/%d/maps: %w", p.pid, err)
	}
	defer f.Close()

	var regions []target.Region
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		r, ok := parseMapsLine(sc.Text())
		if ok {
			regions = append(regions, r)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("procfs: read /proc/%d/maps: %w", p.pid, err)
	}
	return regions, nil
}

// parseMapsLine decodes one /proc/<pid>/maps line, e.g.:
//
//	7f2e3a000000-7f2e3a021000 r--p 00000000 08:01 131085  /lib/libc.so.6
func parseMapsLine(line string) (target.Region, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return target.Region{}, false
	}
	bounds := strings.SplitN(fields[0], "-", 2)
	if len(bounds) != 2 {
		return target.Region{}, false
	}
	start, err := strconv.ParseUint(bounds[0], 16, 64)
	if err != nil {
		return target.Region{}, false
	}
	end, err := strconv.ParseUint(bounds[1], 16, 64)
	if err != nil {
		return target.Region{}, false
	}

	var prot target.Prot
	perms := fields[1]
	if strings.Contains(perms, "r") {
		prot |= target.Read
	}
	if strings.Contains(perms, "w") {
		prot |= target.Write
	}
	if strings.Contains(perms, "x") {
		prot |= target.Exec
	}

	name := ""
	if len(fields) >= 6 {
		name = strings.Join(fields[5:], " ")
	}

	return target.Region{
		Start: target.Address(start),
		Size:  end - start,
		Prot:  prot,
		Name:  name,
	}, true
}
