package procfs

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/olealgoritme/ramfuck/internal/target"
)

// File is a target.MemoryTarget backed by a single memory-mapped file:
// a core dump, a save-state blob, or any other flat binary snapshot a
// user wants to search and patch with the same expression language as
// a live process. Addresses are file offsets from the start of the
// mapping.
type File struct {
	f    *os.File
	data mmap.MMap
	name string
}

// OpenFile maps path read/write. Writes land in the page cache and are
// visible to other readers of the same mapping immediately; callers
// that need them on disk should call Flush.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	rdonly := false
	if err != nil {
		f, err = os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("procfs: open %s: %w", path, err)
		}
		rdonly = true
	}

	mode := mmap.RDWR
	if rdonly {
		mode = mmap.RDONLY
	}
	data, err := mmap.Map(f, mode, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("procfs: mmap %s: %w", path, err)
	}
	return &File{f: f, data: data, name: path}, nil
}

// AddressWidth always reports 64: a flat file has no inherent pointer
// width, so its offsets are treated as 64-bit addresses.
func (m *File) AddressWidth() int { return 64 }

func (m *File) Read(addr target.Address, buf []byte) error {
	start := int(addr)
	if start < 0 || start+len(buf) > len(m.data) {
		return &target.ReadError{Addr: addr, Size: len(buf), Err: fmt.Errorf("procfs: offset out of range (file size %d)", len(m.data))}
	}
	copy(buf, m.data[start:start+len(buf)])
	return nil
}

func (m *File) Write(addr target.Address, buf []byte) error {
	start := int(addr)
	if start < 0 || start+len(buf) > len(m.data) {
		return &target.WriteError{Addr: addr, Size: len(buf), Err: fmt.Errorf("procfs: offset out of range (file size %d)", len(m.data))}
	}
	copy(m.data[start:start+len(buf)], buf)
	return nil
}

// Pause and Resume are no-ops: a flat file has no execution to stop.
func (m *File) Pause() error  { return nil }
func (m *File) Resume() error { return nil }

// Regions reports the whole mapping as a single read-write region.
func (m *File) Regions() ([]target.Region, error) {
	return []target.Region{{
		Start: 0,
		Size:  uint64(len(m.data)),
		Prot:  target.Read | target.Write,
		Name:  m.name,
	}}, nil
}

// Flush writes dirty pages back to the underlying file.
func (m *File) Flush() error { return m.data.Flush() }

// Close unmaps the file and closes its descriptor.
func (m *File) Close() error {
	err := m.data.Unmap()
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
