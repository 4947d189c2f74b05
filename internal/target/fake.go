package target

import "sort"

// Fake is an in-memory MemoryTarget backed by a sparse byte map, used
// by the eval, scan and shell tests. It is not a production
// MemoryTarget: Pause/Resume only record a flag that Paused reports,
// and Regions reports exactly the spans explicitly added via MapRegion.
type Fake struct {
	addrWidth int
	mem       map[Address]byte
	regions   []Region
	paused    bool
}

// NewFake returns an empty Fake target with the given address width
// (32 or 64).
func NewFake(addrWidth int) *Fake {
	return &Fake{addrWidth: addrWidth, mem: make(map[Address]byte)}
}

// MapRegion declares addr..addr+size as a region with protection prot and
// zero-fills its backing bytes if not already present.
func (f *Fake) MapRegion(addr Address, size uint64, prot Prot, name string) {
	f.regions = append(f.regions, Region{Start: addr, Size: size, Prot: prot, Name: name})
	for i := uint64(0); i < size; i++ {
		a := addr + Address(i)
		if _, ok := f.mem[a]; !ok {
			f.mem[a] = 0
		}
	}
}

// SetBytes writes buf starting at addr without going through the
// region-protection checks Write enforces, for test setup.
func (f *Fake) SetBytes(addr Address, buf []byte) {
	for i, b := range buf {
		f.mem[addr+Address(i)] = b
	}
}

func (f *Fake) regionFor(addr Address, size int) (Region, bool) {
	for _, r := range f.regions {
		if addr >= r.Start && uint64(addr-r.Start)+uint64(size) <= r.Size {
			return r, true
		}
	}
	return Region{}, false
}

func (f *Fake) Read(addr Address, buf []byte) error {
	r, ok := f.regionFor(addr, len(buf))
	if !ok || r.Prot&Read == 0 {
		return ErrUnreadable
	}
	for i := range buf {
		buf[i] = f.mem[addr+Address(i)]
	}
	return nil
}

func (f *Fake) Write(addr Address, buf []byte) error {
	r, ok := f.regionFor(addr, len(buf))
	if !ok || r.Prot&Write == 0 {
		return ErrUnwritable
	}
	for i, b := range buf {
		f.mem[addr+Address(i)] = b
	}
	return nil
}

func (f *Fake) Pause() error  { f.paused = true; return nil }
func (f *Fake) Resume() error { f.paused = false; return nil }
func (f *Fake) Paused() bool  { return f.paused }

func (f *Fake) Regions() ([]Region, error) {
	out := make([]Region, len(f.regions))
	copy(out, f.regions)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (f *Fake) AddressWidth() int { return f.addrWidth }
