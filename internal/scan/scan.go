// Package scan implements the expression-driven candidate-address walk
// spec.md §4.I describes: compile an expression once against "addr" and
// "value" bindings, then evaluate it per candidate address over a
// target's regions, recording the addresses where it comes out
// non-zero. search, filter, peek and poke (internal/shell) are all this
// one mechanism used differently (original_source/src/cli.c's
// do_search/do_filter/do_peek/do_poke are one thin dispatcher over the
// same evaluation core).
package scan

import (
	"context"
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/olealgoritme/ramfuck/internal/ast"
	"github.com/olealgoritme/ramfuck/internal/eval"
	"github.com/olealgoritme/ramfuck/internal/log"
	"github.com/olealgoritme/ramfuck/internal/opt"
	"github.com/olealgoritme/ramfuck/internal/parser"
	"github.com/olealgoritme/ramfuck/internal/symtab"
	"github.com/olealgoritme/ramfuck/internal/target"
	"github.com/olealgoritme/ramfuck/internal/value"
)

var scanLog = log.Root.With("component", "scan")

// Hit is one recorded candidate address from a completed scan, tagged
// with the element type it was found at (spec.md §4.I binds "value" at
// this type).
type Hit struct {
	Addr target.Address
	Type value.Type
}

// Options configures a Scanner.
type Options struct {
	// ElementType is the type bound to "value" at each candidate
	// address; its size also determines the read width and the
	// default stride.
	ElementType value.Type

	// Align is the candidate-address stride in bytes. Zero means use
	// ElementType's natural size (original_source/src/mem.c's
	// region-walk advances this way instead of scanning byte by byte).
	Align int

	// Parallel scans regions concurrently, bounded by MaxWorkers, via
	// golang.org/x/sync's errgroup. Hits are still returned in region
	// order with addresses ascending within a region: each region's
	// hits are collected independently and then concatenated in region
	// order, so parallelism never reorders the result (spec.md §5's
	// ordering invariant).
	Parallel   bool
	MaxWorkers int

	// RegionCache bounds the hashicorp/golang-lru cache of previously
	// enumerated target.Region slices, keyed by a generation counter
	// the caller bumps on Invalidate. Zero disables caching.
	RegionCache int

	// RateLimit caps the aggregate number of target reads per second
	// across every worker a Run spends against the same live process;
	// zero disables throttling. Parallel workers share one
	// golang.org/x/time/rate.Limiter rather than one each, since the
	// budget is against the target's own /proc/<pid>/mem, not per
	// goroutine.
	RateLimit float64
	RateBurst int
}

// Scanner compiles an expression once and evaluates it against a
// target's regions or a prior hit list.
type Scanner struct {
	mem     target.MemoryTarget
	tab     *symtab.Table
	addrSym *symtab.CellStorage
	valSym  *symtab.CellStorage
	opts    Options

	regionCache *lru.Cache
	generation  int
	limiter     *rate.Limiter
}

// New compiles expr against a table of its own that holds base's
// bindings plus fresh "addr" and "value" placeholders, so callers' own
// bindings are visible to the expression without being mutated by the
// scan's per-address writes. If base already binds "addr" or "value",
// New fails with a duplicate-name error.
func New(mem target.MemoryTarget, base *symtab.Table, expr string, opts Options) (*Scanner, ast.Node, []error) {
	if opts.Align <= 0 {
		opts.Align = value.Size(opts.ElementType, mem.AddressWidth())
	}
	addrType := value.U64
	if mem.AddressWidth() == 32 {
		addrType = value.U32
	}

	tab := symtab.New()
	for _, name := range base.Names() {
		sym, _ := base.Lookup(name)
		tab.Insert(name, sym.Type, sym.Storage)
	}
	addrCell := symtab.NewCell(zeroOf(addrType))
	valCell := symtab.NewCell(zeroOf(opts.ElementType))
	if err := tab.Insert("addr", addrType, addrCell); err != nil {
		return nil, nil, []error{err}
	}
	if err := tab.Insert("value", opts.ElementType, valCell); err != nil {
		return nil, nil, []error{err}
	}

	root, errs := parser.Parse(expr, tab)
	if len(errs) > 0 {
		return nil, nil, errs
	}
	root = opt.Optimize(root)

	var cache *lru.Cache
	if opts.RegionCache > 0 {
		cache, _ = lru.New(opts.RegionCache)
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Scanner{
		mem:         mem,
		tab:         tab,
		addrSym:     addrCell,
		valSym:      valCell,
		opts:        opts,
		regionCache: cache,
		limiter:     limiter,
	}, root, nil
}

func zeroOf(t value.Type) value.Value {
	v, _ := value.CastTo(value.NewS32(0), t)
	return v
}

// Invalidate drops any cached region enumeration, forcing the next Run
// to re-query the target.
func (s *Scanner) Invalidate() { s.generation++ }

func (s *Scanner) regions() ([]target.Region, error) {
	if s.regionCache != nil {
		if v, ok := s.regionCache.Get(s.generation); ok {
			return v.([]target.Region), nil
		}
	}
	regions, err := s.mem.Regions()
	if err != nil {
		return nil, err
	}
	if s.regionCache != nil {
		s.regionCache.Add(s.generation, regions)
	}
	return regions, nil
}

// Run evaluates root over every candidate address in the target's
// readable regions and returns the addresses where it comes out
// non-zero, in region order with ascending addresses within a region
// (spec.md §5).
func (s *Scanner) Run(ctx context.Context, root ast.Node) ([]Hit, error) {
	regions, err := s.regions()
	if err != nil {
		return nil, err
	}

	readable := make([]target.Region, 0, len(regions))
	for _, r := range regions {
		if r.Prot&target.Read != 0 {
			readable = append(readable, r)
		}
	}
	sort.Slice(readable, func(i, j int) bool { return readable[i].Start < readable[j].Start })

	if !s.opts.Parallel || len(readable) <= 1 {
		var hits []Hit
		for _, r := range readable {
			rh, err := s.scanRegion(ctx, root, r)
			if err != nil {
				return nil, err
			}
			hits = append(hits, rh...)
		}
		return hits, nil
	}
	return s.runParallel(ctx, root, readable)
}

func (s *Scanner) runParallel(ctx context.Context, root ast.Node, regions []target.Region) ([]Hit, error) {
	workers := s.opts.MaxWorkers
	if workers <= 0 {
		workers = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make([][]Hit, len(regions))
	for i, r := range regions {
		i, r := i, r
		g.Go(func() error {
			// Each worker evaluates against its own Scanner clone: the
			// AST's VarLeaf nodes resolve through s.tab, whose addr/value
			// cells would otherwise race across goroutines.
			worker := s.clone()
			hits, err := worker.scanRegion(gctx, root, r)
			if err != nil {
				return err
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var hits []Hit
	for _, rh := range results {
		hits = append(hits, rh...)
	}
	return hits, nil
}

// clone returns a Scanner with its own addr/value storage cells bound
// into a fresh table that otherwise shares the parent's non-addr/value
// bindings, so parallel region workers never write through the same
// cell.
func (s *Scanner) clone() *Scanner {
	tab := symtab.New()
	for _, name := range s.tab.Names() {
		if name == "addr" || name == "value" {
			continue
		}
		sym, _ := s.tab.Lookup(name)
		tab.Insert(name, sym.Type, sym.Storage)
	}
	addrSym, _ := s.tab.Lookup("addr")
	valSym, _ := s.tab.Lookup("value")
	addrCell := symtab.NewCell(addrSym.Storage.Load())
	valCell := symtab.NewCell(valSym.Storage.Load())
	tab.Insert("addr", addrSym.Type, addrCell)
	tab.Insert("value", valSym.Type, valCell)
	return &Scanner{mem: s.mem, tab: tab, addrSym: addrCell, valSym: valCell, opts: s.opts, limiter: s.limiter}
}

func (s *Scanner) scanRegion(ctx context.Context, root ast.Node, r target.Region) ([]Hit, error) {
	width := value.Size(s.opts.ElementType, s.mem.AddressWidth())
	if width <= 0 || r.Size < uint64(width) {
		return nil, nil
	}

	var hits []Hit
	buf := make([]byte, width)
	addrType := s.addrSym.Load().Type
	ev := eval.New(s.mem)

	last := uint64(r.Size) - uint64(width)
	for off := uint64(0); off <= last; off += uint64(s.opts.Align) {
		select {
		case <-ctx.Done():
			return hits, ctx.Err()
		default:
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return hits, err
			}
		}

		addr := r.Start + target.Address(off)
		if err := s.mem.Read(addr, buf); err != nil {
			continue // spec.md §4.I: skip the address if the read fails
		}

		addrVal, _ := value.CastTo(value.NewU64(uint64(addr)), addrType)
		s.addrSym.Store(addrVal)
		s.valSym.Store(eval.DecodeLittleEndian(s.opts.ElementType, buf))

		out, err := ev.Eval(root)
		if err != nil {
			scanLog.Warn("skipping address after eval error", "addr", addr, "err", err)
			continue
		}
		if !value.Promote(out).IsZero() {
			hits = append(hits, Hit{Addr: addr, Type: s.opts.ElementType})
		}
	}
	return hits, nil
}

// Filter re-evaluates root against only the addresses already in hits,
// preserving their order (spec.md §5's "filter preserves the order of
// the input hit list").
func (s *Scanner) Filter(ctx context.Context, root ast.Node, hits []Hit) ([]Hit, error) {
	ev := eval.New(s.mem)
	addrType := s.addrSym.Load().Type

	var kept []Hit
	buf := make([]byte, value.Size(s.opts.ElementType, s.mem.AddressWidth()))
	for _, h := range hits {
		select {
		case <-ctx.Done():
			return kept, ctx.Err()
		default:
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return kept, err
			}
		}

		if err := s.mem.Read(h.Addr, buf); err != nil {
			continue
		}
		addrVal, _ := value.CastTo(value.NewU64(uint64(h.Addr)), addrType)
		s.addrSym.Store(addrVal)
		s.valSym.Store(eval.DecodeLittleEndian(s.opts.ElementType, buf))

		out, err := ev.Eval(root)
		if err != nil {
			scanLog.Warn("skipping hit after eval error", "addr", h.Addr, "err", err)
			continue
		}
		if !value.Promote(out).IsZero() {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// Eval evaluates root once, with addr/value bound to the given address
// and its current memory contents, and returns the raw result (spec.md
// §4.I's "eval" and "peek" usage of the same mechanism).
func (s *Scanner) Eval(root ast.Node, addr target.Address) (value.Value, error) {
	buf := make([]byte, value.Size(s.opts.ElementType, s.mem.AddressWidth()))
	if err := s.mem.Read(addr, buf); err != nil {
		return value.Value{}, err
	}
	addrType := s.addrSym.Load().Type
	addrVal, _ := value.CastTo(value.NewU64(uint64(addr)), addrType)
	s.addrSym.Store(addrVal)
	s.valSym.Store(eval.DecodeLittleEndian(s.opts.ElementType, buf))
	return eval.New(s.mem).Eval(root)
}

// Poke writes v into addr, encoded at the scanner's element width
// (spec.md §4.I's "poke" usage; original_source/src/cli.c's do_poke).
func (s *Scanner) Poke(addr target.Address, v value.Value) error {
	width := value.Size(s.opts.ElementType, s.mem.AddressWidth())
	cast, err := value.CastTo(v, s.opts.ElementType)
	if err != nil {
		return err
	}
	return s.mem.Write(addr, eval.EncodeLittleEndian(cast, width))
}
