// Package shell implements the interactive command loop spec.md's
// "shell" external collaborator describes: a line-edited prompt
// (github.com/peterh/liner, matching the teacher's declared but
// unexercised dependency) dispatching to attach/detach/break/continue/
// search/filter/list/peek/poke/eval/explain/undo/redo/save/load
// commands, the same set original_source/src/cli.c's cli_execute_line
// switches over.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/olealgoritme/ramfuck/internal/ast"
	"github.com/olealgoritme/ramfuck/internal/config"
	"github.com/olealgoritme/ramfuck/internal/eval"
	"github.com/olealgoritme/ramfuck/internal/log"
	"github.com/olealgoritme/ramfuck/internal/opt"
	"github.com/olealgoritme/ramfuck/internal/parser"
	"github.com/olealgoritme/ramfuck/internal/procfs"
	"github.com/olealgoritme/ramfuck/internal/report"
	"github.com/olealgoritme/ramfuck/internal/scan"
	"github.com/olealgoritme/ramfuck/internal/session"
	"github.com/olealgoritme/ramfuck/internal/symtab"
	"github.com/olealgoritme/ramfuck/internal/target"
	"github.com/olealgoritme/ramfuck/internal/value"
)

var shellLog = log.Root.With("component", "shell")

// Shell is one interactive attach session: a target (possibly nil
// before "attach"), a symbol table for eval/search bindings, a hit-list
// session, and the scan options a "search" without explicit type reuses.
type Shell struct {
	Out io.Writer

	cfg  config.Config
	mem  target.MemoryTarget
	tab  *symtab.Table
	sess *session.Session

	elementType value.Type
	running     bool
	stopped     bool
	lastRC      int
}

// New returns a Shell configured from cfg, with no target attached.
func New(cfg config.Config) *Shell {
	return &Shell{
		Out:         os.Stdout,
		cfg:         cfg,
		tab:         symtab.New(),
		sess:        session.New(),
		elementType: value.S32,
		running:     true,
	}
}

// Run starts the line-edited REPL, reading commands until "quit" or
// EOF. History is loaded from and saved to cfg.Shell.HistoryFile when
// set, mirroring a typical peterh/liner-based tool's history handling.
func (sh *Shell) Run() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if sh.cfg.Shell.HistoryFile != "" {
		if f, err := os.Open(sh.cfg.Shell.HistoryFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	for sh.running {
		input, err := line.Prompt(sh.cfg.Shell.Prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				break
			}
			return err
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		sh.ExecuteLine(input)
	}

	if sh.cfg.Shell.HistoryFile != "" {
		if f, err := os.Create(sh.cfg.Shell.HistoryFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
	return nil
}

// ExecuteLine runs every ';'-separated, '#'-comment-stripped command in
// one input line (original_source/src/cli.c's cli_execute splitting),
// returning the last command's exit code.
func (sh *Shell) ExecuteLine(line string) int {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	rc := 0
	for _, stmt := range strings.Split(line, ";") {
		rc = sh.execute(strings.TrimSpace(stmt))
	}
	sh.lastRC = rc
	return rc
}

func (sh *Shell) execute(stmt string) int {
	if stmt == "" {
		return 0
	}
	cmd, rest := splitCommand(stmt)
	handler, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(sh.Out, "cli: unknown command '%s'\n", cmd)
		return 1
	}
	if err := handler(sh, rest); err != nil {
		fmt.Fprintf(sh.Out, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func splitCommand(stmt string) (cmd, rest string) {
	stmt = strings.TrimSpace(stmt)
	i := strings.IndexFunc(stmt, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return stmt, ""
	}
	return stmt[:i], strings.TrimSpace(stmt[i+1:])
}

type handlerFunc func(sh *Shell, args string) error

var commands map[string]handlerFunc

func init() {
	commands = map[string]handlerFunc{
		"attach":   cmdAttach,
		"detach":   cmdDetach,
		"break":    cmdBreak,
		"continue": cmdContinue,
		"search":   cmdSearch,
		"filter":   cmdFilter,
		"next":     cmdFilter,
		"list":     cmdList,
		"ls":       cmdList,
		"maps":     cmdMaps,
		"mem":      cmdMaps,
		"peek":     cmdPeek,
		"poke":     cmdPoke,
		"eval":     cmdEval,
		"explain":  cmdExplain,
		"undo":     cmdUndo,
		"redo":     cmdRedo,
		"save":     cmdSave,
		"load":     cmdLoad,
		"clear":    cmdClear,
		"type":     cmdType,
		"quit":     cmdQuit,
		"q":        cmdQuit,
		"exit":     cmdQuit,
	}
}

// AttachTarget wires an already-constructed MemoryTarget directly,
// bypassing the "attach" command's pid/name resolution. Used by
// cmd/ramfuck for file-backed targets (internal/procfs.OpenFile) and by
// tests that exercise command dispatch against internal/target.Fake.
func (sh *Shell) AttachTarget(mem target.MemoryTarget) { sh.mem = mem }

// SetElementType changes the scan element type subsequent search/filter
// commands bind "value" at.
func (sh *Shell) SetElementType(t value.Type) { sh.elementType = t }

// Table exposes the shell's symbol table so a caller (or test) can bind
// extra names before evaluating expressions against it.
func (sh *Shell) Table() *symtab.Table { return sh.tab }

// LastExitCode reports the most recently executed line's status, the
// way cli_execute_line's return value threads through ctx->rc.
func (sh *Shell) LastExitCode() int { return sh.lastRC }

// Running reports whether the shell loop should keep reading commands.
func (sh *Shell) Running() bool { return sh.running }

func (sh *Shell) requireTarget() (target.MemoryTarget, error) {
	if sh.mem == nil {
		return nil, fmt.Errorf("no target attached (use 'attach')")
	}
	return sh.mem, nil
}

func cmdAttach(sh *Shell, args string) error {
	args = strings.TrimSpace(args)
	if args == "" {
		return fmt.Errorf("attach: pid or process name expected")
	}
	var p *procfs.Process
	var err error
	if pid, perr := strconv.ParseInt(args, 10, 32); perr == nil {
		p, err = procfs.Attach(int32(pid))
	} else {
		p, err = procfs.FindByName(args)
	}
	if err != nil {
		return err
	}
	sh.mem = p
	sh.stopped = false
	shellLog.Info("attached", "target", args)
	return nil
}

func cmdDetach(sh *Shell, args string) error {
	if sh.stopped && sh.mem != nil {
		if err := sh.mem.Resume(); err != nil {
			shellLog.Warn("detach: resuming target failed", "err", err)
		}
		sh.stopped = false
	}
	if p, ok := sh.mem.(*procfs.Process); ok {
		p.Close()
	}
	sh.mem = nil
	return nil
}

func cmdClear(sh *Shell, args string) error {
	sh.sess.Clear()
	return nil
}

// cmdBreak stops the attached target, mirroring original_source/src/cli.c's
// do_break. Most useful before a "poke": stopping the target first keeps
// its own execution from racing the write.
func cmdBreak(sh *Shell, args string) error {
	mem, err := sh.requireTarget()
	if err != nil {
		return fmt.Errorf("break: %w", err)
	}
	if sh.stopped {
		return fmt.Errorf("break: target is already stopped")
	}
	if err := mem.Pause(); err != nil {
		return fmt.Errorf("break: %w", err)
	}
	sh.stopped = true
	fmt.Fprintln(sh.Out, "target stopped")
	return nil
}

// cmdContinue reverses cmdBreak, mirroring do_continue.
func cmdContinue(sh *Shell, args string) error {
	mem, err := sh.requireTarget()
	if err != nil {
		return fmt.Errorf("continue: %w", err)
	}
	if !sh.stopped {
		return fmt.Errorf("continue: target is already running")
	}
	if err := mem.Resume(); err != nil {
		return fmt.Errorf("continue: %w", err)
	}
	sh.stopped = false
	fmt.Fprintln(sh.Out, "target continued")
	return nil
}

func cmdType(sh *Shell, args string) error {
	name := strings.TrimSpace(args)
	typ, ok := value.TypeFromName(name)
	if !ok {
		return fmt.Errorf("unknown type %q", name)
	}
	sh.elementType = typ
	return nil
}

func cmdQuit(sh *Shell, args string) error {
	sh.running = false
	return nil
}

func (sh *Shell) newScanner(expr string) (*scan.Scanner, ast.Node, error) {
	mem, err := sh.requireTarget()
	if err != nil {
		return nil, nil, err
	}
	s, root, errs := scan.New(mem, sh.tab, expr, scan.Options{
		ElementType: sh.elementType,
		Align:       sh.cfg.Scan.Alignment,
		Parallel:    sh.cfg.Scan.Parallel,
		MaxWorkers:  sh.cfg.Scan.MaxWorkers,
		RegionCache: sh.cfg.Scan.RegionCache,
		RateLimit:   sh.cfg.Scan.RateLimit,
		RateBurst:   sh.cfg.Scan.RateBurst,
	})
	if len(errs) > 0 {
		return nil, nil, joinErrs(errs)
	}
	return s, root, nil
}

func joinErrs(errs []error) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func cmdSearch(sh *Shell, args string) error {
	if args == "" {
		return fmt.Errorf("expression expected")
	}
	s, root, err := sh.newScanner(args)
	if err != nil {
		return err
	}
	hits, err := s.Run(context.Background(), root)
	if err != nil {
		return err
	}
	sh.sess.SetHits(args, hits)
	fmt.Fprintf(sh.Out, "search: %d hits\n", len(hits))
	return nil
}

func cmdFilter(sh *Shell, args string) error {
	if args == "" {
		return fmt.Errorf("expression expected")
	}
	prior := sh.sess.Hits()
	if len(prior) == 0 {
		fmt.Fprintln(sh.Out, "filter: zero hits")
		return nil
	}
	s, root, err := sh.newScanner(args)
	if err != nil {
		return err
	}
	narrowed, err := s.Filter(context.Background(), root, prior)
	if err != nil {
		return err
	}
	sh.sess.SetHits(args, narrowed)
	fmt.Fprintf(sh.Out, "filter: %d hits\n", len(narrowed))
	return nil
}

func cmdList(sh *Shell, args string) error {
	hits := sh.sess.Hits()
	if len(hits) == 0 {
		fmt.Fprintln(sh.Out, "list: zero hits")
		return nil
	}
	mem, err := sh.requireTarget()
	if err != nil {
		return err
	}
	values := make([]string, len(hits))
	for i, h := range hits {
		width := value.Size(h.Type, mem.AddressWidth())
		buf := make([]byte, width)
		if err := mem.Read(h.Addr, buf); err != nil {
			values[i] = "???"
			continue
		}
		v := eval.DecodeLittleEndian(h.Type, buf)
		values[i] = v.String()
	}
	report.HitList(sh.Out, hits, values)
	return nil
}

func cmdMaps(sh *Shell, args string) error {
	mem, err := sh.requireTarget()
	if err != nil {
		return err
	}
	regions, err := mem.Regions()
	if err != nil {
		return err
	}
	report.Regions(sh.Out, regions)
	return nil
}

func cmdPeek(sh *Shell, args string) error {
	mem, err := sh.requireTarget()
	if err != nil {
		return err
	}
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return fmt.Errorf("usage: peek <type> <address>")
	}
	typ, ok := value.TypeFromName(fields[0])
	if !ok {
		return fmt.Errorf("unknown type %q", fields[0])
	}
	addrVal, errs := parser.Parse(fields[1], sh.tab)
	if len(errs) > 0 {
		return joinErrs(errs)
	}
	addrNode := opt.Optimize(addrVal)
	result, err := eval.New(mem).Eval(addrNode)
	if err != nil {
		return err
	}
	addr := target.Address(value.Promote(result).Address())

	buf := make([]byte, value.Size(typ, mem.AddressWidth()))
	if err := mem.Read(addr, buf); err != nil {
		return err
	}
	v := eval.DecodeLittleEndian(typ, buf)
	fmt.Fprintf(sh.Out, "*(%s *)0x%08x = %s\n", typ, uint64(addr), v.String())
	return nil
}

func cmdPoke(sh *Shell, args string) error {
	mem, err := sh.requireTarget()
	if err != nil {
		return err
	}
	fields := strings.SplitN(args, " ", 3)
	if len(fields) != 3 {
		return fmt.Errorf("usage: poke <type> <address> <value>")
	}
	typ, ok := value.TypeFromName(fields[0])
	if !ok {
		return fmt.Errorf("unknown type %q", fields[0])
	}
	addrNode, errs := parser.Parse(fields[1], sh.tab)
	if len(errs) > 0 {
		return joinErrs(errs)
	}
	addrResult, err := eval.New(mem).Eval(opt.Optimize(addrNode))
	if err != nil {
		return err
	}
	addr := target.Address(value.Promote(addrResult).Address())

	valNode, errs := parser.Parse(fields[2], sh.tab)
	if len(errs) > 0 {
		return joinErrs(errs)
	}
	valResult, err := eval.New(mem).Eval(opt.Optimize(valNode))
	if err != nil {
		return err
	}
	cast, err := value.CastTo(valResult, typ)
	if err != nil {
		return err
	}
	width := value.Size(typ, mem.AddressWidth())
	if err := mem.Write(addr, eval.EncodeLittleEndian(cast, width)); err != nil {
		return err
	}
	fmt.Fprintf(sh.Out, "poke: wrote %s to 0x%08x\n", cast.String(), uint64(addr))
	return nil
}

func cmdEval(sh *Shell, args string) error {
	if args == "" {
		return fmt.Errorf("expression expected")
	}
	root, errs := parser.Parse(args, sh.tab)
	if len(errs) > 0 {
		return joinErrs(errs)
	}
	root = opt.Optimize(root)
	result, err := eval.New(sh.mem).Eval(root)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.Out, result.TypedString())
	return nil
}

func cmdExplain(sh *Shell, args string) error {
	debugDump := false
	if rest := strings.TrimPrefix(args, "--debug-dump"); rest != args {
		debugDump = true
		args = strings.TrimSpace(rest)
	}
	if args == "" {
		return fmt.Errorf("expression expected")
	}
	root, errs := parser.Parse(args, sh.tab)
	if len(errs) > 0 {
		return joinErrs(errs)
	}
	if debugDump {
		fmt.Fprint(sh.Out, ast.Dump(root))
		return nil
	}
	fmt.Fprintln(sh.Out, root.RPN())
	return nil
}

func cmdUndo(sh *Shell, args string) error {
	hits, err := sh.sess.Undo()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.Out, "undo: %d hits\n", len(hits))
	return nil
}

func cmdRedo(sh *Shell, args string) error {
	hits, err := sh.sess.Redo()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.Out, "redo: %d hits\n", len(hits))
	return nil
}

func cmdSave(sh *Shell, args string) error {
	name := strings.TrimSpace(args)
	if name == "" {
		return fmt.Errorf("usage: save <name>")
	}
	saved, err := sh.sess.Save(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.Out, "save: %q (%s) with %d hits\n", saved.Name, saved.ID, len(saved.Hits))
	return nil
}

func cmdLoad(sh *Shell, args string) error {
	name := strings.TrimSpace(args)
	if name == "" {
		return fmt.Errorf("usage: load <name>")
	}
	hits, err := sh.sess.Recall(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.Out, "load: %d hits\n", len(hits))
	return nil
}
