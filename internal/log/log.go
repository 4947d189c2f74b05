// Package log implements a small leveled, structured logger in the
// style of go-probeum's own log package: colorized level tags on a
// terminal, key=value context pairs, and a caller frame on warnings and
// above. That package isn't itself part of this retrieval (it's an
// external import of the teacher's, github.com/probeum/go-probeum/log),
// so this reconstructs its shape from the teacher's declared
// dependencies that exist to serve exactly this purpose:
// mattn/go-isatty (is this a terminal), mattn/go-colorable (a Writer
// that translates ANSI on Windows), fatih/color (the ANSI codes
// themselves), and go-stack/stack (the caller frame).
package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a log severity, ordered least to most severe.
type Level int

const (
	Trace Level = iota
	Debug
	Info
	Warn
	Error
	Crit
)

var levelNames = map[Level]string{
	Trace: "TRACE", Debug: "DEBUG", Info: "INFO", Warn: "WARN", Error: "ERROR", Crit: "CRIT",
}

func (l Level) String() string { return levelNames[l] }

var levelColor = map[Level]*color.Color{
	Trace: color.New(color.FgHiBlack),
	Debug: color.New(color.FgBlue),
	Info:  color.New(color.FgGreen),
	Warn:  color.New(color.FgYellow),
	Error: color.New(color.FgRed),
	Crit:  color.New(color.FgHiRed, color.Bold),
}

// Logger writes leveled records carrying a fixed set of key=value
// context pairs, the way every subsystem in this module (procfs, scan,
// shell, session) gets its own child logger via With.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	With(ctx ...interface{}) Logger
}

type logger struct {
	out    io.Writer
	color  bool
	mu     *sync.Mutex
	min    Level
	ctx    []interface{}
}

// Root is the default, process-wide logger: stderr, auto-detected
// color, Info and above.
var Root Logger = New(os.Stderr)

// New returns a Logger writing to w. Color is enabled only when w is a
// terminal (mattn/go-isatty), wrapped through mattn/go-colorable so
// ANSI codes render on Windows consoles too.
func New(w io.Writer) Logger {
	useColor := false
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = colorable.NewColorable(f)
		useColor = true
	}
	return &logger{out: w, color: useColor, mu: &sync.Mutex{}, min: Info}
}

// SetLevel adjusts the minimum level Root emits.
func SetLevel(l Level) {
	if lg, ok := Root.(*logger); ok {
		lg.min = l
	}
}

func (l *logger) With(ctx ...interface{}) Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &logger{out: l.out, color: l.color, mu: l.mu, min: l.min, ctx: merged}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(Trace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(Debug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(Info, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(Warn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(Error, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(Crit, msg, ctx) }

func (l *logger) write(lvl Level, msg string, ctx []interface{}) {
	if lvl < l.min {
		return
	}
	var b strings.Builder
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	tag := lvl.String()
	if l.color {
		tag = levelColor[lvl].Sprintf("%-5s", tag)
	} else {
		tag = fmt.Sprintf("%-5s", tag)
	}
	fmt.Fprintf(&b, "%s [%s] %s", ts, tag, msg)

	all := make([]interface{}, 0, len(l.ctx)+len(ctx))
	all = append(all, l.ctx...)
	all = append(all, ctx...)
	for _, kv := range pairs(all) {
		fmt.Fprintf(&b, " %s=%v", kv[0], kv[1])
	}

	if lvl >= Warn {
		if frame := callerFrame(); frame != "" {
			fmt.Fprintf(&b, " caller=%s", frame)
		}
	}

	b.WriteByte('\n')
	l.mu.Lock()
	io.WriteString(l.out, b.String())
	l.mu.Unlock()
}

// pairs groups a flat key,value,key,value... slice, sorted by key so
// output is deterministic across calls with the same context set.
func pairs(ctx []interface{}) [][2]interface{} {
	out := make([][2]interface{}, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		out = append(out, [2]interface{}{ctx[i], ctx[i+1]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return fmt.Sprint(out[i][0]) < fmt.Sprint(out[j][0])
	})
	return out
}

// callerFrame renders the call site three frames up from here (past
// write, the exported Trace/Debug/.../Crit method, and the caller's own
// call to it), as "path/file.go:line".
func callerFrame() string {
	return fmt.Sprintf("%+v", stack.Caller(3))
}

// Trace/Debug/Info/Warn/Error/Crit on the package level delegate to Root.
func Tracef(msg string, ctx ...interface{}) { Root.Trace(msg, ctx...) }
func Debugf(msg string, ctx ...interface{}) { Root.Debug(msg, ctx...) }
func Infof(msg string, ctx ...interface{})  { Root.Info(msg, ctx...) }
func Warnf(msg string, ctx ...interface{})  { Root.Warn(msg, ctx...) }
func Errorf(msg string, ctx ...interface{}) { Root.Error(msg, ctx...) }
func Critf(msg string, ctx ...interface{})  { Root.Crit(msg, ctx...) }
