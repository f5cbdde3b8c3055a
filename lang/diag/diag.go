// Package diag implements the shared diagnostic type used by the scanner,
// parser, resolver and machine packages: a {code, title, help, note} error
// record with source position and a stable dedup key, per spec.md §7.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orus-lang/orus/lang/token"
)

// Severity classifies a Diagnostic.
type Severity uint8

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "error"
	}
}

// A Diagnostic is a single user-visible error or warning, tagged with one of
// the error-taxonomy codes listed in spec.md §7 (E1010..E1018 for variable
// errors, E2001..E2008 for type errors; lexical/syntactic errors use the
// zero-value Code "").
type Diagnostic struct {
	Code     string
	Severity Severity
	Pos      token.Position
	Message  string
	Help     string
	Note     string
}

func (d Diagnostic) key() string {
	return strings.Join([]string{d.Code, d.Severity.String(), d.Pos.String(), d.Message, d.Help, d.Note}, "\x00")
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Code != "" {
		fmt.Fprintf(&b, "[%s] ", d.Code)
	}
	fmt.Fprintf(&b, "%s: %s: %s", d.Pos, d.Severity, d.Message)
	if d.Help != "" {
		fmt.Fprintf(&b, "\n  help: %s", d.Help)
	}
	if d.Note != "" {
		fmt.Fprintf(&b, "\n  note: %s", d.Note)
	}
	return b.String()
}

// A List accumulates Diagnostics during a single compile, the same way the
// teacher's packages accumulate into a go/scanner-shaped ErrorList, except
// this one dedupes by the full (code, severity, location, message, help,
// note) tuple spec.md §7 requires and carries the richer per-entry fields.
type List struct {
	entries []Diagnostic
	seen    map[string]bool
}

// Add appends a diagnostic unless an identical one (by dedup key) was
// already recorded.
func (l *List) Add(d Diagnostic) {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	k := d.key()
	if l.seen[k] {
		return
	}
	l.seen[k] = true
	l.entries = append(l.entries, d)
}

// Addf is a convenience wrapper around Add for plain-message diagnostics
// with no code/help/note.
func (l *List) Addf(pos token.Position, format string, args ...any) {
	l.Add(Diagnostic{Severity: Error, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (l *List) Len() int { return len(l.entries) }

func (l *List) All() []Diagnostic { return l.entries }

// Sort orders diagnostics by file, then line, then column, for stable
// output across repeated compiles of the same source.
func (l *List) Sort() {
	sort.SliceStable(l.entries, func(i, j int) bool {
		a, b := l.entries[i].Pos, l.entries[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// Err returns nil if the list holds no Error-severity diagnostics, else an
// error whose message is the joined diagnostics, implementing Unwrap()
// []error the way the teacher's scanner.ErrorList usage expects.
func (l *List) Err() error {
	var hasErr bool
	for _, d := range l.entries {
		if d.Severity == Error {
			hasErr = true
			break
		}
	}
	if !hasErr {
		return nil
	}
	return &errList{diags: l.entries}
}

type errList struct{ diags []Diagnostic }

func (e *errList) Error() string {
	var b strings.Builder
	for i, d := range e.diags {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.String())
	}
	return b.String()
}

func (e *errList) Unwrap() []error {
	errs := make([]error, len(e.diags))
	for i, d := range e.diags {
		errs[i] = fmt.Errorf("%s", d.String())
	}
	return errs
}
