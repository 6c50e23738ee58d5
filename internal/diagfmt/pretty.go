package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"pyflow/internal/diag"
	"pyflow/internal/source"
)

// Pretty formats diagnostics for humans. It walks bag.Items() (call
// bag.Sort() beforehand when stable file order matters) and prints for
// each diagnostic:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// followed by the source line with a ^~~~ underline over the span, then
// the notes in the same format.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		printHeader(w, fs, d.Primary, d.Severity, d.Code.ID(), d.Message, opts)
		printContext(w, fs, d.Primary, opts)

		if opts.ShowNotes {
			for _, note := range d.Notes {
				printHeader(w, fs, note.Span, diag.SevInfo, "note", note.Msg, opts)
				printContext(w, fs, note.Span, opts)
			}
		}
	}
}

func printHeader(w io.Writer, fs *source.FileSet, span source.Span, sev diag.Severity, code, msg string, opts PrettyOpts) {
	start, _ := fs.Resolve(span)
	path := formatPath(fs, span.File, opts.PathMode)

	sevText := sev.String()
	codeText := code
	if opts.Color {
		sevText = severityColor(sev).Sprint(sevText)
		codeText = color.New(color.Bold).Sprint(codeText)
	}
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n", path, start.Line, start.Col, sevText, codeText, msg)
}

// printContext prints opts.Context leading lines, the primary line and
// the underline.
func printContext(w io.Writer, fs *source.FileSet, span source.Span, opts PrettyOpts) {
	f := fs.Get(span.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(span)

	first := start.Line
	if opts.Context > 0 {
		lead := uint32(opts.Context)
		if lead >= first {
			first = 1
		} else {
			first -= lead
		}
	}
	for ln := first; ln < start.Line; ln++ {
		fmt.Fprintf(w, "  %s\n", f.GetLine(ln))
	}

	line := f.GetLine(start.Line)
	if line == "" {
		return
	}
	fmt.Fprintf(w, "  %s\n", line)

	// The underline covers the span on its first line only; multi-line
	// spans run to the end of that line.
	startCol := int(start.Col)
	endCol := len([]rune(line)) + 1
	if end.Line == start.Line && int(end.Col) <= endCol {
		endCol = int(end.Col)
	}
	if startCol > endCol {
		startCol = endCol
	}

	runes := []rune(line)
	pad := runewidth.StringWidth(string(runes[:min(startCol-1, len(runes))]))
	width := endCol - startCol
	if width < 1 {
		width = 1
	}

	marker := "^" + strings.Repeat("~", width-1)
	if opts.Color {
		marker = color.New(color.FgGreen, color.Bold).Sprint(marker)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", pad), marker)
}

func formatPath(fs *source.FileSet, id source.FileID, mode PathMode) string {
	f := fs.Get(id)
	if f == nil {
		return "<unknown>"
	}
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	default:
		return f.FormatPath("auto", "")
	}
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold)
	case diag.SevWarning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgCyan)
	}
}
