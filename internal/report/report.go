// Package report renders harness output for humans.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/postbench/internal/labels"
)

// Printer formats harness progress lines.
type Printer struct {
	w      io.Writer
	num    *message.Printer
	styled bool

	mismatch lipgloss.Style
}

// New returns a Printer writing to w. Mismatch highlighting is enabled
// when w is a terminal.
func New(w io.Writer) *Printer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd())
	}
	return NewStyled(w, styled)
}

// NewStyled returns a Printer with highlighting forced on or off.
func NewStyled(w io.Writer, styled bool) *Printer {
	return &Printer{
		w:        w,
		num:      message.NewPrinter(language.English),
		styled:   styled,
		mismatch: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Printf writes a formatted line fragment.
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// Println writes a line.
func (p *Printer) Println(args ...any) {
	fmt.Fprintln(p.w, args...)
}

// Count formats n with thousands separators.
func (p *Printer) Count(n uint64) string {
	return p.num.Sprintf("%d", n)
}

// Throughput writes "<model>: <n> hashes, <rate> h/s".
func (p *Printer) Throughput(prefix, model string, hashes, perSec uint64) {
	fmt.Fprintf(p.w, "%s%s: %s hashes, %s h/s\n", prefix, model, p.Count(hashes), p.Count(perSec))
}

// Bytes formats a buffer size, e.g. "1.1 MiB".
func Bytes(n uint64) string {
	return humanize.IBytes(n)
}

// Blocks renders the first n bytes of ref and got, BlockSize bytes per
// line. Equal bytes print as "rr=gg", differing bytes as "rr!gg".
func (p *Printer) Blocks(ref, got []byte, n int) {
	n = min(n, len(ref), len(got))
	for off := 0; off < n; off += labels.BlockSize {
		end := min(off+labels.BlockSize, n)
		for i := off; i < end; i++ {
			if ref[i] == got[i] {
				fmt.Fprintf(p.w, "%02x=%02x ", ref[i], got[i])
				continue
			}
			cell := fmt.Sprintf("%02x!%02x", ref[i], got[i])
			if p.styled {
				cell = p.mismatch.Render(cell)
			}
			fmt.Fprintf(p.w, "%s ", cell)
		}
		fmt.Fprintln(p.w)
	}
}

// Table renders rows under headers with a plain border.
func (p *Printer) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(p.w, t.Render())
}
