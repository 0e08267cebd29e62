package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

type palette struct {
	on     bool
	title  lipgloss.Style
	errStr lipgloss.Style
	kinds  map[string]*color.Color
}

func newPalette(on bool) palette {
	p := palette{
		on:     on,
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
		errStr: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		kinds: map[string]*color.Color{
			"Direct":   color.New(color.FgGreen),
			"Coerce":   color.New(color.FgCyan),
			"Indirect": color.New(color.FgYellow),
			"Expand":   color.New(color.FgMagenta),
			"Ignore":   color.New(color.Faint),
		},
	}
	for _, c := range p.kinds {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) heading(s string) string {
	if !p.on {
		return s
	}
	return p.title.Render(s)
}

func (p palette) failure(s string) string {
	if !p.on {
		return s
	}
	return p.errStr.Render(s)
}

// kind colors an already padded disposition cell.
func (p palette) kind(kind, cell string) string {
	c, ok := p.kinds[kind]
	if !ok {
		return cell
	}
	return c.Sprint(cell)
}

// Text writes a table per signature:
//
//	f  void (int32 n, struct pair p)
//	  return  void          Ignore
//	  n       int32         Direct
//	  p       struct pair   Coerce(double)
func Text(w io.Writer, doc Document, opts TextOpts) error {
	p := newPalette(opts.Color)
	typeWidth := opts.Width
	if typeWidth <= 0 {
		typeWidth = 40
	}

	var b strings.Builder
	b.WriteString(p.heading(fmt.Sprintf("target %s (%s), %d signatures, %d registry entries",
		doc.Target, doc.ABI, len(doc.Signatures), doc.Registry)))
	b.WriteString("\n")

	for _, e := range doc.Signatures {
		b.WriteString("\n")
		b.WriteString(p.heading(e.Name))
		b.WriteString("  ")
		b.WriteString(prototype(e))
		b.WriteString("\n")
		if e.Error != "" {
			b.WriteString("  ")
			b.WriteString(p.failure("error: " + e.Error))
			b.WriteString("\n")
			continue
		}

		rows := make([]Slot, 0, len(e.Args)+1)
		ret := e.Return
		ret.Name = "return"
		rows = append(rows, ret)
		rows = append(rows, e.Args...)

		nameW, typeW, dispW := 0, 0, 0
		for _, r := range rows {
			nameW = max(nameW, runewidth.StringWidth(r.Name))
			typeW = max(typeW, min(runewidth.StringWidth(r.Type), typeWidth))
			dispW = max(dispW, runewidth.StringWidth(r.Disposition))
		}
		for _, r := range rows {
			line := fmt.Sprintf("  %s  %s  %s",
				runewidth.FillRight(r.Name, nameW),
				runewidth.FillRight(truncate(r.Type, typeWidth), typeW),
				p.kind(r.Kind, runewidth.FillRight(r.Disposition, dispW)))
			if opts.Physical && len(r.Physical) > 0 {
				line += "  " + strings.Join(r.Physical, ", ")
			}
			b.WriteString(strings.TrimRight(line, " "))
			b.WriteString("\n")
		}
	}

	if doc.Timing != nil && len(doc.Timing.Phases) > 0 {
		b.WriteString("\n")
		b.WriteString(p.heading("timings"))
		b.WriteString("\n")
		for _, ph := range doc.Timing.Phases {
			fmt.Fprintf(&b, "  %-10s %7.2f ms", ph.Name, ph.DurationMS)
			if ph.Note != "" {
				b.WriteString("  // " + ph.Note)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  %-10s %7.2f ms\n", "total", doc.Timing.TotalMS)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func prototype(e Entry) string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, a := range e.Args {
		parts = append(parts, a.Type+" "+a.Name)
	}
	if e.Variadic {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("%s (%s)", e.Return.Type, strings.Join(parts, ", "))
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	// The tail counts toward width.
	return runewidth.Truncate(value, width, "...")
}
