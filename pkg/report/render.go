package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-graphviz"

	"repomerge/pkg/errors"
)

// Format selects a report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
)

// ParseFormat parses a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatDOT:
		return FormatDOT, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown report format %q (use text, json, dot, or svg)", s)
}

// Render writes the report to w in the given format. The context is only
// consulted by the SVG renderer.
func (r *Report) Render(ctx context.Context, w io.Writer, format Format) error {
	switch format {
	case FormatText:
		return r.renderText(w)
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "encode report")
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatDOT:
		_, err := io.WriteString(w, r.DOT())
		return err
	case FormatSVG:
		svg, err := r.SVG(ctx)
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown report format %q", format)
}

// renderText writes the human-readable report. Styling follows the
// destination: ANSI colors on terminals, plain text everywhere else.
func (r *Report) renderText(w io.Writer) error {
	ren := lipgloss.NewRenderer(w)
	styleTitle := ren.NewStyle().Bold(true)
	stylePkg := ren.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styleWin := ren.NewStyle().Foreground(lipgloss.Color("10"))
	styleDim := ren.NewStyle().Faint(true)

	verW, arcW := 0, 0
	for _, p := range r.Packages {
		for _, c := range p.Candidates {
			verW = max(verW, len(displayVersion(c.Version)))
			arcW = max(arcW, len(c.Archive))
		}
	}

	title := fmt.Sprintf("merge report: %d archives, %d packages", len(r.Archives), len(r.Packages))
	if _, err := fmt.Fprintf(w, "%s\n\n", styleTitle.Render(title)); err != nil {
		return err
	}

	for _, p := range r.Packages {
		if _, err := fmt.Fprintln(w, stylePkg.Render(p.Name)); err != nil {
			return err
		}
		// Newest first; the selected candidate leads.
		for i := len(p.Candidates) - 1; i >= 0; i-- {
			c := p.Candidates[i]
			row := fmt.Sprintf("%-*s  %-*s  %s", verW, displayVersion(c.Version), arcW, c.Archive, c.Jar)
			if c.Selected {
				fmt.Fprintf(w, "  %s %s\n", styleWin.Render("✓"), row)
			} else {
				fmt.Fprintf(w, "    %s\n", styleDim.Render(row))
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func displayVersion(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}

// DOT renders the selection as a Graphviz digraph: archives on the left,
// packages on the right, one edge per candidate. Selected edges are
// solid green, losing edges dashed grey.
func (r *Report) DOT() string {
	var buf bytes.Buffer
	buf.WriteString("digraph merge {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, a := range r.Archives {
		fmt.Fprintf(&buf, "  %q [fillcolor=lightyellow];\n", archiveNode(a))
	}

	buf.WriteString("\n")
	for _, p := range r.Packages {
		fmt.Fprintf(&buf, "  %q;\n", p.Name)
		for _, c := range p.Candidates {
			if c.Selected {
				fmt.Fprintf(&buf, "  %q -> %q [label=%q, penwidth=2, color=darkgreen];\n",
					archiveNode(c.Archive), p.Name, displayVersion(c.Version))
			} else {
				fmt.Fprintf(&buf, "  %q -> %q [label=%q, style=dashed, color=grey];\n",
					archiveNode(c.Archive), p.Name, displayVersion(c.Version))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// archiveNode namespaces archive node IDs so an archive cannot collide
// with a package of the same name.
func archiveNode(name string) string {
	return "archive: " + name
}

// SVG renders the DOT digraph to SVG in process.
func (r *Report) SVG(ctx context.Context) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(r.DOT()))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render SVG")
	}
	return buf.Bytes(), nil
}
