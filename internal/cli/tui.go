package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"repomerge/pkg/catalog"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// CatalogModel - Interactive catalog browser
// =============================================================================

// CatalogModel is the bubbletea model behind "inspect --interactive". It
// pages through the archive's packages; enter expands the package under the
// cursor to show every bundled version.
type CatalogModel struct {
	Archive  string
	Catalog  *catalog.Catalog
	Cursor   int
	Offset   int
	Height   int
	Expanded bool
}

// NewCatalogModel creates a catalog browser over cat.
func NewCatalogModel(archive string, cat *catalog.Catalog) CatalogModel {
	return CatalogModel{
		Archive: archive,
		Catalog: cat,
		Height:  15,
	}
}

func (m CatalogModel) Init() tea.Cmd {
	return nil
}

func (m CatalogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.Expanded {
				m.Expanded = false
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				m.Expanded = false
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Catalog.Packages)-1 {
				m.Cursor++
				m.Expanded = false
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Expanded = !m.Expanded
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m CatalogModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Catalog: " + m.Archive))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ expand  q quit"))
	b.WriteString("\n\n")

	packages := m.Catalog.Packages
	end := m.Offset + m.Height
	if end > len(packages) {
		end = len(packages)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		p := packages[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		newest := p.Newest().DisplayVersion()
		if newest == "" {
			newest = "—"
		}

		rows = append(rows, []string{cursor, p.Name, fmt.Sprintf("%d", len(p.Versions)), newest})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Package", "Versions", "Newest").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				if col == 3 {
					return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
				}
				return listSelectedStyle
			}
			if col == 3 {
				return lipgloss.NewStyle().Foreground(colorGreen)
			}
			if col == 2 {
				return listDimStyle
			}
			return listNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n")

	if m.Expanded && m.Cursor < len(packages) {
		b.WriteString("\n")
		b.WriteString(m.versionPane(packages[m.Cursor]))
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  %d jars total",
		m.Cursor+1, len(packages), m.Catalog.VersionCount())))

	return b.String()
}

// versionPane lists every version of p, newest last and marked.
func (m CatalogModel) versionPane(p catalog.Package) string {
	var b strings.Builder
	b.WriteString(listDimStyle.Render("  versions of ") + listNormalStyle.Render(p.Name))
	b.WriteString("\n")
	for i, v := range p.Versions {
		dv := v.DisplayVersion()
		if dv == "" {
			dv = "(none)"
		}
		line := fmt.Sprintf("    %-30s %s", dv, listDimStyle.Render(v.Basename()))
		if i == len(p.Versions)-1 {
			line = fmt.Sprintf("  %s %-30s %s", StyleSuccess.Render(iconSuccess), dv, listDimStyle.Render(v.Basename()))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
