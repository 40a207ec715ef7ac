// Package tui is an interactive terminal browser for a built neighbor
// container: atoms on the left, the selected atom's neighbors on the right.
package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/kimnl/internal/atoms"
	"github.com/san-kum/kimnl/internal/nlist"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))

	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")).
		Padding(0, 1)
)

// Snapshot is a copy of everything the browser shows, taken while the
// container was alive.
type Snapshot struct {
	Title     string
	Numbering atoms.Numbering
	Cutoffs   []float64
	NumReal   int
	Symbols   []string
	Positions []atoms.Vec3
	Sources   []int
	// Lists[k][i] are zero-based neighbors of particle i in list k.
	Lists  [][][]int32
	Forces []atoms.Vec3
}

// FromContainer copies c. symbols are the real atom species.
func FromContainer(title string, c *nlist.Container, symbols []string, forces []atoms.Vec3) (*Snapshot, error) {
	s := &Snapshot{
		Title:     title,
		Numbering: c.Numbering(),
		Cutoffs:   c.Cutoffs(),
		NumReal:   c.NumReal(),
		Forces:    forces,
	}
	coords := c.Coordinates()
	for i := 0; i < c.NumParticles(); i++ {
		src, err := c.Source(i)
		if err != nil {
			return nil, err
		}
		s.Sources = append(s.Sources, src)
		s.Symbols = append(s.Symbols, symbols[src])
		s.Positions = append(s.Positions, atoms.Vec3{coords[3*i], coords[3*i+1], coords[3*i+2]})
	}

	base := c.Numbering().Base()
	s.Lists = make([][][]int32, c.NumLists())
	for k := range s.Lists {
		s.Lists[k] = make([][]int32, c.NumSources())
		for i := range s.Lists[k] {
			idx, err := c.Neighbors(k, i+int(base))
			if err != nil {
				return nil, err
			}
			row := make([]int32, len(idx))
			for m, j := range idx {
				row[m] = j - base
			}
			s.Lists[k][i] = row
		}
	}
	return s, nil
}

type model struct {
	snap   *Snapshot
	cursor int
	offset int
	list   int
	width  int
	height int
}

func newModel(s *Snapshot) model {
	return model{snap: s, width: 100, height: 30}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m model) rows() int { return max(5, m.height-8) }

func (m model) sources() int {
	if len(m.snap.Lists) == 0 {
		return 0
	}
	return len(m.snap.Lists[0])
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	n := m.sources()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.cursor = max(0, m.cursor-1)
	case "down", "j":
		m.cursor = min(max(n-1, 0), m.cursor+1)
	case "pgup":
		m.cursor = max(0, m.cursor-m.rows())
	case "pgdown":
		m.cursor = min(max(n-1, 0), m.cursor+m.rows())
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(n-1, 0)
	case "tab":
		if len(m.snap.Lists) > 0 {
			m.list = (m.list + 1) % len(m.snap.Lists)
		}
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.rows() {
		m.offset = m.cursor - m.rows() + 1
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	s := m.snap

	b.WriteString("\n  " + cyan.Render(s.Title) + "  " +
		dim.Render(fmt.Sprintf("%d real  %d ghost  numbering %s", s.NumReal, len(s.Positions)-s.NumReal, s.Numbering)) + "\n")
	b.WriteString(dimmer.Render("  "+strings.Repeat("─", 40)) + "\n")

	left := m.viewAtoms()
	right := m.viewNeighbors()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panel.Render(left), " ", panel.Render(right)))
	b.WriteString("\n" + dim.Render("  ↑↓ select   tab next cutoff   pgup/pgdn page   q quit") + "\n")
	return b.String()
}

func (m model) viewAtoms() string {
	var b strings.Builder
	s := m.snap
	end := min(m.sources(), m.offset+m.rows())
	for i := m.offset; i < end; i++ {
		count := len(s.Lists[m.list][i])
		label := fmt.Sprintf("%5d %-3s %4d", i, s.Symbols[i], count)
		if i >= s.NumReal {
			label += dimmer.Render(" g")
		}
		if i == m.cursor {
			b.WriteString(cyan.Render("▸ ") + white.Render(label) + "\n")
		} else {
			b.WriteString("  " + dim.Render(label) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) viewNeighbors() string {
	var b strings.Builder
	s := m.snap
	if m.sources() == 0 {
		return dim.Render("no atoms")
	}
	i := m.cursor
	p := s.Positions[i]

	b.WriteString(white.Render(fmt.Sprintf("atom %d (%s)", i, s.Symbols[i])))
	if i >= s.NumReal {
		b.WriteString(dim.Render(fmt.Sprintf("  image of %d", s.Sources[i])))
	}
	b.WriteString("\n")
	b.WriteString(dim.Render(fmt.Sprintf("r = (%.4f, %.4f, %.4f)", p[0], p[1], p[2])) + "\n")
	if i < len(s.Forces) {
		f := s.Forces[i]
		b.WriteString(magenta.Render(fmt.Sprintf("F = (%.5f, %.5f, %.5f)  |F| = %.5f", f[0], f[1], f[2], f.Norm())) + "\n")
	}
	for k, rc := range s.Cutoffs {
		mark := "  "
		if k == m.list {
			mark = cyan.Render("▸ ")
		}
		b.WriteString(mark + dim.Render(fmt.Sprintf("list %d  rc %.3f  %d neighbors", k, rc, len(s.Lists[k][i]))) + "\n")
	}
	b.WriteString("\n")

	neigh := s.Lists[m.list][i]
	shown := min(len(neigh), m.rows()-len(s.Cutoffs)-3)
	for _, j := range neigh[:max(shown, 0)] {
		d := s.Positions[j].Sub(p).Norm()
		line := fmt.Sprintf("%6d %-3s d = %.4f", j, s.Symbols[j], d)
		if int(j) >= s.NumReal {
			b.WriteString(yellow.Render(line) + dimmer.Render(fmt.Sprintf("  → %d", s.Sources[j])) + "\n")
		} else {
			b.WriteString(white.Render(line) + "\n")
		}
	}
	if shown < len(neigh) {
		b.WriteString(dimmer.Render(fmt.Sprintf("… %d more", len(neigh)-max(shown, 0))) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ShellHistogram counts neighbors of real atoms in list k by distance,
// with bins of width dr up to the list cutoff.
func (s *Snapshot) ShellHistogram(k int, dr float64) []float64 {
	if k < 0 || k >= len(s.Lists) || !(dr > 0) {
		return nil
	}
	bins := make([]float64, int(math.Ceil(s.Cutoffs[k]/dr))+1)
	for i := 0; i < s.NumReal && i < len(s.Lists[k]); i++ {
		for _, j := range s.Lists[k][i] {
			d := s.Positions[j].Sub(s.Positions[i]).Norm()
			bins[min(int(d/dr), len(bins)-1)]++
		}
	}
	return bins
}

func Run(s *Snapshot) error {
	p := tea.NewProgram(newModel(s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
