package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/okvist/quarry/pkg/graph"
)

// browseGraph opens an interactive tree browser over the collected graph.
// Arrow keys move, enter/space toggles a subtree, q quits.
func browseGraph(root *graph.Node) error {
	m := newBrowserModel(root)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type browserModel struct {
	root      *graph.Node
	collapsed map[*graph.Node]bool
	cursor    int
	offset    int
	height    int
	rows      []browserRow
}

type browserRow struct {
	node  *graph.Node
	depth int
}

func newBrowserModel(root *graph.Node) *browserModel {
	m := &browserModel{
		root:      root,
		collapsed: make(map[*graph.Node]bool),
		height:    24,
	}
	m.rebuild()
	return m
}

// rebuild flattens the tree into visible rows, honoring collapsed subtrees.
func (m *browserModel) rebuild() {
	m.rows = m.rows[:0]
	var walk func(n *graph.Node, depth int)
	walk = func(n *graph.Node, depth int) {
		m.rows = append(m.rows, browserRow{node: n, depth: depth})
		if m.collapsed[n] {
			return
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(m.root, 0)

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
}

func (m *browserModel) Init() tea.Cmd { return nil }

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "enter", " ":
			node := m.rows[m.cursor].node
			if len(node.Children) > 0 {
				m.collapsed[node] = !m.collapsed[node]
				m.rebuild()
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = len(m.rows) - 1
		}
	}

	// keep the cursor in the viewport
	visible := m.height - 2
	if visible < 1 {
		visible = 1
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	return m, nil
}

var (
	styleCursor   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleCollapse = lipgloss.NewStyle().Foreground(colorYellow)
)

func (m *browserModel) View() string {
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("quarry graph browser"))
	sb.WriteString(StyleDim.Render("  ↑/↓ move · enter toggle · q quit"))
	sb.WriteByte('\n')

	visible := m.height - 2
	if visible < 1 {
		visible = 1
	}
	end := min(m.offset+visible, len(m.rows))

	for i := m.offset; i < end; i++ {
		row := m.rows[i]
		line := strings.Repeat("  ", row.depth) + m.rowLabel(row)
		if i == m.cursor {
			line = styleCursor.Render("▸ ") + line
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (m *browserModel) rowLabel(row browserRow) string {
	n := row.node
	var label string
	if n.Dependency == nil {
		label = StyleDim.Render("(root)")
	} else {
		label = n.Dependency.Coordinate.String()
		if s := n.Dependency.Scope; s != "" {
			label += " " + styleScope.Render("("+s+")")
		}
	}
	if len(n.Children) > 0 && m.collapsed[n] {
		label += " " + styleCollapse.Render(fmt.Sprintf("[+%d]", n.Size()-1))
	}
	return label
}
