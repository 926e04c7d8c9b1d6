package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Terminal picker shown when a --url target turns out to be a
// link-roundup page. The operator chooses which outbound links to
// process; everything starts checked.

// style constants
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	checkedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)
)

const pickerPageSize = 15

type linkPickerModel struct {
	source  string
	links   []string
	checked []bool
	cursor  int
	offset  int

	confirmed bool
	cancelled bool
}

func newLinkPickerModel(sourceURL string, links []string) linkPickerModel {
	checked := make([]bool, len(links))
	for i := range checked {
		checked[i] = true
	}
	return linkPickerModel{source: sourceURL, links: links, checked: checked}
}

func (m linkPickerModel) Init() tea.Cmd { return nil }

func (m linkPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			if m.cursor < m.offset {
				m.offset = m.cursor
			}

		case "down", "j":
			if m.cursor < len(m.links)-1 {
				m.cursor++
			}
			if m.cursor >= m.offset+pickerPageSize {
				m.offset = m.cursor - pickerPageSize + 1
			}

		case " ", "x":
			m.checked[m.cursor] = !m.checked[m.cursor]

		case "a":
			for i := range m.checked {
				m.checked[i] = true
			}

		case "n":
			for i := range m.checked {
				m.checked[i] = false
			}

		case "enter":
			m.confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m linkPickerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Links found on %s", m.source)) + "\n")

	end := m.offset + pickerPageSize
	if end > len(m.links) {
		end = len(m.links)
	}
	for i := m.offset; i < end; i++ {
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		checked := " "
		link := m.links[i]
		if m.checked[i] {
			checked = "x"
			link = checkedStyle.Render(link)
		}
		b.WriteString(fmt.Sprintf("  %s[%s] %s\n", prefix, checked, link))
	}
	if len(m.links) > pickerPageSize {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d", m.offset+1, end, len(m.links))) + "\n")
	}

	selected := 0
	for _, c := range m.checked {
		if c {
			selected++
		}
	}
	b.WriteString(fmt.Sprintf("\n  %d of %d selected\n", selected, len(m.links)))
	b.WriteString(helpStyle.Render("  j/k or arrows to navigate | space to toggle | a all | n none | enter to confirm | q to cancel"))
	b.WriteString("\n")

	return b.String()
}

func pickLinks(sourceURL string, links []string) ([]string, error) {
	p := tea.NewProgram(newLinkPickerModel(sourceURL, links), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	final := result.(linkPickerModel)
	if final.cancelled || !final.confirmed {
		return nil, fmt.Errorf("cancelled")
	}

	var selected []string
	for i, link := range final.links {
		if final.checked[i] {
			selected = append(selected, link)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no links selected")
	}
	return selected, nil
}
