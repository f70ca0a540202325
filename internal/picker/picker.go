// Package picker is a small TUI for choosing one cached icon entry.
package picker

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/nikbrunner/bmicon/internal/icon"
	"github.com/nikbrunner/bmicon/internal/search"
)

// Industrial palette: grayscale with a single desaturated teal accent.
var (
	primary = lipgloss.AdaptiveColor{Light: "#505050", Dark: "#A0A0A0"}
	subtle  = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#606060"}
	accent  = lipgloss.AdaptiveColor{Light: "#4A7070", Dark: "#5F8787"}

	headerStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true).MarginBottom(1)
	normalStyle   = lipgloss.NewStyle().Foreground(primary)
	selectedStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	matchStyle    = lipgloss.NewStyle().Foreground(accent).Underline(true)
	detailStyle   = lipgloss.NewStyle().Foreground(subtle).Italic(true)
	hintKeyStyle  = lipgloss.NewStyle().Foreground(accent)
	hintDescStyle = lipgloss.NewStyle().Foreground(subtle)
)

// Action is what the user asked to do with the selected entry.
type Action int

const (
	ActionNone Action = iota
	ActionRefresh
	ActionCopy
)

// Picker lists search results and lets the user pick one.
type Picker struct {
	results   []search.Result
	query     string
	keys      KeyMap
	cursor    int
	offset    int
	action    Action
	cancelled bool
	width     int
	height    int
}

// New creates a new Picker with the given search results.
func New(results []search.Result, query string) Picker {
	return Picker{
		results: results,
		query:   query,
		keys:    DefaultKeyMap(),
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.scroll()
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Quit):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Refresh):
			if len(p.results) > 0 {
				p.action = ActionRefresh
				return p, tea.Quit
			}

		case key.Matches(msg, p.keys.Copy):
			if len(p.results) > 0 {
				p.action = ActionCopy
				return p, tea.Quit
			}

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}

		case key.Matches(msg, p.keys.Top):
			p.cursor = 0

		case key.Matches(msg, p.keys.Bottom):
			if len(p.results) > 0 {
				p.cursor = len(p.results) - 1
			}
		}
		p.scroll()
	}

	return p, nil
}

// visible is how many two-line rows fit between header and footer.
func (p Picker) visible() int {
	n := (p.height - 4) / 2
	if n < 1 {
		return 1
	}
	return n
}

// scroll keeps the cursor inside the visible window.
func (p *Picker) scroll() {
	n := p.visible()
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+n {
		p.offset = p.cursor - n + 1
	}
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	if len(p.results) == 0 {
		b.WriteString(detailStyle.Render("No cached entries match"))
		b.WriteString("\n")
	}

	end := min(p.offset+p.visible(), len(p.results))
	for i := p.offset; i < end; i++ {
		r := p.results[i]
		cursor := "  "
		if i == p.cursor {
			cursor = "> "
		}

		fmt.Fprintf(&b, "%s%s\n", cursor, highlight(r, i == p.cursor, p.width-2))
		fmt.Fprintf(&b, "   %s\n", detailStyle.Render(truncate(describe(r.Entry), p.width-3)))
	}

	b.WriteString("\n")
	b.WriteString(p.footer())

	return b.String()
}

func (p Picker) footer() string {
	var parts []string
	for _, h := range p.keys.hints() {
		help := h.Help()
		parts = append(parts, hintKeyStyle.Render(help.Key)+" "+hintDescStyle.Render(help.Desc))
	}
	return strings.Join(parts, "  ")
}

// truncate cuts s to width terminal cells. Data URLs easily run to
// thousands of characters.
func truncate(s string, width int) string {
	if width < 1 {
		width = 1
	}
	return runewidth.Truncate(s, width, "…")
}

// highlight renders the entry key with matched characters emphasised.
func highlight(r search.Result, selected bool, width int) string {
	base := normalStyle
	if selected {
		base = selectedStyle
	}
	text := truncate(r.Entry.Key, width)
	if len(r.MatchedIndexes) == 0 {
		return base.Render(text)
	}

	matched := make(map[int]bool, len(r.MatchedIndexes))
	for _, i := range r.MatchedIndexes {
		matched[i] = true
	}

	// MatchedIndexes are byte offsets
	var b strings.Builder
	for i, ch := range text {
		if matched[i] {
			b.WriteString(matchStyle.Render(string(ch)))
		} else {
			b.WriteString(base.Render(string(ch)))
		}
	}
	return b.String()
}

func describe(e icon.Entry) string {
	ref := "default"
	if !icon.IsDefault(e.Icon) {
		ref = e.Icon.String()
	}
	return fmt.Sprintf("%s  (resolved %s)", ref, e.ResolvedAt.Format("2006-01-02 15:04"))
}

// Selected returns the highlighted entry once an action was chosen.
func (p Picker) Selected() (icon.Entry, bool) {
	if p.cancelled || p.action == ActionNone || p.cursor >= len(p.results) {
		return icon.Entry{}, false
	}
	return p.results[p.cursor].Entry, true
}

// Action returns the chosen action, ActionNone if cancelled.
func (p Picker) Action() Action {
	if p.cancelled {
		return ActionNone
	}
	return p.action
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
