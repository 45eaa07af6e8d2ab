// Package tui provides a live pattern editor and player for tonseq
package tui

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/sequence"
	"github.com/james-see/tonseq/pkg/tonnetz"
)

// Lattice-inspired color scheme
var (
	latticeTeal = lipgloss.Color("#2EC4B6")
	amber       = lipgloss.Color("#FF9F1C")
	silverGray  = lipgloss.Color("#C0C0C0")
	darkGray    = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(latticeTeal).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(latticeTeal).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(amber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(darkGray).
			Background(latticeTeal).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(latticeTeal).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateEdit State = iota
	StateMenu
	StateArgument
)

// MenuItem is one transformation the menu offers
type MenuItem struct {
	Title       string
	Description string
	Name        string // transformation name understood by Engine.Apply
	Prompt      string // argument prompt, empty when none is taken
}

var menuItems = []MenuItem{
	{Title: "Tonnetz", Description: "Transform triads and tetrads", Name: "tonnetz", Prompt: "operators (e.g. p r l, p12)"},
	{Title: "Triad Tonnetz", Description: "Transform three-note chords", Name: "triadTonnetz", Prompt: "operators"},
	{Title: "Tetra Tonnetz", Description: "Transform four-note chords", Name: "tetraTonnetz", Prompt: "qualified operators (e.g. p12 p23)"},
	{Title: "Chords", Description: "Build a chord on every pitch", Name: "tonnetzChords", Prompt: "chord type (M, m, 7, maj7...)"},
	{Title: "Hexatonic cycle", Description: "Six chords from P and L", Name: "hexaCycle"},
	{Title: "Octatonic cycle", Description: "Eight chords from P and R", Name: "octaCycle"},
	{Title: "Ennea cycle", Description: "Nine seventh chords", Name: "enneaCycle"},
	{Title: "Retrograde", Description: "Reverse the sequence", Name: "retrograde"},
	{Title: "Lead", Description: "Smooth voice leading between chords", Name: "lead"},
	{Title: "Key", Description: "Re-evaluate in another key", Name: "key", Prompt: "key (C, F#, Bb...)"},
	{Title: "Scale", Description: "Re-evaluate in another scale", Name: "scale", Prompt: "scale name or Scala steps"},
	{Title: "Octave", Description: "Shift by octaves", Name: "octave", Prompt: "octave offset"},
	{Title: "Invert", Description: "Chord inversion", Name: "invert", Prompt: "inversion"},
	{Title: "Clear", Description: "Drop every transformation"},
}

// Step is an applied transformation
type Step struct {
	Name string
	Arg  string
}

// Options configure the model
type Options struct {
	Pattern  string
	Sequence sequence.Options
	Space    tonnetz.Space
	Tempo    float64 // beats per minute
	Logger   *slog.Logger
}

// Model represents the TUI model
type Model struct {
	state     State
	menuIndex int
	input     textinput.Model
	argInput  textinput.Model
	spinner   spinner.Model

	opts    Options
	engine  *sequence.Engine
	steps   []Step
	err     error
	playing bool
	current int // index of the sounding event, -1 when stopped
	notes   []int

	// debounce and notify deliver re-evaluation requests from timers;
	// without notify edits are evaluated at once
	debounce func(f func())
	notify   func(tea.Msg)

	width  int
	height int
}

// patternChangedMsg asks for re-evaluation of the text being edited
type patternChangedMsg struct {
	text string
}

// tickMsg advances playback
type tickMsg struct{}

// New creates a new TUI model
func New(opts Options) Model {
	if opts.Tempo <= 0 {
		opts.Tempo = 120
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Space == (tonnetz.Space{}) {
		opts.Space = tonnetz.DefaultSpace
	}

	ti := textinput.New()
	ti.Placeholder = "0 2 4 [5 7] 024 r"
	ti.Prompt = "♪ "
	ti.SetValue(opts.Pattern)
	ti.Focus()

	arg := textinput.New()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(latticeTeal)

	m := Model{
		state:    StateEdit,
		input:    ti,
		argInput: arg,
		spinner:  s,
		opts:     opts,
		current:  -1,
	}
	m.rebuild()
	return m
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// rebuild evaluates the pattern and replays every applied step. A step that
// fails is dropped.
func (m *Model) rebuild() {
	m.err = nil
	e := sequence.New(m.input.Value(), m.opts.Sequence, sequence.WithLogger(m.opts.Logger))
	if err := e.Err(); err != nil {
		m.err = err
	}
	var kept []Step
	for _, st := range m.steps {
		before := e.Err()
		e.Apply(st.Name, st.Arg, m.opts.Space)
		if e.Err() != before {
			m.err = e.Err()
			continue
		}
		kept = append(kept, st)
	}
	m.steps = kept
	m.engine = e
	m.current = -1
}

// apply adds one step, keeping the engine unchanged when it fails
func (m *Model) apply(st Step) {
	before := m.engine.Err()
	next := m.engine.Clone()
	next.Apply(st.Name, st.Arg, m.opts.Space)
	if err := next.Err(); err != before {
		m.err = err
		return
	}
	m.err = nil
	m.engine = next
	m.steps = append(m.steps, st)
}

func (m Model) edited() tea.Cmd {
	text := m.input.Value()
	if m.notify == nil || m.debounce == nil {
		return func() tea.Msg { return patternChangedMsg{text: text} }
	}
	notify := m.notify
	m.debounce(func() { notify(patternChangedMsg{text: text}) })
	return nil
}

func (m Model) tick() tea.Cmd {
	dur := 0.25
	if m.current >= 0 && m.current < m.engine.Len() {
		dur = m.engine.Durations()[m.current]
	}
	// a whole note is four beats
	wait := time.Duration(dur * 4 * 60 / m.opts.Tempo * float64(time.Second))
	return tea.Tick(max(wait, 10*time.Millisecond), func(time.Time) tea.Msg { return tickMsg{} })
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case patternChangedMsg:
		if msg.text != m.input.Value() {
			return m, nil
		}
		m.rebuild()
		return m, nil

	case tickMsg:
		if !m.playing {
			return m, nil
		}
		return m.advance()

	case spinner.TickMsg:
		if !m.playing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+p":
			return m.togglePlay()
		}
		switch m.state {
		case StateEdit:
			return m.updateEdit(msg)
		case StateMenu:
			return m.updateMenu(msg)
		case StateArgument:
			return m.updateArgument(msg)
		}
	}

	return m, nil
}

func (m Model) togglePlay() (tea.Model, tea.Cmd) {
	if m.playing {
		m.playing = false
		m.current = -1
		m.notes = nil
		return m, nil
	}
	m.playing = true
	m.engine = m.engine.Clone()
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg { return tickMsg{} })
}

func (m Model) advance() (tea.Model, tea.Cmd) {
	ev, ok := m.engine.Next()
	if !ok {
		m.playing = false
		m.current = -1
		return m, nil
	}
	m.current = (m.engine.Index() + m.engine.Len() - 1) % m.engine.Len()
	m.notes = nil
	for _, n := range ev.Collect(event.FieldNote) {
		m.notes = append(m.notes, int(n))
	}
	return m, m.tick()
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.state = StateMenu
		m.input.Blur()
		return m, nil
	case "esc":
		return m, tea.Quit
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		return m, tea.Batch(cmd, m.edited())
	}
	return m, cmd
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		item := menuItems[m.menuIndex]
		switch {
		case item.Name == "":
			m.steps = nil
			m.rebuild()
		case item.Prompt != "":
			m.state = StateArgument
			m.argInput.SetValue("")
			m.argInput.Placeholder = item.Prompt
			return m, m.argInput.Focus()
		default:
			m.apply(Step{Name: item.Name})
		}
	case "tab", "esc":
		m.state = StateEdit
		return m, m.input.Focus()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateArgument(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.apply(Step{Name: menuItems[m.menuIndex].Name, Arg: strings.TrimSpace(m.argInput.Value())})
		m.argInput.Blur()
		m.state = StateMenu
		return m, nil
	case "esc":
		m.argInput.Blur()
		m.state = StateMenu
		return m, nil
	}
	var cmd tea.Cmd
	m.argInput, cmd = m.argInput.Update(msg)
	return m, cmd
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	// Header
	s.WriteString(asciiLogo())
	s.WriteString("\n")
	s.WriteString(m.viewPattern())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateArgument:
		s.WriteString(m.viewArgument())
	}

	// Footer help
	s.WriteString("\n")
	switch m.state {
	case StateEdit:
		s.WriteString(helpStyle.Render("tab: transformations • ctrl+p: play/stop • esc: quit"))
	default:
		s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • tab: edit pattern • ctrl+p: play/stop"))
	}

	return s.String()
}

func (m Model) viewPattern() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" PATTERN "))
	s.WriteString("\n")
	s.WriteString(m.input.View())
	s.WriteString("\n\n")

	notes := m.engine.Notes()
	cells := make([]string, len(notes))
	for i, n := range notes {
		cell := "r"
		if len(n) > 0 {
			cell = strings.Trim(fmt.Sprint(n), "[]")
		}
		if i == m.current {
			cell = cursorStyle.Render(cell)
		}
		cells[i] = cell
	}
	s.WriteString(strings.Join(cells, " │ "))

	if len(m.steps) > 0 {
		chain := make([]string, len(m.steps))
		for i, st := range m.steps {
			chain[i] = st.Name
			if st.Arg != "" {
				chain[i] += "(" + st.Arg + ")"
			}
		}
		s.WriteString("\n")
		s.WriteString(statusStyle.Render("→ " + strings.Join(chain, " → ")))
	}

	if m.playing {
		s.WriteString("\n")
		s.WriteString(statusStyle.Render(fmt.Sprintf("%s playing %v", m.spinner.View(), m.notes)))
	}
	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" TRANSFORM "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(amber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewArgument() string {
	var s strings.Builder

	item := menuItems[m.menuIndex]
	s.WriteString(titleStyle.Render(fmt.Sprintf(" %s ", strings.ToUpper(item.Title))))
	s.WriteString("\n\n")
	s.WriteString(m.argInput.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter: apply • esc: back to menu"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
  _____ ___  _  _ ___ ___ ___  
 |_   _/ _ \| \| / __| __/ _ \ 
   | || (_) | .' \__ \ _| (_) |
   |_| \___/|_|\_|___/___\__\_\
`
	return lipgloss.NewStyle().Foreground(latticeTeal).Render(logo)
}

// Run starts the TUI application. Edits are re-evaluated once typing pauses.
func Run(opts Options) error {
	m := New(opts)
	m.debounce = debounce.New(300 * time.Millisecond)
	var p *tea.Program
	m.notify = func(msg tea.Msg) { p.Send(msg) }
	p = tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
