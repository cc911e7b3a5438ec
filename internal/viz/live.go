package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/sim"
)

const (
	defaultWidth     = 60
	defaultHeight    = 24
	panelWidth       = 48
	historyCapacity  = 300
	maxStepsPerFrame = 64
	rotateStep       = 0.1
	frameRate        = time.Second / 30
)

const (
	statusRunning = "RUNNING"
	statusPaused  = "PAUSED"
	statusFault   = "FAULT"
)

type TickMsg time.Time

// Model steps a simulator on every tick and draws the population. Steps run
// on the Bubble Tea update goroutine, so large populations lower the frame
// rate rather than queueing frames.
type Model struct {
	sim     *sim.Simulator
	initial []body.Body
	bodies  []body.Body

	step          int
	merges        int
	stepsPerFrame int
	running       bool
	autoFit       bool
	err           error

	canvas       *Canvas
	camera       Camera
	view         View
	theme        int
	countHistory []float64
}

func NewModel(s *sim.Simulator, bodies []body.Body) Model {
	m := Model{
		sim:           s,
		initial:       body.CloneAll(bodies),
		bodies:        body.CloneAll(bodies),
		stepsPerFrame: 1,
		running:       true,
		autoFit:       true,
		canvas:        NewCanvas(defaultWidth, defaultHeight),
		camera:        NewCamera(),
		countHistory:  make([]float64, 0, historyCapacity),
	}
	m.view = FitView(m.bodies, m.camera)
	return m
}

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.err == nil {
				m.running = !m.running
			}
		case "r":
			m.reset()
		case "f":
			m.autoFit = !m.autoFit
			if !m.autoFit {
				m.view = FitView(m.bodies, m.camera)
			}
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "left", "h":
			m.camera.Rotate(-rotateStep, 0)
		case "right", "l":
			m.camera.Rotate(rotateStep, 0)
		case "up", "k":
			m.camera.Rotate(0, rotateStep)
		case "down", "j":
			m.camera.Rotate(0, -rotateStep)
		case "[":
			m.stepsPerFrame = clamp(m.stepsPerFrame/2, 1, maxStepsPerFrame)
		case "]":
			m.stepsPerFrame = clamp(m.stepsPerFrame*2, 1, maxStepsPerFrame)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		}
	case tea.WindowSizeMsg:
		m.canvas = NewCanvas(clamp(msg.Width-panelWidth, 10, 400), clamp(msg.Height-4, 5, 200))
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// advance runs stepsPerFrame simulation steps and stops on a numeric fault.
func (m *Model) advance() {
	for i := 0; i < m.stepsPerFrame; i++ {
		next, merges, err := m.sim.Step(m.step, m.bodies)
		m.bodies = next
		if err != nil {
			m.err = err
			m.running = false
			break
		}
		m.step++
		m.merges += merges
	}
	m.countHistory = append(m.countHistory, float64(len(m.bodies)))
	if len(m.countHistory) > historyCapacity {
		m.countHistory = m.countHistory[1:]
	}
}

func (m *Model) reset() {
	m.bodies = body.CloneAll(m.initial)
	m.step, m.merges = 0, 0
	m.err = nil
	m.running = true
	m.countHistory = m.countHistory[:0]
	m.view = FitView(m.bodies, m.camera)
}

// WithTheme selects a theme by name. Unknown names keep the current one.
func (m Model) WithTheme(name string) Model {
	for i, t := range Themes {
		if t.Name == name {
			m.theme = i
		}
	}
	return m
}

// Err returns the numeric fault that stopped the simulation, if any.
func (m Model) Err() error { return m.err }

// Bodies returns the current population.
func (m Model) Bodies() []body.Body { return m.bodies }

func (m Model) Steps() int { return m.step }

func (m Model) status() string {
	switch {
	case m.err != nil:
		return statusFault
	case m.running:
		return statusRunning
	default:
		return statusPaused
	}
}

func (m Model) View() string {
	st := Themes[m.theme].styles()
	view := m.view
	if m.autoFit {
		view = FitView(m.bodies, m.camera)
	}
	visible := Render(m.canvas, m.bodies, view, m.camera)
	cfg := m.sim.Config()

	var s strings.Builder
	s.WriteString(st.header.Render(fmt.Sprintf("GRAVSIM %dD", cfg.Dimensions)) + "\n")
	s.WriteString(st.status[m.status()].Render(m.status()) + "\n")
	if m.err != nil {
		s.WriteString(st.status[statusFault].Render(m.err.Error()) + "\n")
	}
	s.WriteString("\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", m.step))
	row("Time", fmt.Sprintf("%g", float64(m.step)*cfg.Dt))
	row("Bodies", fmt.Sprintf("%d (%d shown)", len(m.bodies), visible))
	row("Merges", fmt.Sprintf("%d", m.merges))
	row("Method", fmt.Sprintf("%s θ=%.2f", cfg.Method, cfg.Theta))
	row("Steps/frm", fmt.Sprintf("%d", m.stepsPerFrame))
	row("Zoom", fmt.Sprintf("%.2fx", m.camera.Zoom))
	if !m.autoFit {
		row("Frame", "fixed")
	}

	if len(m.countHistory) > 1 {
		chart := asciigraph.Plot(m.countHistory, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("Bodies"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset F:Frame Q:Quit\n+/-:Zoom ←→↑↓:Rotate [ ]:Speed T:Theme"))

	return lipgloss.JoinHorizontal(lipgloss.Top, st.canvas.Render(m.canvas.String()), st.panel.Render(s.String()))
}

// Run shows the live view until the user quits and returns the final model.
func Run(s *sim.Simulator, bodies []body.Body, theme string) (Model, error) {
	final, err := tea.NewProgram(NewModel(s, bodies).WithTheme(theme), tea.WithAltScreen()).Run()
	if err != nil {
		return Model{}, err
	}
	return final.(Model), nil
}
