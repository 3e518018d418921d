package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/jrana/ibvs/internal/camera"
	"github.com/jrana/ibvs/internal/servo"
)

const (
	canvasWidth     = 48
	canvasHeight    = 20
	historyCapacity = 600
)

var (
	canvasStyle    = lipgloss.NewStyle().Padding(1, 2)
	statsStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	convergedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	graphStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model steps a servo loop one iteration per tick and draws the image plane:
// desired features as crosses, current features as dots.
type Model struct {
	ctrl    *servo.Controller
	cam     *camera.Camera
	scene   []camera.Vec3
	desired []servo.Point

	dt        float64
	maxIters  int
	tolerance float64

	initialPose camera.Pose
	canvas      *Canvas
	current     []servo.Point
	vels        []float64
	errNorm     float64
	errHistory  []float64
	iter        int
	t           float64
	running     bool
	converged   bool
	failure     string
}

// NewModel prepares the live view. The desired features are projected from
// the target pose once, as in loop.New.
func NewModel(ctrl *servo.Controller, cam *camera.Camera, scene []camera.Vec3, target camera.Pose, dt float64, maxIters int, tolerance float64) (Model, error) {
	desired, err := camera.New(target).Project(scene)
	if err != nil {
		return Model{}, fmt.Errorf("viz: projecting desired features: %w", err)
	}
	if err := ctrl.SetDesiredPoints(desired); err != nil {
		return Model{}, fmt.Errorf("viz: %w", err)
	}

	return Model{
		ctrl:        ctrl,
		cam:         cam,
		scene:       scene,
		desired:     desired,
		dt:          dt,
		maxIters:    maxIters,
		tolerance:   tolerance,
		initialPose: cam.Pose,
		canvas:      NewCanvas(canvasWidth, canvasHeight),
		errHistory:  make([]float64, 0, historyCapacity),
		running:     true,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		}
	case TickMsg:
		if m.running && !m.converged && m.failure == "" && m.iter < m.maxIters {
			m.step()
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// step runs one control iteration and moves the camera.
func (m *Model) step() {
	current, err := m.cam.Project(m.scene)
	if err != nil {
		m.failure = err.Error()
		return
	}
	if err := m.ctrl.SetCurrentPoints(current); err != nil {
		m.failure = err.Error()
		return
	}
	if err := m.ctrl.UpdateInteractionMatrix(); err != nil {
		m.failure = err.Error()
		return
	}
	vels, err := m.ctrl.Velocities()
	if err != nil {
		m.failure = err.Error()
		return
	}
	errNorm, err := m.ctrl.ErrorNorm()
	if err != nil {
		m.failure = err.Error()
		return
	}

	m.current = current
	m.vels = vels
	m.errNorm = errNorm
	m.errHistory = append(m.errHistory, errNorm)
	if len(m.errHistory) > historyCapacity {
		m.errHistory = m.errHistory[1:]
	}
	m.iter++
	m.t += m.dt

	if m.tolerance > 0 && errNorm < m.tolerance {
		m.converged = true
		return
	}
	m.cam.Apply(vels, m.ctrl.Mode(), m.dt)
}

func (m *Model) reset() {
	m.cam.Pose = m.initialPose
	m.current = nil
	m.vels = nil
	m.errNorm = 0
	m.errHistory = m.errHistory[:0]
	m.iter = 0
	m.t = 0
	m.converged = false
	m.failure = ""
	m.running = true
}

// toCanvas maps normalized image coordinates in (-1, 1) to sub-pixels.
func toCanvas(p servo.Point) (int, int) {
	cw, ch := canvasWidth*2, canvasHeight*4
	x := int((p.X + 1) / 2 * float64(cw-1))
	y := int((p.Y + 1) / 2 * float64(ch-1))
	return x, y
}

func (m *Model) draw() {
	m.canvas.Clear()
	for _, p := range m.desired {
		x, y := toCanvas(p)
		m.canvas.Mark(x, y)
	}
	for _, p := range m.current {
		x, y := toCanvas(p)
		m.canvas.Set(x, y)
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	status := "RUNNING"
	if m.converged {
		status = convergedStyle.Render("CONVERGED")
	} else if m.failure != "" {
		status = errorStyle.Render("FAILED: " + m.failure)
	} else if m.iter >= m.maxIters {
		status = "ITERATION LIMIT"
	} else if !m.running {
		status = "PAUSED"
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.ctrl.Mode().String())+" / "+m.ctrl.Interaction().String()) + "\n")
	s.WriteString(status + "\n\n")

	if len(m.errHistory) > 1 {
		chart := asciigraph.Plot(m.errHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("error norm"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Iteration") + valueStyle.Render(fmt.Sprintf("%d", m.iter)) + "\n")
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.t)) + "\n")
	s.WriteString(labelStyle.Render("Error norm") + valueStyle.Render(fmt.Sprintf("%.5f", m.errNorm)) + "\n")

	captions := velocityCaptions[m.ctrl.Mode().String()]
	for i, v := range m.vels {
		label := fmt.Sprintf("v%d", i)
		if i < len(captions) {
			label = captions[i]
		}
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(fmt.Sprintf("%+.4f", v)) + "\n")
	}

	pose := m.cam.Pose
	s.WriteString("\n" + labelStyle.Render("Camera") + valueStyle.Render(fmt.Sprintf("(%.2f, %.2f, %.2f) yaw %.3f", pose.X, pose.Y, pose.Z, pose.Yaw)) + "\n")

	s.WriteString(helpStyle.Render("\n──────────────────\nSP:Pause R:Reset Q:Quit"))

	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}
