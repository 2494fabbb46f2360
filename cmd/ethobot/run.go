package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/ethobot/pkg/arbiter"
	"github.com/gwillem/ethobot/pkg/behavior"
	"github.com/gwillem/ethobot/pkg/control"
	"github.com/gwillem/ethobot/pkg/drive"
	"github.com/gwillem/ethobot/pkg/robot"
	"github.com/gwillem/ethobot/pkg/sensor"
)

type RunCommand struct {
	Hz        int  `long:"hz" default:"1000" description:"Control loop frequency"`
	Sim       bool `long:"sim" description:"Run against a simulated robot instead of hardware"`
	NoShuffle bool `long:"no-shuffle" description:"Keep the boot hierarchy visible when entering edit mode"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	statusHeight = 4 // running behavior, readings, summary, help
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Sensor traces on the chart
const (
	traceLeftIR     = "ir left"
	traceRightIR    = "ir right"
	traceLeftPhoto  = "photo left"
	traceRightPhoto = "photo right"
)

var traces = []string{traceLeftIR, traceRightIR, traceLeftPhoto, traceRightPhoto}

var traceColors = map[string]string{
	traceLeftIR:     "196", // red
	traceRightIR:    "208", // orange
	traceLeftPhoto:  "46",  // green
	traceRightPhoto: "51",  // cyan
}

// Keys for the robot's buttons
var buttonKeys = map[string]arbiter.Button{
	"tab":   arbiter.SideButton,
	"a":     arbiter.ButtonA,
	"enter": arbiter.ButtonA,
	"b":     arbiter.ButtonB,
	"c":     arbiter.ButtonC,
	"up":    arbiter.ButtonC,
	"x":     arbiter.ButtonX,
	"y":     arbiter.ButtonY,
	"z":     arbiter.ButtonZ,
	"down":  arbiter.ButtonZ,
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	firingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	modeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")).Padding(0, 1)
)

type runModel struct {
	ctrl     *control.Controller
	sim      *robot.Sim // nil on hardware
	pins     sensor.Pins
	bumpMode sensor.BumpMode
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool
	state    control.State
	lastSnap *sensor.Snapshot // previous readings, to freeze the chart when idle
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasChange checks if any charted reading has changed from the last state
func (m *runModel) hasChange(s sensor.Snapshot) bool {
	if m.lastSnap == nil {
		return true
	}
	l := m.lastSnap
	return s.LeftIR != l.LeftIR || s.RightIR != l.RightIR ||
		s.LeftPhoto != l.LeftPhoto || s.RightPhoto != l.RightPhoto
}

// Messages from the controller
type stateMsg control.State
type logMsg string

func waitForState(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - statusHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(ctrl *control.Controller, sim *robot.Sim, sensors robot.SensorsConfig) runModel {
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(0, 1024),
	)

	for _, name := range traces {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(traceColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return runModel{
		ctrl:     ctrl,
		sim:      sim,
		pins:     sensors.Pins,
		bumpMode: sensors.BumpMode,
		chart:    &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		if b, ok := buttonKeys[key]; ok {
			if !m.ctrl.Press(b) {
				m.addLog("Button queue full, press dropped")
			}
			return m, nil
		}
		if m.sim != nil {
			m.simKey(key)
		}

	case stateMsg:
		state := control.State(msg)
		m.state = state
		if state.Mode == arbiter.Operate && m.hasChange(state.Snapshot) {
			snap := state.Snapshot
			m.chart.PushDataSet(traceLeftIR, float64(snap.LeftIR))
			m.chart.PushDataSet(traceRightIR, float64(snap.RightIR))
			m.chart.PushDataSet(traceLeftPhoto, float64(snap.LeftPhoto))
			m.chart.PushDataSet(traceRightPhoto, float64(snap.RightPhoto))
			m.chart.DrawAll()
			m.lastSnap = &snap
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

// Readings the simulator keys produce
const (
	simObstacle = 600
	simOffHit   = 100 // off-center bump
	simCenHit   = 320 // centered bump
	simLightMin = 0
	simLightMax = 1023
	simLightDx  = 20
)

// simKey pokes the simulated sensors.
func (m *runModel) simKey(key string) {
	p := m.pins
	switch key {
	case "f":
		m.bump(p.FrontBump, p.FrontSwitches[sensor.Left], simOffHit)
	case "g":
		m.bump(p.FrontBump, p.FrontSwitches[sensor.Center], simCenHit)
	case "k":
		m.bump(p.BackBump, p.BackSwitches[sensor.Center], simOffHit)
	case "l":
		m.toggleObstacle(p.LeftIR)
	case "r":
		m.toggleObstacle(p.RightIR)
	case "[":
		m.shiftLight(-simLightDx)
	case "]":
		m.shiftLight(simLightDx)
	}
}

func (m *runModel) bump(analog, switchPin, value int) {
	if m.bumpMode == sensor.BumpDiscrete {
		// Switches pull low on contact; a second press releases
		m.sim.SetDigital(switchPin, !m.sim.ReadDigital(switchPin))
		return
	}
	m.sim.Pulse(analog, value)
}

func (m *runModel) toggleObstacle(ch int) {
	if m.sim.Analog(ch) > 0 {
		m.sim.SetAnalog(ch, 0)
	} else {
		m.sim.SetAnalog(ch, simObstacle)
	}
}

// shiftLight moves the light toward the left for negative dx. Photo
// readings grow as light falls.
func (m *runModel) shiftLight(dx int) {
	l := clampLight(m.sim.Analog(m.pins.LeftPhoto) + dx)
	r := clampLight(m.sim.Analog(m.pins.RightPhoto) - dx)
	m.sim.SetAnalog(m.pins.LeftPhoto, l)
	m.sim.SetAnalog(m.pins.RightPhoto, r)
}

func clampLight(v int) int {
	return max(simLightMin, min(simLightMax, v))
}

func (m runModel) View() string {
	if m.quitting {
		return "Arbitration stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Ethobot"))
	sb.WriteString(fmt.Sprintf(" - %d Hz ", m.ctrl.Hz()))
	sb.WriteString(modeStyle.Render(strings.ToUpper(m.state.Mode.String())))
	if m.sim != nil {
		sb.WriteString(statusStyle.Render("  simulated"))
	}
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	if m.state.Mode == arbiter.Edit {
		sb.WriteString(renderTable(m.state.Entries, m.state.Cursor))
		sb.WriteString("\n")
		sb.WriteString(renderLabels(m.state.Labels))
		sb.WriteString("\n")
	} else {
		sb.WriteString(chartStyle.Render(m.chart.View()))
		sb.WriteString("\n")
		sb.WriteString(renderLegend())
		sb.WriteString("\n")
		sb.WriteString(renderStatus(m.state))
		sb.WriteString("\n")
	}

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("No messages yet")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(m.help()))

	return sb.String()
}

func (m runModel) help() string {
	h := "tab: edit/operate  q: quit"
	if m.sim != nil {
		h += "  f/g/k: bump  l/r: obstacle  [/]: light"
	}
	return h
}

func renderLegend() string {
	var items []string
	for _, name := range traces {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(traceColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

func renderStatus(s control.State) string {
	var lines []string

	switch s.Decision.Outcome {
	case arbiter.Fired:
		lines = append(lines, firingStyle.Render(s.Decision.Entry.Name)+" "+s.Last.String())
	case arbiter.Stopped:
		lines = append(lines, statusStyle.Render("no behavior released"))
	default:
		lines = append(lines, fmt.Sprintf("%s  %s left", s.Last, s.Remaining))
	}

	snap := s.Snapshot
	bumps := fmt.Sprintf("bump F/B %d/%d", snap.FrontBump, snap.BackBump)
	if snap.Mode == sensor.BumpDiscrete {
		bumps = fmt.Sprintf("bump F %v B %v", snap.Front, snap.Back)
	}
	lines = append(lines, statusStyle.Render(fmt.Sprintf("IR L/R %d/%d  photo L/R %d/%d  %s",
		snap.LeftIR, snap.RightIR, snap.LeftPhoto, snap.RightPhoto, bumps)))

	if s.Summary != nil {
		names := make([]string, len(s.Summary))
		for i, e := range s.Summary {
			names[i] = fmt.Sprintf("%d. %s", i+1, e.Name)
		}
		lines = append(lines, statusStyle.Render("hierarchy: "+strings.Join(names, "  ")))
	}
	return strings.Join(lines, "\n")
}

func renderTable(entries []behavior.Entry, cursor int) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	inactiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	cursorStyle := lipgloss.NewStyle().Reverse(true).Padding(0, 1)

	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rank, active := "-", "○"
		if e.Active {
			rank, active = fmt.Sprintf("%d", i+1), "●"
		}
		key, _ := e.Type.MarshalText()
		rows = append(rows, []string{rank, e.Name, string(key), active})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(statusStyle).
		Headers("#", "Behavior", "Type", "Active").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == cursor:
				return cursorStyle
			case row >= 0 && row < len(entries) && !entries[row].Active:
				return inactiveStyle
			default:
				return cellStyle
			}
		})

	return t.Render()
}

var labelKeys = map[arbiter.Button]string{
	arbiter.ButtonA: "a",
	arbiter.ButtonB: "b",
	arbiter.ButtonC: "c/↑",
	arbiter.ButtonX: "x",
	arbiter.ButtonY: "y",
	arbiter.ButtonZ: "z/↓",
}

func renderLabels(labels map[arbiter.Button]string) string {
	var items []string
	for _, b := range arbiter.LabeledButtons {
		if text := labels[b]; text != "" {
			items = append(items, titleStyle.Render("["+labelKeys[b]+"]")+" "+text)
		}
	}
	return strings.Join(items, "  ")
}

// loadSettings reads the configuration. In simulation a missing file falls
// back to the defaults.
func loadSettings(path string, sim bool) (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(path)
	if err != nil {
		if sim && os.IsNotExist(err) {
			return robot.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// hardware bundles what the controller drives.
type hardware struct {
	reader   sensor.Reader
	actuator drive.Actuator
	motors   arbiter.Motors
	closers  []io.Closer
	sim      *robot.Sim
}

func openHardware(cfg *robot.Config, sim bool) (*hardware, error) {
	if sim {
		s := robot.NewSim(cfg.Sensors.Pins)
		return &hardware{reader: s, actuator: s, motors: s, sim: s}, nil
	}

	wheels, err := robot.NewWheels(cfg.Wheels.Port, cfg.Wheels.Calibration)
	if err != nil {
		return nil, err
	}
	board, err := robot.OpenBoard(cfg.Sensors.Port, cfg.Sensors.BaudRate)
	if err != nil {
		wheels.Close()
		return nil, err
	}
	return &hardware{
		reader:   board,
		actuator: wheels,
		motors:   wheels,
		closers:  []io.Closer{board, wheels},
	}, nil
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadSettings(configPath(), c.Sim)
	if os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "No configuration found in %s. Run 'ethobot setup' first, or use --sim.\n", configPath())
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", configPath(), err)
		os.Exit(1)
	}
	if c.NoShuffle {
		cfg.Shuffle = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration in %s: %v\n", configPath(), err)
		os.Exit(1)
	}

	if !c.Sim {
		if cfg.Wheels.Port == "" || cfg.Sensors.Port == "" {
			fmt.Fprintln(os.Stderr, "Hardware not configured. Run 'ethobot setup' first.")
			os.Exit(1)
		}
		if !cfg.Wheels.IsCalibrated() {
			fmt.Fprintln(os.Stderr, "Wheels not calibrated. Run 'ethobot setup' first.")
			os.Exit(1)
		}
		fmt.Printf("Loaded configuration from %s\n", configPath())
	}

	hw, err := openHardware(cfg, c.Sim)
	if err != nil {
		log.Fatalf("Failed to open hardware: %v", err)
	}

	ctrl, err := control.NewController(control.Config{
		Settings: cfg,
		Reader:   hw.reader,
		Actuator: hw.actuator,
		Motors:   hw.motors,
		Closers:  hw.closers,
		Hz:       c.Hz,
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}
	defer ctrl.Close()

	// Start controller in background
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller error: %v", err)
		}
	}()

	// Run TUI
	p := tea.NewProgram(initialRunModel(ctrl, hw.sim, cfg.Sensors), tea.WithAltScreen())
	_, err = p.Run()

	// Let the loop stop the wheels before the ports close
	cancel()
	<-done

	if err != nil {
		log.Fatalf("Error running program: %v", err)
	}
	return nil
}
