package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/ethobot/pkg/robot"
	"github.com/gwillem/ethobot/pkg/sensor"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Wheel servo IDs searched for on each bus
const (
	minWheelID = 1
	maxWheelID = 2
)

type SetupCommand struct {
	SkipBoard bool `long:"skip-board" description:"Configure the wheels only"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Ethobot Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	// Start from the existing file so hierarchy and thresholds survive
	config := robot.Default()
	if robot.ConfigExists(configPath()) {
		existing, err := robot.LoadConfigFrom(configPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", configPath(), err)
			os.Exit(1)
		}
		config = existing
		fmt.Printf("Updating configuration in %s\n\n", configPath())
	}

	// Step 1: Find and identify the wheels
	scanForWheels(config)

	if err := config.SaveTo(configPath()); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	// Step 2: Sensor board
	if !c.SkipBoard {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Sensor Board ━━━"))
		fmt.Println()
		configureBoard(config)

		if err := config.SaveTo(configPath()); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", configPath())
	fmt.Println()
	fmt.Println("Start the robot with: " + headerStyle.Render("ethobot run"))

	return nil
}

func scanForWheels(config *robot.Config) {
	fmt.Println("Scanning for wheel servos...")
	fmt.Println()

	bases := findWheelBuses()

	if len(bases) == 0 {
		fmt.Println("No wheel servos found.")
		fmt.Println("Make sure the servo board is connected and powered on.")
		os.Exit(1)
	}

	base := bases[0]
	if len(bases) > 1 {
		base = pickBase(bases)
	}
	for _, b := range bases {
		if b.port != base.port {
			b.bus.Close()
		}
	}

	fmt.Printf("Using wheels on %s. Let's identify them...\n\n", base.port)

	cal := identifyWheelsWithWiggle(base)

	fmt.Println()
	mirrored := true
	confirm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Is the right wheel mounted mirrored?").
				Description("Most two-wheeled bases mount the servos facing each other").
				Affirmative("Yes").
				Negative("No").
				Value(&mirrored),
		),
	)
	if err := confirm.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	if !mirrored {
		right := cal[robot.RightWheel]
		right.RangeMin, right.RangeMax = min(right.RangeMin, right.RangeMax), max(right.RangeMin, right.RangeMax)
		cal[robot.RightWheel] = right
	}

	// Display results
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Wheels identified:"))
	for _, name := range robot.AllWheels() {
		wc := cal[name]
		fmt.Printf("  %-6s servo %d, range %d..%d\n", name+":", wc.ID, wc.RangeMin, wc.RangeMax)
	}

	config.Wheels = robot.WheelsConfig{
		Port:        base.port,
		Calibration: cal,
	}
}

type baseInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func findWheelBuses() []baseInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var bases []baseInfo

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: 1_000_000,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			cancel()
			continue
		}

		servos, err := bus.Scan(ctx, minWheelID, maxWheelID)
		cancel()

		if err != nil {
			bus.Close()
			continue
		}

		if isWheelBase(servos) {
			fmt.Printf("  Found wheel servos on %s\n", port)
			bases = append(bases, baseInfo{
				port:   port,
				servos: servos,
				bus:    bus,
			})
		} else {
			bus.Close()
		}
	}

	return bases
}

func isWheelBase(servos []feetech.FoundServo) bool {
	if len(servos) != maxWheelID-minWheelID+1 {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}

	for i := minWheelID; i <= maxWheelID; i++ {
		if !ids[i] {
			return false
		}
	}

	return true
}

func pickBase(bases []baseInfo) baseInfo {
	var options []huh.Option[int]
	for i, b := range bases {
		options = append(options, huh.NewOption(b.port, i))
	}

	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Several servo buses found. Which one drives the wheels?").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return bases[choice]
}

// identifyWheelsWithWiggle nudges the first servo and asks which wheel moved.
// The other servo is the other wheel.
func identifyWheelsWithWiggle(base baseInfo) robot.Calibration {
	defer base.bus.Close()

	ctx := context.Background()
	ids := make([]int, 0, len(base.servos))
	for _, s := range base.servos {
		ids = append(ids, s.ID)
	}
	slices.Sort(ids)

	first := base.servos[slices.IndexFunc(base.servos, func(s feetech.FoundServo) bool { return s.ID == ids[0] })]
	servo := feetech.NewServo(base.bus, first.ID, first.Model)

	if err := robot.SetVelocityMode(ctx, servo); err != nil {
		fmt.Printf("  Error setting velocity mode: %v\n", err)
	} else if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
	} else {
		fmt.Printf("\n  Wiggling servo %d on %s...\n", first.ID, base.port)

		// Wiggle: a short, slow spin each way
		wiggleSpeed := robot.MaxWheelVelocity / 8
		spinTime := 400 * time.Millisecond
		servo.SetVelocity(ctx, wiggleSpeed)
		time.Sleep(spinTime)
		servo.SetVelocity(ctx, -wiggleSpeed)
		time.Sleep(spinTime)

		servo.SetVelocity(ctx, 0)
		servo.Disable(ctx)
	}

	// Ask user which wheel this is
	var wheel robot.WheelName
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[robot.WheelName]().
				Title(fmt.Sprintf("Which wheel is servo %d?", first.ID)).
				Description("The wheel that just wiggled").
				Options(
					huh.NewOption("Left", robot.LeftWheel),
					huh.NewOption("Right", robot.RightWheel),
				).
				Value(&wheel),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	cal := robot.DefaultCalibration()
	left, right := cal[robot.LeftWheel], cal[robot.RightWheel]
	left.ID, right.ID = ids[0], ids[1]
	if wheel == robot.RightWheel {
		left.ID, right.ID = ids[1], ids[0]
	}
	cal[robot.LeftWheel], cal[robot.RightWheel] = left, right
	return cal
}

func configureBoard(config *robot.Config) {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return
	}

	var options []huh.Option[string]
	for _, port := range ports {
		if strings.Contains(port, "Bluetooth") || port == config.Wheels.Port {
			continue
		}
		options = append(options, huh.NewOption(port, port))
	}
	if len(options) == 0 {
		fmt.Println("No serial port left for the sensor board.")
		fmt.Println("Connect it and run setup again, or use 'ethobot run --sim'.")
		return
	}

	port := config.Sensors.Port
	mode := config.Sensors.BumpMode
	if mode == "" {
		mode = sensor.BumpSticky
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the sensor board on?").
				Options(options...).
				Value(&port),
			huh.NewSelect[sensor.BumpMode]().
				Title("How are the bumpers wired?").
				Options(
					huh.NewOption("One analog bumper per side", sensor.BumpSticky),
					huh.NewOption("Three switches per side", sensor.BumpDiscrete),
				).
				Value(&mode),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	config.Sensors.Port = port
	config.Sensors.BumpMode = mode

	board, err := robot.OpenBoard(port, config.Sensors.BaudRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening sensor board: %v\n", err)
		return
	}
	defer board.Close()

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("Check the sensors"))
	fmt.Println("Cover the photocells, hold a hand in front of each IR sensor and press the bumpers.")
	fmt.Println()

	model := newSensorCheckModel(sensor.New(board, config.Sensors.Pins, mode), board)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running sensor check: %v\n", err)
	}
}

// Sensor check TUI model
type sensorCheckModel struct {
	sensors  *sensor.Sensors
	board    *robot.Board
	rows     []sensorRow
	quitting bool
}

// sensorRow tracks the range seen on one reading.
type sensorRow struct {
	name          string
	read          func(sensor.Snapshot) int
	cur, min, max int
	seen          bool
}

type tickMsg time.Time

func newSensorCheckModel(s *sensor.Sensors, board *robot.Board) sensorCheckModel {
	rows := []sensorRow{
		{name: "photo left", read: func(s sensor.Snapshot) int { return s.LeftPhoto }},
		{name: "photo right", read: func(s sensor.Snapshot) int { return s.RightPhoto }},
		{name: "ir left", read: func(s sensor.Snapshot) int { return s.LeftIR }},
		{name: "ir right", read: func(s sensor.Snapshot) int { return s.RightIR }},
		{name: "bump front", read: func(s sensor.Snapshot) int { return bumpReading(s, sensor.Front) }},
		{name: "bump back", read: func(s sensor.Snapshot) int { return bumpReading(s, sensor.Back) }},
	}
	return sensorCheckModel{sensors: s, board: board, rows: rows}
}

// bumpReading shows discrete bumpers as a count of closed switches.
func bumpReading(s sensor.Snapshot, side sensor.Side) int {
	if s.Mode != sensor.BumpDiscrete {
		return s.BumpValue(side)
	}
	sw := s.Front
	if side == sensor.Back {
		sw = s.Back
	}
	n := 0
	for _, closed := range sw {
		if closed {
			n++
		}
	}
	return n
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m sensorCheckModel) Init() tea.Cmd {
	return tick()
}

func (m sensorCheckModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		// Fresh latches each tick so a release shows
		m.sensors.ClearBumps()
		m.sensors.Refresh()
		snap := m.sensors.Snapshot()
		for i := range m.rows {
			r := &m.rows[i]
			r.cur = r.read(snap)
			if !r.seen {
				r.min, r.max, r.seen = r.cur, r.cur, true
			}
			r.min = min(r.min, r.cur)
			r.max = max(r.max, r.cur)
		}
		return m, tick()
	}

	return m, nil
}

func (m sensorCheckModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	// Table styles
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableSensorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.rows))
	moved := make([]bool, 0, len(m.rows))
	for _, r := range m.rows {
		moved = append(moved, r.max > r.min)
		rows = append(rows, []string{
			r.name,
			fmt.Sprintf("%d", r.cur),
			fmt.Sprintf("%d", r.min),
			fmt.Sprintf("%d", r.max),
			fmt.Sprintf("%d", r.max-r.min),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Sensor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableSensorStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(moved) && moved[row] {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n")
	if err := m.board.Err(); err != nil {
		sb.WriteString(tableRangeLowStyle.Render(err.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
