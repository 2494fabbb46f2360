package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/ethobot/pkg/robot"
)

// Servo IDs probed when listing ports
const maxProbeID = 8

type PortsCommand struct {
	Baud int `long:"baud" default:"115200" description:"Sensor board baud rate to probe with"`
}

func (c *PortsCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Ethobot Port Scanner"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}

	rows := make([][]string, 0, len(ports))
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		rows = append(rows, []string{port, probeServos(port), probeBoard(port, c.Baud)})
	}

	if len(rows) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Port", "Servos", "Sensor board").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return subHeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Println(t.Render())
	return nil
}

func probeServos(port string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return dimStyle.Render("-")
	}
	defer bus.Close()

	servos, err := bus.Scan(ctx, 1, maxProbeID)
	if err != nil || len(servos) == 0 {
		return dimStyle.Render("-")
	}

	ids := make([]string, len(servos))
	for i, s := range servos {
		ids[i] = fmt.Sprintf("%d", s.ID)
	}
	desc := "IDs " + strings.Join(ids, ",")
	if isWheelBase(servos) {
		desc = successStyle.Render(desc + " (wheels)")
	}
	return desc
}

func probeBoard(port string, baud int) string {
	board, err := robot.OpenBoard(port, baud)
	if err != nil {
		return dimStyle.Render("-")
	}
	defer board.Close()

	v := board.ReadAnalog(0)
	if err := board.Err(); err != nil {
		return dimStyle.Render("no reply")
	}
	return successStyle.Render(fmt.Sprintf("A0 = %d", v))
}
