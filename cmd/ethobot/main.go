package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/ethobot/pkg/robot"
)

type Options struct {
	Config string `short:"c" long:"config" description:"Configuration file (.json, .yaml or .yml), default ethobot.json"`

	Setup SetupCommand `command:"setup" description:"Scan for wheels and the sensor board and write the configuration"`
	Run   RunCommand   `command:"run" alias:"operate" description:"Run the behavior hierarchy with a terminal UI"`
	Ports PortsCommand `command:"ports" description:"List serial ports and what answers on them"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func configPath() string {
	if opts.Config == "" {
		return robot.DefaultConfigFile
	}
	return opts.Config
}

func main() {
	parser.LongDescription = "Ethobot - subsumption behavior control for a two-wheeled robot"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
