//    Copyright 2024 The BlinkRunner authors
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	terminate "github.com/pulcy/go-terminate"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ledworks/BlinkRunner/pkg/environment"
	"github.com/ledworks/BlinkRunner/pkg/logging"
	"github.com/ledworks/BlinkRunner/pkg/model"
	"github.com/ledworks/BlinkRunner/pkg/service"
	"github.com/ledworks/BlinkRunner/pkg/service/bridge"
	"github.com/ledworks/BlinkRunner/pkg/ui"
)

const (
	projectName = "LED Blink Runner"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var bridgeType string
	var pin int
	var interval float64
	var count int
	var withUI bool

	pflag.StringVarP(&levelFlag, "level", "l", "debug", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", "auto", "Type of bridge to use (auto|rpi|virtual)")
	pflag.IntVar(&pin, "pin", model.DefaultPin, "GPIO pin (BCM numbering) the LED is connected to")
	pflag.Float64Var(&interval, "interval", 1.0, "Seconds between on/off transitions")
	pflag.IntVar(&count, "count", 0, "Number of blink cycles (0 = blink until interrupted)")
	pflag.BoolVar(&withUI, "ui", false, "Show the lamp monitor (virtual bridge only)")
	pflag.Parse()

	logger, err := logging.NewLogger(os.Stderr, levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s' passed to --level\n", levelFlag)
	}

	if bridgeType == "auto" {
		bridgeType = environment.AutoDetectBridgeType(logger)
	}
	var br bridge.API
	switch bridgeType {
	case "rpi":
		br, err = bridge.NewRaspberryPiBridge()
		if err != nil {
			Exitf("Failed to initialize Raspberry Pi Bridge: %v\n", err)
		}
	case "virtual":
		br, err = bridge.NewVirtualBridge()
		if err != nil {
			Exitf("Failed to initialize Virtual Bridge: %v\n", err)
		}
	default:
		Exitf("Unknown bridge type '%s' (auto|rpi|virtual)\n", bridgeType)
	}
	if withUI && bridgeType != "virtual" {
		Exitf("The lamp monitor requires the virtual bridge\n")
	}

	repeat, err := model.RepeatFromCount(count)
	if err != nil {
		Exitf("Invalid count: %v\n", err)
	}
	config := model.BlinkConfig{
		Pin:         pin,
		OnDuration:  time.Duration(interval * float64(time.Second)),
		OffDuration: time.Duration(interval * float64(time.Second)),
		Repeat:      repeat,
	}
	svc, err := service.NewService(service.Config{
		BlinkConfig: config,
	}, service.Dependencies{
		Log:    logger,
		Bridge: br,
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	var prog *tea.Program
	if withUI {
		prog = tea.NewProgram(ui.New(config, svc, cancel))
		unregister := svc.RegisterStateReceiver(func(ev service.LedState) {
			prog.Send(ui.StateMsg(ev))
		})
		defer unregister()
		g.Go(func() error {
			_, err := prog.Run()
			// Quitting the monitor stops the run.
			cancel()
			return err
		})
	}
	g.Go(func() error {
		err := svc.Run(ctx)
		if prog != nil {
			prog.Quit()
		}
		return err
	})
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %#v", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
