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

	terminate "github.com/pulcy/go-terminate"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ledworks/BlinkRunner/pkg/environment"
	"github.com/ledworks/BlinkRunner/pkg/logging"
	"github.com/ledworks/BlinkRunner/pkg/model"
	"github.com/ledworks/BlinkRunner/pkg/service"
	"github.com/ledworks/BlinkRunner/pkg/service/bridge"
)

const (
	projectName = "LED Simple Runner"

	// Single fixed cycle: 3 seconds on, 1 second off.
	ledOnDuration  = 3 * time.Second
	ledOffDuration = time.Second
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var bridgeType string

	pflag.StringVarP(&levelFlag, "level", "l", "debug", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", "auto", "Type of bridge to use (auto|rpi|virtual)")
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

	svc, err := service.NewService(service.Config{
		BlinkConfig: model.BlinkConfig{
			Pin:         model.DefaultPin,
			OnDuration:  ledOnDuration,
			OffDuration: ledOffDuration,
			Repeat:      model.RepeatTimes(1),
		},
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
	g.Go(func() error { return svc.Run(ctx) })
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %#v", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
