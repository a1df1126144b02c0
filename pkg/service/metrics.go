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

package service

import (
	"github.com/ledworks/BlinkRunner/pkg/metrics"
)

const (
	subSystem = "service"
)

var (
	// Total number of blink runs started
	runsTotal = metrics.MustRegisterCounter(subSystem,
		"runs_total",
		"Total number of blink runs started")
	// Total number of completed blink cycles
	blinkCyclesTotal = metrics.MustRegisterCounter(subSystem,
		"blink_cycles_total",
		"Total number of completed blink cycles")
)
