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

package bridge

import (
	"github.com/ledworks/BlinkRunner/pkg/metrics"
)

const (
	subSystem = "bridge"
)

var (
	// Total number of writes per GPIO pin
	pinWritesTotal = metrics.MustRegisterCounterVec(subSystem,
		"pin_writes_total",
		"Total number of writes per GPIO pin",
		"pin")
	// Total number of releases per GPIO pin
	pinReleasesTotal = metrics.MustRegisterCounterVec(subSystem,
		"pin_releases_total",
		"Total number of releases per GPIO pin",
		"pin")
	// Total number of failed GPIO output acquisitions
	outputFailuresTotal = metrics.MustRegisterCounter(subSystem,
		"output_failures_total",
		"Total number of failed GPIO output acquisitions")
)
