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
	"github.com/pkg/errors"
)

// API of the bridge, the local GPIO hardware the runner drives
// an LED through.
type API interface {
	// Returns number of local pins
	PinCount() int
	// Output initializes a GPIO output pin with the given pin number
	// and initial logical value. The pin is owned exclusively until
	// it is released.
	Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error)
	Close() error
}

// OutputPin is the interface satisfied by GPIO output pins.
type OutputPin interface {
	// Write sets the logical value of the pin.
	Write(bool) error
	// Release drives the pin to its inactive level and gives up
	// ownership of it. Releasing the same pin twice is an error.
	Release() error
}

var (
	// PinInUseError is returned when an output pin is requested
	// that is already owned.
	PinInUseError = errors.New("pin already in use")
	// PinReleasedError is returned when a pin is used after
	// it has been released.
	PinReleasedError = errors.New("pin has been released")
)
