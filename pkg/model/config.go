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

package model

import (
	"time"

	"github.com/pkg/errors"
)

// DefaultPin is the GPIO pin an LED is expected on
// when no pin is configured.
const DefaultPin = 17

// BlinkConfig holds the configuration of a single blink run.
type BlinkConfig struct {
	// GPIO pin (BCM numbering) the LED is connected to.
	Pin int
	// Duration the pin is driven high in each cycle.
	OnDuration time.Duration
	// Duration the pin is driven low in each cycle.
	OffDuration time.Duration
	// Number of high/low cycles to run.
	Repeat Repeat
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
// Validation happens before any hardware is touched; whether the
// pin actually exists on the board is up to the GPIO driver.
func (c BlinkConfig) Validate() error {
	if c.Pin <= 0 {
		return errors.Wrapf(ValidationError, "pin must be positive, got %d", c.Pin)
	}
	if c.OnDuration <= 0 {
		return errors.Wrapf(ValidationError, "on-duration must be positive, got %s", c.OnDuration)
	}
	if c.OffDuration <= 0 {
		return errors.Wrapf(ValidationError, "off-duration must be positive, got %s", c.OffDuration)
	}
	if err := c.Repeat.Validate(); err != nil {
		return maskAny(err)
	}
	return nil
}
