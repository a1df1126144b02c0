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
	"strconv"

	"github.com/pkg/errors"
)

// Repeat specifies how many blink cycles a run performs.
// The zero value is not valid; use RepeatForever or RepeatTimes.
type Repeat struct {
	forever bool
	cycles  uint64
}

// RepeatForever creates a Repeat that only ends on cancellation.
func RepeatForever() Repeat {
	return Repeat{forever: true}
}

// RepeatTimes creates a Repeat for the given (positive) number of cycles.
func RepeatTimes(cycles uint64) Repeat {
	return Repeat{cycles: cycles}
}

// RepeatFromCount maps a command line count value to a Repeat.
// Zero means unbounded; negative values are invalid.
func RepeatFromCount(count int) (Repeat, error) {
	if count < 0 {
		return Repeat{}, errors.Wrapf(ValidationError, "count must not be negative, got %d", count)
	}
	if count == 0 {
		return RepeatForever(), nil
	}
	return RepeatTimes(uint64(count)), nil
}

// Forever returns true when the repetition is unbounded.
func (r Repeat) Forever() bool {
	return r.forever
}

// Cycles returns the configured number of cycles.
// Only meaningful when Forever is false.
func (r Repeat) Cycles() uint64 {
	return r.cycles
}

// Done returns true when the given number of completed cycles
// exhausts the repetition.
func (r Repeat) Done(completed uint64) bool {
	return !r.forever && completed >= r.cycles
}

// Validate the repetition, returning nil on ok,
// or an error upon validation issues.
func (r Repeat) Validate() error {
	if !r.forever && r.cycles == 0 {
		return errors.Wrap(ValidationError, "cycle count must be positive")
	}
	return nil
}

func (r Repeat) String() string {
	if r.forever {
		return "unbounded"
	}
	return strconv.FormatUint(r.cycles, 10)
}
