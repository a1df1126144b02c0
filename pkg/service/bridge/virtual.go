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
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

const virtualPinCount = 28

// Recorder gives tests and tooling access to the state recorded
// by the virtual bridge.
type Recorder interface {
	// Level returns the current logical level of the given pin.
	Level(pinNumber int) bool
	// Transitions returns the logical values written to the given
	// pin, in write order.
	Transitions(pinNumber int) []bool
	// Releases returns how often the given pin has been released.
	Releases(pinNumber int) int
}

type virtualBridge struct {
	mutex    sync.Mutex
	owned    map[int]struct{}
	levels   map[int]bool
	history  map[int][]bool
	releases map[int]int
}

// NewVirtualBridge implements the bridge for machines without
// GPIO hardware. Pin levels are kept in memory and recorded.
func NewVirtualBridge() (API, error) {
	return &virtualBridge{
		owned:    make(map[int]struct{}),
		levels:   make(map[int]bool),
		history:  make(map[int][]bool),
		releases: make(map[int]int),
	}, nil
}

// Returns number of local pins
func (v *virtualBridge) PinCount() int {
	return virtualPinCount
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (v *virtualBridge) Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if pinNumber < 0 || pinNumber >= virtualPinCount {
		outputFailuresTotal.Inc()
		return nil, errors.Errorf("invalid pin %d, range [0..%d]", pinNumber, virtualPinCount-1)
	}
	if _, found := v.owned[pinNumber]; found {
		outputFailuresTotal.Inc()
		return nil, errors.Wrapf(PinInUseError, "pin %d", pinNumber)
	}
	v.owned[pinNumber] = struct{}{}
	v.levels[pinNumber] = initialValue
	return &virtualPin{bridge: v, pinNumber: pinNumber}, nil
}

func (v *virtualBridge) Close() error {
	return nil
}

// Level returns the current logical level of the given pin.
func (v *virtualBridge) Level(pinNumber int) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.levels[pinNumber]
}

// Transitions returns the logical values written to the given pin.
func (v *virtualBridge) Transitions(pinNumber int) []bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	result := make([]bool, len(v.history[pinNumber]))
	copy(result, v.history[pinNumber])
	return result
}

// Releases returns how often the given pin has been released.
func (v *virtualBridge) Releases(pinNumber int) int {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.releases[pinNumber]
}

func (v *virtualBridge) write(pinNumber int, value bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.levels[pinNumber] = value
	v.history[pinNumber] = append(v.history[pinNumber], value)
}

func (v *virtualBridge) release(pinNumber int) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.levels[pinNumber] = false
	v.releases[pinNumber]++
	delete(v.owned, pinNumber)
}

type virtualPin struct {
	mutex     sync.Mutex
	bridge    *virtualBridge
	pinNumber int
	released  bool
}

// Write sets the logical value of the pin.
func (p *virtualPin) Write(value bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.released {
		return errors.Wrapf(PinReleasedError, "pin %d", p.pinNumber)
	}
	p.bridge.write(p.pinNumber, value)
	pinWritesTotal.WithLabelValues(strconv.Itoa(p.pinNumber)).Inc()
	return nil
}

// Release drives the pin to its inactive level and gives up ownership.
func (p *virtualPin) Release() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.released {
		return errors.Wrapf(PinReleasedError, "pin %d", p.pinNumber)
	}
	p.released = true
	p.bridge.release(p.pinNumber)
	pinReleasesTotal.WithLabelValues(strconv.Itoa(p.pinNumber)).Inc()
	return nil
}
