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

	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

// BCM pins 0..27 on the 40-pin header.
const rpiPinCount = 28

type piBridge struct {
	mutex sync.Mutex
	owned map[int]struct{}
}

// NewRaspberryPiBridge implements the bridge for Raspberry PI's.
func NewRaspberryPiBridge() (API, error) {
	return &piBridge{
		owned: make(map[int]struct{}),
	}, nil
}

// Returns number of local pins
func (p *piBridge) PinCount() int {
	return rpiPinCount
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (p *piBridge) Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if _, found := p.owned[pinNumber]; found {
		outputFailuresTotal.Inc()
		return nil, errors.Wrapf(PinInUseError, "pin %d", pinNumber)
	}
	out, err := gpio.Output(pinNumber, activeLow, initialValue)
	if err != nil {
		outputFailuresTotal.Inc()
		return nil, errors.Wrapf(err, "Output[%d] failed", pinNumber)
	}
	p.owned[pinNumber] = struct{}{}
	return &piPin{bridge: p, pinNumber: pinNumber, out: out}, nil
}

func (p *piBridge) Close() error {
	return nil
}

func (p *piBridge) disown(pinNumber int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	delete(p.owned, pinNumber)
}

// piPin guards a sysfs output pin with a released-once check.
type piPin struct {
	mutex     sync.Mutex
	bridge    *piBridge
	pinNumber int
	out       gpio.OutputPin
	released  bool
}

// Write sets the logical value of the pin.
func (p *piPin) Write(value bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.released {
		return errors.Wrapf(PinReleasedError, "pin %d", p.pinNumber)
	}
	if err := p.out.Write(value); err != nil {
		return errors.Wrapf(err, "Write[%d] failed", p.pinNumber)
	}
	pinWritesTotal.WithLabelValues(strconv.Itoa(p.pinNumber)).Inc()
	return nil
}

// Release drives the pin to its inactive level and gives up ownership.
// The sysfs export has no unexport call at this driver version, so
// driving the pin low is the whole release.
func (p *piPin) Release() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.released {
		return errors.Wrapf(PinReleasedError, "pin %d", p.pinNumber)
	}
	p.released = true
	p.bridge.disown(p.pinNumber)
	pinReleasesTotal.WithLabelValues(strconv.Itoa(p.pinNumber)).Inc()
	if err := p.out.Write(false); err != nil {
		return errors.Wrapf(err, "Write[%d] failed", p.pinNumber)
	}
	return nil
}
