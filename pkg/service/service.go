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
	"context"
	"sync"
	"sync/atomic"

	humanize "github.com/dustin/go-humanize"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/mattn/go-pubsub"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ledworks/BlinkRunner/pkg/model"
	"github.com/ledworks/BlinkRunner/pkg/service/bridge"
	"github.com/ledworks/BlinkRunner/pkg/service/util"
)

// maskAny preserves the stack of the given error.
var maskAny = errors.WithStack

// State of a blink run.
type State int32

const (
	// StateIdle means the run has not started yet.
	StateIdle State = iota
	// StateAcquiring means the output pin is being acquired.
	StateAcquiring
	// StateBlinking means the blink loop is active.
	StateBlinking
	// StateReleasing means the output pin is being released.
	StateReleasing
	// StateTerminated is the terminal state; it is reached exactly once.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateBlinking:
		return "blinking"
	case StateReleasing:
		return "releasing"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// LedState describes one observed LED transition.
type LedState struct {
	// Pin the LED is connected to.
	Pin int
	// New logical level of the pin.
	On bool
	// 1-based index of the blink cycle the transition belongs to.
	Cycle uint64
}

// Service drives a single LED through a configured blink sequence.
type Service interface {
	// Run the blink sequence until it completes or the given
	// context is canceled. Cancellation is a normal termination.
	// Run can be called at most once.
	Run(ctx context.Context) error
	// State returns the current run state.
	State() State
	// RegisterStateReceiver registers a callback that is invoked
	// for every LED transition.
	RegisterStateReceiver(cb func(LedState)) context.CancelFunc
}

type Config struct {
	model.BlinkConfig
}

type Dependencies struct {
	Log    zerolog.Logger
	Bridge bridge.API
}

type service struct {
	Config
	Dependencies

	state       int32
	stateEvents *pubsub.PubSub

	mutex          sync.Mutex
	receivers      map[uint64]func(LedState)
	lastReceiverID uint64
}

// NewService validates the given configuration and creates a
// Service instance for it. No hardware is touched until Run.
func NewService(conf Config, deps Dependencies) (Service, error) {
	if deps.Bridge == nil {
		return nil, errors.Wrap(model.ValidationError, "Bridge missing")
	}
	if err := conf.Validate(); err != nil {
		return nil, maskAny(err)
	}
	deps.Log = deps.Log.With().
		Str("component", "blinker").
		Int("pin", conf.Pin).
		Logger()
	s := &service{
		Config:       conf,
		Dependencies: deps,
		state:        int32(StateIdle),
		stateEvents:  pubsub.New(),
		receivers:    make(map[uint64]func(LedState)),
	}
	// All receivers hang off a single subscriber; pubsub matches
	// subscribers by code pointer, so per-receiver closures cannot
	// be unsubscribed individually.
	s.stateEvents.Sub(s.dispatch)
	return s, nil
}

// Run acquires the output pin, drives the configured blink sequence
// and releases the pin on every exit path.
func (s *service) Run(ctx context.Context) error {
	log := s.Log
	if !s.transition(StateIdle, StateAcquiring) {
		return errors.Wrap(model.ValidationError, "run already started")
	}
	runsTotal.Inc()

	log.Debug().Msg("Acquiring output pin")
	pin, err := s.Bridge.Output(s.Pin, false, false)
	if err != nil {
		// Nothing was acquired, so there is nothing to release.
		s.setState(StateTerminated)
		return errors.Wrapf(err, "Output[%d] failed", s.Pin)
	}

	released := false
	release := func() error {
		if released {
			return nil
		}
		released = true
		s.setState(StateReleasing)
		var ae aerr.AggregateError
		ae.Add(pin.Release())
		ae.Add(s.Bridge.Close())
		s.setState(StateTerminated)
		return ae.AsError()
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn().Err(err).Msg("Release failed")
		}
	}()

	s.setState(StateBlinking)
	log.Info().
		Str("interval-on", s.OnDuration.String()).
		Str("interval-off", s.OffDuration.String()).
		Str("cycles", s.Repeat.String()).
		Msg("Blinking started")

	completed := uint64(0)
	for !s.Repeat.Done(completed) && ctx.Err() == nil {
		if err := s.set(pin, true, completed+1); err != nil {
			return maskAny(err)
		}
		if !util.SleepUntil(ctx, s.OnDuration) {
			break
		}
		if err := s.set(pin, false, completed+1); err != nil {
			return maskAny(err)
		}
		if !util.SleepUntil(ctx, s.OffDuration) {
			break
		}
		completed++
		blinkCyclesTotal.Inc()
	}

	if err := release(); err != nil {
		return maskAny(err)
	}
	log.Info().Str("completed", humanize.Comma(int64(completed))).Msg("Blinking stopped")
	return nil
}

// set writes the given level and publishes the transition.
func (s *service) set(pin bridge.OutputPin, on bool, cycle uint64) error {
	if err := pin.Write(on); err != nil {
		return errors.Wrapf(err, "Write[on=%v] failed", on)
	}
	s.Log.Debug().Bool("on", on).Uint64("cycle", cycle).Msg("LED state changed")
	s.stateEvents.Pub(LedState{Pin: s.Pin, On: on, Cycle: cycle})
	return nil
}

// State returns the current run state.
func (s *service) State() State {
	return State(atomic.LoadInt32(&s.state))
}

func (s *service) setState(next State) {
	atomic.StoreInt32(&s.state, int32(next))
	s.Log.Debug().Str("state", next.String()).Msg("State changed")
}

func (s *service) transition(from, to State) bool {
	return atomic.CompareAndSwapInt32(&s.state, int32(from), int32(to))
}

// RegisterStateReceiver registers a callback that is invoked
// for every LED transition.
func (s *service) RegisterStateReceiver(cb func(LedState)) context.CancelFunc {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastReceiverID++
	id := s.lastReceiverID
	s.receivers[id] = cb
	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		delete(s.receivers, id)
	}
}

// dispatch forwards a published transition to all registered receivers.
func (s *service) dispatch(x LedState) {
	s.mutex.Lock()
	receivers := make([]func(LedState), 0, len(s.receivers))
	for _, cb := range s.receivers {
		receivers = append(receivers, cb)
	}
	s.mutex.Unlock()
	for _, cb := range receivers {
		cb(x)
	}
}
