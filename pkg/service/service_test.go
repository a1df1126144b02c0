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

package service_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledworks/BlinkRunner/pkg/model"
	"github.com/ledworks/BlinkRunner/pkg/service"
	"github.com/ledworks/BlinkRunner/pkg/service/bridge"
)

func testConfig(pin int, repeat model.Repeat) service.Config {
	return service.Config{
		BlinkConfig: model.BlinkConfig{
			Pin:         pin,
			OnDuration:  2 * time.Millisecond,
			OffDuration: 2 * time.Millisecond,
			Repeat:      repeat,
		},
	}
}

func testDeps(br bridge.API) service.Dependencies {
	return service.Dependencies{
		Log:    zerolog.Nop(),
		Bridge: br,
	}
}

func TestRunBoundedCount(t *testing.T) {
	br, err := bridge.NewVirtualBridge()
	require.NoError(t, err)
	rec := br.(bridge.Recorder)

	svc, err := service.NewService(testConfig(17, model.RepeatTimes(3)), testDeps(br))
	require.NoError(t, err)

	require.NoError(t, svc.Run(context.Background()))

	assert.Equal(t, []bool{true, false, true, false, true, false}, rec.Transitions(17),
		"exactly 3 high/low cycles expected")
	assert.Equal(t, 1, rec.Releases(17), "pin must be released exactly once")
	assert.False(t, rec.Level(17))
	assert.Equal(t, service.StateTerminated, svc.State())
}

func TestRunHonorsConfiguredDurations(t *testing.T) {
	br, err := bridge.NewVirtualBridge()
	require.NoError(t, err)
	rec := br.(bridge.Recorder)

	config := service.Config{
		BlinkConfig: model.BlinkConfig{
			Pin:         17,
			OnDuration:  30 * time.Millisecond,
			OffDuration: 30 * time.Millisecond,
			Repeat:      model.RepeatTimes(3),
		},
	}
	svc, err := service.NewService(config, testDeps(br))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, svc.Run(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 180*time.Millisecond,
		"3 cycles of 30ms on + 30ms off must take at least 180ms")
	assert.Less(t, elapsed, 2*time.Second)
	assert.Len(t, rec.Transitions(17), 6)
}

func TestRunFixedSequenceDurations(t *testing.T) {
	br, err := bridge.NewVirtualBridge()
	require.NoError(t, err)
	rec := br.(bridge.Recorder)

	// Scaled-down single fixed cycle with asymmetric durations.
	config := service.Config{
		BlinkConfig: model.BlinkConfig{
			Pin:         17,
			OnDuration:  60 * time.Millisecond,
			OffDuration: 20 * time.Millisecond,
			Repeat:      model.RepeatTimes(1),
		},
	}
	svc, err := service.NewService(config, testDeps(br))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, svc.Run(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Equal(t, []bool{true, false}, rec.Transitions(17), "single cycle only")
	assert.Equal(t, 1, rec.Releases(17))
}

func TestRunUnboundedUntilCanceled(t *testing.T) {
	br, err := bridge.NewVirtualBridge()
	require.NoError(t, err)
	rec := br.(bridge.Recorder)

	svc, err := service.NewService(testConfig(17, model.RepeatForever()), testDeps(br))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx)
	}()

	// Let a few cycles pass before delivering the stop request.
	assert.Eventually(t, func() bool {
		return len(rec.Transitions(17)) >= 4
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a normal termination")
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancellation")
	}
	assert.Equal(t, 1, rec.Releases(17))
	assert.False(t, rec.Level(17), "pin must be driven low on release")
	assert.Equal(t, service.StateTerminated, svc.State())
}

func TestRunCanceledBeforeStart(t *testing.T) {
	br, err := bridge.NewVirtualBridge()
	require.NoError(t, err)
	rec := br.(bridge.Recorder)

	svc, err := service.NewService(testConfig(17, model.RepeatForever()), testDeps(br))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, svc.Run(ctx))

	assert.Empty(t, rec.Transitions(17))
	assert.Equal(t, 1, rec.Releases(17))
}

func TestRunAcquireFailure(t *testing.T) {
	br := &deniedBridge{}
	svc, err := service.NewService(testConfig(17, model.RepeatTimes(1)), testDeps(br))
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, service.StateTerminated, svc.State())
	assert.Zero(t, br.closes, "no release on a pin that was never acquired")
}

func TestRunWriteFailureReleasesOnce(t *testing.T) {
	pin := &flakyPin{failAfter: 2}
	br := &fakeBridge{pin: pin}
	svc, err := service.NewService(testConfig(17, model.RepeatTimes(10)), testDeps(br))
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), pin.releases.Load(), "pin must be released exactly once")
	assert.Equal(t, service.StateTerminated, svc.State())
}

func TestNewServiceValidation(t *testing.T) {
	br, err := bridge.NewVirtualBridge()
	require.NoError(t, err)

	_, err = service.NewService(testConfig(0, model.RepeatTimes(1)), testDeps(br))
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	_, err = service.NewService(service.Config{
		BlinkConfig: model.BlinkConfig{Pin: 17, OnDuration: -time.Second, OffDuration: time.Second, Repeat: model.RepeatTimes(1)},
	}, testDeps(br))
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	_, err = service.NewService(testConfig(17, model.RepeatTimes(1)), service.Dependencies{Log: zerolog.Nop()})
	require.Error(t, err)
}

func TestRunOnlyOnce(t *testing.T) {
	br, err := bridge.NewVirtualBridge()
	require.NoError(t, err)

	svc, err := service.NewService(testConfig(17, model.RepeatTimes(1)), testDeps(br))
	require.NoError(t, err)

	require.NoError(t, svc.Run(context.Background()))
	assert.Error(t, svc.Run(context.Background()), "terminal state must not be re-entered")
}

func TestRegisterStateReceiver(t *testing.T) {
	br, err := bridge.NewVirtualBridge()
	require.NoError(t, err)

	svc, err := service.NewService(testConfig(17, model.RepeatTimes(2)), testDeps(br))
	require.NoError(t, err)

	var events atomic.Int32
	cancel := svc.RegisterStateReceiver(func(ev service.LedState) {
		assert.Equal(t, 17, ev.Pin)
		events.Add(1)
	})
	defer cancel()

	require.NoError(t, svc.Run(context.Background()))
	assert.Eventually(t, func() bool {
		return events.Load() == 4
	}, time.Second, time.Millisecond, "2 cycles produce 4 transitions")
}

func TestRegisterStateReceiverIndependentCancel(t *testing.T) {
	br, err := bridge.NewVirtualBridge()
	require.NoError(t, err)

	svc, err := service.NewService(testConfig(17, model.RepeatTimes(2)), testDeps(br))
	require.NoError(t, err)

	var canceled, kept atomic.Int32
	cancelFirst := svc.RegisterStateReceiver(func(ev service.LedState) {
		canceled.Add(1)
	})
	cancelSecond := svc.RegisterStateReceiver(func(ev service.LedState) {
		kept.Add(1)
	})
	defer cancelSecond()

	// Canceling one receiver must not unsubscribe the other.
	cancelFirst()

	require.NoError(t, svc.Run(context.Background()))
	assert.Eventually(t, func() bool {
		return kept.Load() == 4
	}, time.Second, time.Millisecond, "remaining receiver sees all 4 transitions")
	assert.Zero(t, canceled.Load(), "canceled receiver must see nothing")
}

// deniedBridge refuses to hand out pins.
type deniedBridge struct {
	closes int
}

func (b *deniedBridge) PinCount() int { return 28 }

func (b *deniedBridge) Output(pinNumber int, activeLow bool, initialValue bool) (bridge.OutputPin, error) {
	return nil, errors.New("permission denied")
}

func (b *deniedBridge) Close() error {
	b.closes++
	return nil
}

// fakeBridge hands out a single prepared pin.
type fakeBridge struct {
	pin *flakyPin
}

func (b *fakeBridge) PinCount() int { return 28 }

func (b *fakeBridge) Output(pinNumber int, activeLow bool, initialValue bool) (bridge.OutputPin, error) {
	return b.pin, nil
}

func (b *fakeBridge) Close() error { return nil }

// flakyPin fails every write after the first failAfter ones.
type flakyPin struct {
	failAfter int
	writes    int
	releases  atomic.Int32
}

func (p *flakyPin) Write(value bool) error {
	p.writes++
	if p.writes > p.failAfter {
		return errors.New("write failed")
	}
	return nil
}

func (p *flakyPin) Release() error {
	p.releases.Add(1)
	return nil
}
