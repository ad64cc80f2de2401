// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"fmt"
	"runtime"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

type waitMode uint8

const (
	waitSpin waitMode = iota
	waitYield
	waitSpinYield
	waitBackoff
	waitCustom
)

// defaultSpins is the number of spin rounds SpinYieldWait performs
// before it starts yielding.
const defaultSpins = 64

// WaitStrategy decides how a blocking call (Pop on an empty queue, Push
// on a full [Bounded] queue) spends the time between two attempts.
//
// Strategies trade latency against CPU usage:
//
//	SpinWait()         - CPU pause between attempts; lowest latency, burns a core
//	YieldWait()        - runtime.Gosched between attempts
//	SpinYieldWait(n)   - n spin rounds, then yield (default, n=64)
//	BackoffWait()      - iox.Backoff adaptive sleep; lowest CPU usage
//	CustomWait(f)      - f(attempt) between attempts
//
// A WaitStrategy is a small value; every blocking call starts from a
// fresh state, so no allocation happens per call. The zero WaitStrategy
// spins.
type WaitStrategy struct {
	mode  waitMode
	spins int
	fn    func(attempt int)
}

// SpinWait pauses the CPU between attempts.
func SpinWait() WaitStrategy {
	return WaitStrategy{mode: waitSpin}
}

// YieldWait yields the processor between attempts.
func YieldWait() WaitStrategy {
	return WaitStrategy{mode: waitYield}
}

// SpinYieldWait spins for the first spins attempts, then yields.
// Negative spins are treated as zero.
func SpinYieldWait(spins int) WaitStrategy {
	return WaitStrategy{mode: waitSpinYield, spins: max(spins, 0)}
}

// BackoffWait sleeps with [iox.Backoff] between attempts.
func BackoffWait() WaitStrategy {
	return WaitStrategy{mode: waitBackoff}
}

// CustomWait calls fn between attempts. attempt counts from zero for each
// blocking call. Panics if fn is nil.
func CustomWait(fn func(attempt int)) WaitStrategy {
	if fn == nil {
		panic("msq: CustomWait requires a non-nil function")
	}
	return WaitStrategy{mode: waitCustom, fn: fn}
}

// String describes the strategy.
func (s WaitStrategy) String() string {
	switch s.mode {
	case waitSpin:
		return "spin"
	case waitYield:
		return "yield"
	case waitSpinYield:
		return fmt.Sprintf("spinyield(%d)", s.spins)
	case waitBackoff:
		return "backoff"
	default:
		return "custom"
	}
}

// ParseWaitStrategy parses "spin", "yield", "spinyield" and "backoff".
func ParseWaitStrategy(s string) (WaitStrategy, error) {
	switch s {
	case "spin":
		return SpinWait(), nil
	case "yield":
		return YieldWait(), nil
	case "spinyield", "":
		return SpinYieldWait(defaultSpins), nil
	case "backoff":
		return BackoffWait(), nil
	}
	return WaitStrategy{}, fmt.Errorf("msq: unknown wait strategy %q", s)
}

func (s WaitStrategy) start() waiter {
	return waiter{s: s}
}

// waiter is the per-call state of a WaitStrategy.
type waiter struct {
	s       WaitStrategy
	attempt int
	sw      spin.Wait
	backoff iox.Backoff
}

func (w *waiter) pause() {
	switch w.s.mode {
	case waitSpin:
		w.sw.Once()
	case waitYield:
		runtime.Gosched()
	case waitSpinYield:
		if w.attempt < w.s.spins {
			w.sw.Once()
		} else {
			runtime.Gosched()
		}
	case waitBackoff:
		w.backoff.Wait()
	case waitCustom:
		w.s.fn(w.attempt)
	}
	w.attempt++
}
