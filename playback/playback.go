// Package playback shows an animation on the display at a fixed frame rate.
//
// Each frame is copied into the half of the display buffer that is not being
// shown, the remainder of the frame period is slept away and then the
// written half is flipped to. A frame that takes longer than its period ends
// the session with a fault.TimingViolation. Frames are never dropped or
// repeated to catch up and the rate is never adapted.
package playback

import (
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rpg-lab/rpg/clip"
	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/rgb565"
)

// Screen is a double buffered display. *display.Handle implements it.
type Screen interface {
	// size of one half in bytes
	BufferSize() int

	// the half currently visible
	Front() int

	Write(half int, px []rgb565.Pixel) error
	Flip(half int) error
}

// Clock measures and waits. Real time is used if Config.Clock is nil.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Default values used by Config.
const (
	DefaultFrameRate = 60
	DefaultDuration  = time.Second

	// the time spent between the end of the sleep and the flip actually
	// taking effect, measured on a Raspberry Pi
	DefaultAdjustment = 574700 * time.Nanosecond
)

// Config controls a playback session. The zero value is usable.
type Config struct {
	// frames per second. zero means DefaultFrameRate
	FrameRate float64

	// length of the session. zero means DefaultDuration
	Duration time.Duration

	// subtracted from every frame period. zero means DefaultAdjustment and a
	// negative value means no adjustment
	Adjustment time.Duration

	Clock Clock
}

func (cfg *Config) defaults() {
	if cfg.FrameRate == 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.Duration == 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Adjustment == 0 {
		cfg.Adjustment = DefaultAdjustment
	} else if cfg.Adjustment < 0 {
		cfg.Adjustment = 0
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
}

// Period returns the time available for each frame.
func (cfg Config) Period() time.Duration {
	cfg.defaults()
	return time.Duration(float64(time.Second) / cfg.FrameRate)
}

// Frames returns the number of frames shown in a session.
func (cfg Config) Frames() int {
	cfg.defaults()
	return int(math.Round(cfg.Duration.Seconds() * cfg.FrameRate))
}

// Stats describes a completed session. Rates are in frames per second.
type Stats struct {
	// the rate of the shortest frame
	Fastest float64

	// the rate of the longest frame, not counting the first
	Slowest float64

	Started time.Time
	Frames  int
	Session uuid.UUID
}

// Play shows the clip on the screen, looping it as often as needed to fill
// the session. The screen is left showing the last frame.
//
// A frame that misses its deadline ends the session immediately with a
// fault.TimingViolation and no statistics. The screen is still usable.
func Play(screen Screen, c *clip.Clip, cfg Config) (Stats, error) {
	const op = "playback: play"

	if cfg.FrameRate < 0 || math.IsNaN(cfg.FrameRate) || math.IsInf(cfg.FrameRate, 0) || cfg.Duration < 0 {
		return Stats{}, fault.Errorf(fault.InvalidParameter, op, "invalid frame rate %v or duration %v", cfg.FrameRate, cfg.Duration)
	}
	cfg.defaults()

	if c == nil || c.Released() {
		return Stats{}, fault.Errorf(fault.IncompatibleClip, op, "clip is not loaded")
	}
	if c.FrameSize() != screen.BufferSize() {
		return Stats{}, fault.Errorf(fault.IncompatibleClip, op, "frame size of %d bytes does not match display buffer of %d bytes",
			c.FrameSize(), screen.BufferSize())
	}

	frames := make([][]rgb565.Pixel, c.Len())
	for i := range frames {
		var err error
		frames[i], err = c.Frame(i)
		if err != nil {
			return Stats{}, err
		}
	}

	period := cfg.Period()
	budget := period - cfg.Adjustment
	total := cfg.Frames()
	if total < 1 {
		return Stats{}, fault.Errorf(fault.InvalidParameter, op, "a duration of %v at %v fps is less than one frame", cfg.Duration, cfg.FrameRate)
	}

	stats := Stats{
		Started: cfg.Clock.Now(),
		Frames:  total,
		Session: uuid.New(),
	}

	log := slog.With("session", stats.Session)
	log.Info("playback: starting", "clip", c.String(), "frames", total, "period", period)

	// logging can be slow on the console so frame 0 is timed from here
	var shortest, longest time.Duration
	start := cfg.Clock.Now()

	for t := 0; t < total; t++ {
		half := 1 - screen.Front()
		if err := screen.Write(half, frames[t%len(frames)]); err != nil {
			return Stats{}, err
		}

		elapsed := cfg.Clock.Now().Sub(start)
		remaining := budget - elapsed
		if remaining <= 0 {
			log.Warn("playback: frame too slow", "frame", t, "elapsed", elapsed, "budget", budget)
			return Stats{}, fault.Errorf(fault.TimingViolation, op, "frame %d took %v, more than its %v budget", t, elapsed, budget)
		}
		cfg.Clock.Sleep(remaining)

		elapsed = cfg.Clock.Now().Sub(start)
		if t == 0 || elapsed < shortest {
			shortest = elapsed
		}
		if t != 0 && elapsed > longest {
			longest = elapsed
		}

		if err := screen.Flip(half); err != nil {
			return Stats{}, err
		}
		start = cfg.Clock.Now()
	}

	// a single frame has nothing to compare against
	if total == 1 {
		longest = shortest
	}

	stats.Fastest = rate(shortest)
	stats.Slowest = rate(longest)

	log.Info("playback: finished", "fastest", stats.Fastest, "slowest", stats.Slowest)
	return stats, nil
}

func rate(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(time.Second) / float64(d)
}
