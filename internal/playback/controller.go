// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

// Package playback drives stepping through a session's timeline: a state
// machine holding the current frame index plus a supervised ticker that
// advances it in real time.
package playback

import (
	stdsync "sync"
	"time"

	"github.com/mkarlsen/roadscan/internal/config"
	"github.com/mkarlsen/roadscan/internal/models"
)

// Controller is the playback state machine. It holds the current index,
// playing flag, and speed, and clamps every externally supplied index into
// the timeline's valid range. The index is EmptyIndex whenever the timeline
// is empty; no operation can make it point outside the timeline.
//
// All methods are safe for concurrent use.
type Controller struct {
	cfg config.PlaybackConfig

	mu      stdsync.Mutex
	index   int
	playing bool
	speed   float64
	length  int

	// wake is signaled whenever playing state or speed changes so the
	// ticker can recompute its schedule immediately.
	wake chan struct{}
}

// NewController creates a paused controller over an empty timeline.
func NewController(cfg config.PlaybackConfig) *Controller {
	return &Controller{
		cfg:   cfg,
		index: models.EmptyIndex,
		speed: cfg.DefaultSpeed,
		wake:  make(chan struct{}, 1),
	}
}

// Reset rebinds the controller to a newly published snapshot: playback
// pauses, speed is retained, and the index returns to the first frame (or
// EmptyIndex for an empty timeline).
func (c *Controller) Reset(snapshot *models.SessionSnapshot) {
	c.mu.Lock()
	c.length = snapshot.FrameCount()
	c.playing = false
	if c.length == 0 {
		c.index = models.EmptyIndex
	} else {
		c.index = 0
	}
	c.mu.Unlock()
	c.signal()
}

// Play starts advancing. On an empty timeline the controller stays paused.
// Playing from the last frame restarts at the beginning.
func (c *Controller) Play() models.PlaybackState {
	c.mu.Lock()
	if c.length > 0 {
		if c.index >= c.length-1 {
			c.index = 0
		}
		c.playing = true
	}
	state := c.stateLocked()
	c.mu.Unlock()
	c.signal()
	return state
}

// Pause stops advancing without moving the index.
func (c *Controller) Pause() models.PlaybackState {
	c.mu.Lock()
	c.playing = false
	state := c.stateLocked()
	c.mu.Unlock()
	c.signal()
	return state
}

// Seek moves to the requested index, clamped into the valid range.
func (c *Controller) Seek(index int) models.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.length == 0:
		c.index = models.EmptyIndex
	case index < 0:
		c.index = 0
	case index >= c.length:
		c.index = c.length - 1
	default:
		c.index = index
	}
	return c.stateLocked()
}

// SetSpeed changes the playback rate. Non-positive values fall back to the
// configured default.
func (c *Controller) SetSpeed(speed float64) models.PlaybackState {
	c.mu.Lock()
	if speed <= 0 {
		speed = c.cfg.DefaultSpeed
	}
	c.speed = speed
	state := c.stateLocked()
	c.mu.Unlock()
	c.signal()
	return state
}

// Tick advances one frame while playing. Reaching the last frame stops
// there and pauses; the index never passes the end. The bool reports
// whether the index moved.
func (c *Controller) Tick() (models.PlaybackState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing || c.length == 0 {
		return c.stateLocked(), false
	}
	if c.index >= c.length-1 {
		c.playing = false
		return c.stateLocked(), false
	}
	c.index++
	if c.index == c.length-1 {
		c.playing = false
	}
	return c.stateLocked(), true
}

// State returns the externally visible playback state.
func (c *Controller) State() models.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Period is the wall-clock interval between ticks at the current speed,
// floored at the configured minimum so extreme speeds cannot busy-spin
// the ticker.
func (c *Controller) Period() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	period := time.Duration(float64(c.cfg.BasePeriod) / c.speed)
	if period < c.cfg.MinPeriod {
		period = c.cfg.MinPeriod
	}
	return period
}

// Wake returns the channel signaled on state or speed changes.
func (c *Controller) Wake() <-chan struct{} {
	return c.wake
}

func (c *Controller) stateLocked() models.PlaybackState {
	return models.PlaybackState{
		CurrentIndex:   c.index,
		IsPlaying:      c.playing,
		Speed:          c.speed,
		TimelineLength: c.length,
	}
}

func (c *Controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
