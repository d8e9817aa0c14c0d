// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package playback

import (
	"context"
	"time"

	"github.com/mkarlsen/roadscan/internal/logging"
	"github.com/mkarlsen/roadscan/internal/metrics"
	"github.com/mkarlsen/roadscan/internal/models"
)

// TickFunc receives the state after each tick that moved the index.
type TickFunc func(models.PlaybackState)

// TickerService advances the controller in real time. It implements
// suture.Service; a panic in a tick callback gets the service restarted by
// the supervisor with playback state intact, since state lives in the
// controller, not here.
//
// A single timer drives the loop. Speed and play/pause changes signal the
// controller's wake channel, which reschedules the timer immediately
// instead of waiting out the old period.
type TickerService struct {
	controller *Controller
	onTick     TickFunc
}

// NewTickerService creates the ticker over the given controller. onTick
// may be nil.
func NewTickerService(controller *Controller, onTick TickFunc) *TickerService {
	return &TickerService{controller: controller, onTick: onTick}
}

// Serve implements suture.Service. Blocks until the context is canceled.
func (t *TickerService) Serve(ctx context.Context) error {
	logging.Debug().Msg("Playback ticker started")

	timer := time.NewTimer(t.controller.Period())
	defer timer.Stop()

	for {
		if !t.controller.State().IsPlaying {
			// Paused: nothing to schedule until something changes.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.controller.Wake():
			}
			timer.Reset(t.controller.Period())
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-t.controller.Wake():
			// Speed or state changed mid-period: reschedule from now.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(t.controller.Period())

		case <-timer.C:
			state, moved := t.controller.Tick()
			if moved {
				metrics.PlaybackTicks.Inc()
				if t.onTick != nil {
					t.onTick(state)
				}
			}
			timer.Reset(t.controller.Period())
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (t *TickerService) String() string {
	return "playback-ticker"
}
