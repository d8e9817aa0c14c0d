// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package session

import "errors"

// ErrManifestUnavailable is the one fatal load condition: without the
// manifest no cameras or timeline can be constructed, so the whole load
// fails and the caller keeps its previous snapshot.
var ErrManifestUnavailable = errors.New("manifest unavailable")

// ErrLoadSuperseded is returned when a load finishes after a newer load has
// already published its snapshot. The stale result is discarded; it must
// never overwrite the newer state.
var ErrLoadSuperseded = errors.New("session load superseded by a newer load")
