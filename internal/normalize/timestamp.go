// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package normalize

import (
	"strings"
	"time"
)

// TimestampLayout is the canonical combined date+time key. Lexicographic
// order of canonical timestamps matches chronological order, which lets the
// timeline sort on the string key directly.
const TimestampLayout = "2006-01-02 15:04:05"

// EpochSentinel is the canonical timestamp assigned when a row carries no
// time information at all. Using a fixed sentinel instead of a null keeps
// every record totally ordered.
const EpochSentinel = "1970-01-01 00:00:00"

// acceptedLayouts are tried in order when parsing raw timestamp strings.
var acceptedLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006/01/02 15:04:05",
	"02-01-2006 15:04:05",
}

// CanonicalTimestamp parses a raw timestamp string and re-renders it in the
// canonical layout. Returns the canonical string, the epoch seconds, and
// whether parsing succeeded.
func CanonicalTimestamp(raw string) (string, int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0, false
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC().Format(TimestampLayout), t.UTC().Unix(), true
		}
	}
	return "", 0, false
}

// ResolveTimestamp extracts the canonical timestamp from a raw row.
// Resolution order: combined timestamp field, then separate date+time
// fields, then the epoch sentinel. The result is never empty.
func ResolveTimestamp(row Row) (string, int64) {
	if raw, ok := row.str(aliasTimestamp...); ok {
		if ts, epoch, ok := CanonicalTimestamp(raw); ok {
			return ts, epoch
		}
	}

	date, hasDate := row.str(aliasDate...)
	clock, hasTime := row.str(aliasTime...)
	if hasDate && hasTime {
		if ts, epoch, ok := CanonicalTimestamp(strings.TrimSpace(date) + " " + strings.TrimSpace(clock)); ok {
			return ts, epoch
		}
	}

	return EpochSentinel, 0
}

// SplitTimestamp splits a canonical timestamp back into date and time parts.
func SplitTimestamp(ts string) (date, clock string) {
	if i := strings.IndexByte(ts, ' '); i >= 0 {
		return ts[:i], ts[i+1:]
	}
	return ts, ""
}
