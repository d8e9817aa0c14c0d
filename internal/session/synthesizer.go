// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package session

import (
	"math"
	"sort"

	"github.com/mkarlsen/roadscan/internal/config"
	"github.com/mkarlsen/roadscan/internal/logging"
	"github.com/mkarlsen/roadscan/internal/models"
	"github.com/mkarlsen/roadscan/internal/normalize"
	"github.com/mkarlsen/roadscan/internal/provider"
)

// streamsPerCamera is the width of each camera's stream-ID block. Raw
// detection rows identify cameras only by numeric stream ID; the capture
// rig allocates two stream IDs (raw + annotated) per camera lane, in
// manifest camera order.
const streamsPerCamera = 2

// Synthesizer merges the GPS backbone with detection and image records
// into the ordered frame timeline.
type Synthesizer struct {
	cfg config.TimelineConfig
}

// NewSynthesizer creates a synthesizer with the given tuning.
func NewSynthesizer(cfg config.TimelineConfig) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Build produces the synchronized timeline from an aggregated bundle.
//
// The (possibly synthetic) GPS trace is the authoritative time backbone.
// When it exceeds the frame cap, an evenly strided subsample spanning the
// full time range is retained, so the timeline still covers the whole
// survey. One frame is created per retained fix; every frame carries the
// fix's coordinates, so no frame is ever positionless.
//
// Detection rows are attached per (camera, anomaly type) triple. When the
// triple's rows are densely timestamped, each row is assigned to its
// nearest frame within the match tolerance, giving each detection exactly
// one owning frame. Otherwise a deterministic round-robin sample (frame
// index modulo row count) picks one representative row copy per frame.
// Image identifiers are always sampled round-robin; listings carry no
// per-capture timestamps reliable enough to match on.
//
// A missing or empty source for a triple yields empty detections and
// images for that triple in every frame, never an error.
func (s *Synthesizer) Build(bundle *SourceBundle) []models.TimelineFrame {
	backbone := subsample(bundle.GPS, s.cfg.MaxFrames)

	frames := make([]models.TimelineFrame, len(backbone))
	for i, fix := range backbone {
		date, clock := normalize.SplitTimestamp(fix.Timestamp)
		frames[i] = models.TimelineFrame{
			Index:      i,
			Timestamp:  fix.Timestamp,
			Date:       date,
			Time:       clock,
			Latitude:   fix.Latitude,
			Longitude:  fix.Longitude,
			Source:     fix.Source,
			Detections: []models.Detection{},
			Images:     make(map[string]map[string]models.ImageRefs),
		}
	}
	if len(frames) == 0 {
		return frames
	}

	cameras := camerasInOrder(bundle.Manifest)

	for _, triple := range triplesInOrder(bundle.Manifest) {
		rows := bundle.Detections[triple]
		if len(rows) > 0 {
			if timestampDensity(rows) >= s.cfg.TimestampDensity {
				s.attachByTimestamp(frames, triple, rows, cameras)
			} else {
				s.attachRoundRobin(frames, triple, rows, cameras)
			}
		}
		if images := bundle.Images[triple]; len(images) > 0 {
			attachImages(frames, triple, images)
		}
	}

	logging.Debug().
		Int("gps_fixes", len(bundle.GPS)).
		Int("frames", len(frames)).
		Msg("Timeline synthesized")

	return frames
}

// subsample retains at most maxFrames fixes with an even stride spanning
// the full range, always keeping the first and last fix.
func subsample(fixes []models.GPSFix, maxFrames int) []models.GPSFix {
	if len(fixes) <= maxFrames {
		return fixes
	}
	if maxFrames == 1 {
		return fixes[:1]
	}

	stride := float64(len(fixes)-1) / float64(maxFrames-1)
	out := make([]models.GPSFix, 0, maxFrames)
	for i := 0; i < maxFrames; i++ {
		idx := int(math.Round(float64(i) * stride))
		out = append(out, fixes[idx])
	}
	return out
}

// timestampDensity is the fraction of rows carrying a parsed timestamp.
func timestampDensity(rows []models.Detection) float64 {
	stamped := 0
	for _, row := range rows {
		if row.Epoch > 0 {
			stamped++
		}
	}
	return float64(stamped) / float64(len(rows))
}

// attachByTimestamp assigns each timestamped row to its nearest frame,
// provided the gap is within the match tolerance. Rows without timestamps
// and rows outside every frame's window are left unattached.
func (s *Synthesizer) attachByTimestamp(frames []models.TimelineFrame, triple models.Triple,
	rows []models.Detection, cameras []string) {

	tolerance := int64(s.cfg.MatchTolerance.Seconds())
	epochs := make([]int64, len(frames))
	for i, f := range frames {
		epoch, _ := frameEpoch(f)
		epochs[i] = epoch
	}

	for _, row := range rows {
		if row.Epoch == 0 {
			continue
		}
		idx := nearestIndex(epochs, row.Epoch)
		if idx < 0 {
			continue
		}
		delta := epochs[idx] - row.Epoch
		if delta < 0 {
			delta = -delta
		}
		if delta > tolerance {
			continue
		}
		det := row
		det.Camera = inferCamera(det.StreamID, cameras, triple.Camera)
		frames[idx].Detections = append(frames[idx].Detections, det)
	}
}

// attachRoundRobin copies one representative row into every frame using
// the frame index modulo the row count.
func (s *Synthesizer) attachRoundRobin(frames []models.TimelineFrame, triple models.Triple,
	rows []models.Detection, cameras []string) {

	for i := range frames {
		det := rows[i%len(rows)]
		det.Camera = inferCamera(det.StreamID, cameras, triple.Camera)
		frames[i].Detections = append(frames[i].Detections, det)
	}
}

// attachImages samples one image identifier per frame, round-robin, and
// records both its short name and resolved path.
func attachImages(frames []models.TimelineFrame, triple models.Triple, images []provider.ImageEntry) {
	for i := range frames {
		img := images[i%len(images)]
		byType, ok := frames[i].Images[triple.Camera]
		if !ok {
			byType = make(map[string]models.ImageRefs)
			frames[i].Images[triple.Camera] = byType
		}
		refs := byType[triple.AnomalyType]
		refs.Names = append(refs.Names, img.Name)
		refs.Paths = append(refs.Paths, img.URL)
		byType[triple.AnomalyType] = refs
	}
}

// frameEpoch returns the frame's epoch seconds, reparsing the canonical
// timestamp. The bool reports whether the timestamp parsed.
func frameEpoch(f models.TimelineFrame) (int64, bool) {
	_, epoch, ok := normalize.CanonicalTimestamp(f.Timestamp)
	return epoch, ok
}

// nearestIndex returns the index in the ascending epochs slice closest to
// target, or -1 for an empty slice.
func nearestIndex(epochs []int64, target int64) int {
	if len(epochs) == 0 {
		return -1
	}
	i := sort.Search(len(epochs), func(i int) bool { return epochs[i] >= target })
	if i == 0 {
		return 0
	}
	if i == len(epochs) {
		return len(epochs) - 1
	}
	if epochs[i]-target < target-epochs[i-1] {
		return i
	}
	return i - 1
}

// inferCamera maps a raw stream ID to a camera name. Stream IDs are
// allocated in blocks of streamsPerCamera following manifest camera order;
// IDs beyond the known block range fall back to the triple's own camera.
func inferCamera(streamID int, cameras []string, fallback string) string {
	if streamID >= 0 {
		if idx := streamID / streamsPerCamera; idx < len(cameras) {
			return cameras[idx]
		}
	}
	return fallback
}

// camerasInOrder lists unique camera names in manifest order.
func camerasInOrder(entries []models.ManifestEntry) []string {
	seen := make(map[string]bool, len(entries))
	cameras := make([]string, 0, len(entries))
	for _, e := range entries {
		if !seen[e.Camera] {
			seen[e.Camera] = true
			cameras = append(cameras, e.Camera)
		}
	}
	return cameras
}

// triplesInOrder lists manifest triples in a deterministic order.
func triplesInOrder(entries []models.ManifestEntry) []models.Triple {
	triples := make([]models.Triple, 0, len(entries))
	for _, e := range entries {
		triples = append(triples, e.Key())
	}
	sort.Slice(triples, func(i, j int) bool { return triples[i].String() < triples[j].String() })
	return triples
}
