// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package api

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/mkarlsen/roadscan/internal/validation"
)

// maxRequestBody caps request bodies; playback and load requests are tiny.
const maxRequestBody = 64 * 1024

// LoadSessionRequest selects the session to load. An empty name lets the
// provider's first discovered session win.
type LoadSessionRequest struct {
	Session string `json:"session" validate:"max=256"`
}

// SeekRequest moves playback to a frame index. Out-of-range values are
// clamped server side, so only presence is validated.
type SeekRequest struct {
	Index *int `json:"index" validate:"required"`
}

// SpeedRequest changes the playback rate.
type SpeedRequest struct {
	Speed float64 `json:"speed" validate:"required,gt=0,lte=1000"`
}

// decodeAndValidate decodes the JSON body into dst and validates it.
// Writes the error response itself and reports success.
func decodeAndValidate(rw *ResponseWriter, r *http.Request, dst interface{}) bool {
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil && err != io.EOF {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		details := make([]string, 0, len(verr.Errors()))
		for _, fe := range verr.Errors() {
			details = append(details, fe.Error())
		}
		rw.ValidationError("request validation failed", details)
		return false
	}
	return true
}
