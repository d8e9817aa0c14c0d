// Roadscan - Road Survey Review and Timeline Playback
// Copyright 2026 Marten Karlsen (mkarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkarlsen/roadscan

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seekRequest struct {
	Index int     `validate:"min=0"`
	Speed float64 `validate:"gt=0"`
}

type pointRequest struct {
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`
}

func TestValidateStructPasses(t *testing.T) {
	req := seekRequest{Index: 5, Speed: 2.0}
	assert.Nil(t, ValidateStruct(&req))
}

func TestValidateStructSingleFailure(t *testing.T) {
	req := seekRequest{Index: -1, Speed: 1.0}

	err := ValidateStruct(&req)
	require.NotNil(t, err)
	require.Len(t, err.Errors(), 1)
	assert.Equal(t, "Index", err.Errors()[0].Field())
	assert.Equal(t, "min", err.Errors()[0].Tag())
	assert.Contains(t, err.Error(), "Index must be at least 0")
}

func TestValidateStructMultipleFailures(t *testing.T) {
	req := seekRequest{Index: -3, Speed: 0}

	err := ValidateStruct(&req)
	require.NotNil(t, err)
	assert.Len(t, err.Errors(), 2)
	assert.Contains(t, err.Error(), ";")
}

func TestValidateCoordinateTags(t *testing.T) {
	tests := []struct {
		name    string
		req     pointRequest
		wantErr bool
	}{
		{"valid point", pointRequest{Latitude: 12.97, Longitude: 77.59}, false},
		{"zero point", pointRequest{Latitude: 0, Longitude: 0}, false},
		{"latitude too large", pointRequest{Latitude: 91, Longitude: 0}, true},
		{"longitude too small", pointRequest{Latitude: 0, Longitude: -181}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if tt.wantErr {
				assert.NotNil(t, err)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}
