// Package common defines the error kinds shared by services and handlers, and the
// request identity attached by the session guard. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Request-level errors.
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")

	// Image decode/encode failures while producing a derived asset.
	ErrAssetGeneration = errors.New("asset generation failed")

	// Infrastructure errors.
	ErrStore      = errors.New("store error")
	ErrFilesystem = errors.New("filesystem error")
)
