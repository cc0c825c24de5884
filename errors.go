package schemagen

import (
	"errors"

	"github.com/brunobiangulo/schemagen/ingest"
)

var (
	// ErrNoRows is returned when a run is started without input rows.
	ErrNoRows = errors.New("schemagen: no input rows")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("schemagen: invalid configuration")

	// ErrGenerationFailed is returned when no row of a run produced a
	// document. The run result is still returned alongside it.
	ErrGenerationFailed = errors.New("schemagen: generation failed for every row")

	// ErrRepairFailed marks a repair pass whose answer was discarded.
	ErrRepairFailed = errors.New("schemagen: graph wiring repair failed")

	// ErrRunNotFound is returned when a run id does not exist.
	ErrRunNotFound = errors.New("schemagen: run not found")

	// ErrStoreDisabled is returned by history lookups when persistence is
	// turned off.
	ErrStoreDisabled = errors.New("schemagen: run store is disabled")

	// ErrUnsupportedFormat is returned for input files no loader reads.
	ErrUnsupportedFormat = ingest.ErrUnsupportedFormat
)
