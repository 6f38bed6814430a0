package legalizeapi

// Switches for debugging the passes. Instead of scattering them over the
// packages, they are all here.

// ----- Output prints -----
// These consts must be disabled by default. Enable them only when debugging.

const (
	PrintSSABeforeLegalize = false
	PrintSSAAfterLegalize  = false
)

// ----- Validations -----
// Enabled by default until the passes have been fuzzed for a while.

const (
	SSAValidationEnabled = true
)
