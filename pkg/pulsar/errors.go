package pulsar

import "errors"

// Sentinel errors for common error conditions
var (
	// CLI errors
	ErrUsage = errors.New("invalid usage")

	// Script errors
	ErrScriptLoad          = errors.New("script load failed")
	ErrScriptRuntime       = errors.New("script runtime error")
	ErrResultShape         = errors.New("unexpected script result shape")
	ErrUnsupportedValue    = errors.New("unsupported value")
	ErrIncompatibleVersion = errors.New("incompatible engine version")

	// I/O errors
	ErrInputIO  = errors.New("input read failed")
	ErrOutputIO = errors.New("output write failed")
)
