package pulsar

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Version is the engine version reported by -version and checked against
// scripts that declare an engineVersion binding.
const Version = "v0.3.0"

// CheckEngineVersion checks whether a script written for the given engine
// version can run on this engine. Compatibility rules:
// - Major version must match exactly.
// - The engine must be at least as new as the declared version.
func CheckEngineVersion(declared string) error {
	if !semver.IsValid(declared) {
		return fmt.Errorf("%w: invalid engineVersion %q", ErrIncompatibleVersion, declared)
	}

	if semver.Major(declared) != semver.Major(Version) {
		return fmt.Errorf("%w: script targets engine %s, this engine is %s (required major: %s)",
			ErrIncompatibleVersion, declared, Version, semver.Major(Version))
	}

	if semver.Compare(declared, Version) > 0 {
		return fmt.Errorf("%w: script targets engine %s, this engine is %s",
			ErrIncompatibleVersion, declared, Version)
	}

	return nil
}
