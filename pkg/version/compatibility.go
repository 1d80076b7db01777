package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// IncompatibilityReason explains a failed compatibility check.
type IncompatibilityReason string

const (
	ReasonInvalidVersion IncompatibilityReason = "invalid_version"
	ReasonVersionTooLow  IncompatibilityReason = "version_too_low"
	ReasonVersionTooHigh IncompatibilityReason = "version_too_high"
)

// CompatibilityResult is the outcome of a CheckCompatibility call.
type CompatibilityResult struct {
	Compatible bool                  `json:"compatible"`
	Reason     IncompatibilityReason `json:"reason,omitempty"`
	Details    string                `json:"details,omitempty"`
}

// CheckCompatibility verifies that current falls inside [min, max]. An empty
// max means no upper bound. Pure function of its inputs; unparseable input
// reports ReasonInvalidVersion rather than an error.
func CheckCompatibility(min, max, current string) CompatibilityResult {
	vc, err := semver.NewVersion(current)
	if err != nil {
		return CompatibilityResult{
			Reason:  ReasonInvalidVersion,
			Details: fmt.Sprintf("invalid current version %q", current),
		}
	}

	vmin, err := semver.NewVersion(min)
	if err != nil {
		return CompatibilityResult{
			Reason:  ReasonInvalidVersion,
			Details: fmt.Sprintf("invalid minimum version %q", min),
		}
	}

	if vc.LessThan(vmin) {
		return CompatibilityResult{
			Reason:  ReasonVersionTooLow,
			Details: fmt.Sprintf("version %s is below the minimum %s", current, min),
		}
	}

	if max != "" {
		vmax, err := semver.NewVersion(max)
		if err != nil {
			return CompatibilityResult{
				Reason:  ReasonInvalidVersion,
				Details: fmt.Sprintf("invalid maximum version %q", max),
			}
		}
		if vc.GreaterThan(vmax) {
			return CompatibilityResult{
				Reason:  ReasonVersionTooHigh,
				Details: fmt.Sprintf("version %s is above the maximum %s", current, max),
			}
		}
	}

	return CompatibilityResult{Compatible: true}
}
