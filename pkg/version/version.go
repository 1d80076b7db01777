package version

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"
)

// log is the package logger. These helpers sit on hot validation paths and
// are plain functions, so the logger is a package-level handle rather than a
// struct field. Fail-closed policy: bad input yields a safe default plus a
// warning, never a panic or an error return.
var log = logrus.StandardLogger()

// SetLogger replaces the package logger.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		log = l
	}
}

// IsValid reports whether v parses as a semantic version.
func IsValid(v string) bool {
	if _, err := semver.NewVersion(v); err != nil {
		log.WithField("version", v).Warn("invalid semantic version")
		return false
	}
	return true
}

// IsValidRange reports whether r parses as a version constraint
// (e.g. "^1.2.0", ">=1.0.0 <2.0.0").
func IsValidRange(r string) bool {
	if _, err := semver.NewConstraint(r); err != nil {
		log.WithField("range", r).Warn("invalid version range")
		return false
	}
	return true
}

// Satisfies reports whether version v satisfies range r. Invalid input on
// either side yields false with a logged warning.
func Satisfies(v, r string) bool {
	ver, err := semver.NewVersion(v)
	if err != nil {
		log.WithField("version", v).Warn("cannot check range against invalid version")
		return false
	}

	c, err := semver.NewConstraint(r)
	if err != nil {
		log.WithField("range", r).Warn("cannot check version against invalid range")
		return false
	}

	return c.Check(ver)
}

// Compare returns -1, 0 or 1 for a < b, a == b, a > b. Release versions
// order above their prereleases. Invalid input compares as equal (0) with a
// logged warning.
func Compare(a, b string) int {
	va, err := semver.NewVersion(a)
	if err != nil {
		log.WithField("version", a).Warn("cannot compare invalid version")
		return 0
	}

	vb, err := semver.NewVersion(b)
	if err != nil {
		log.WithField("version", b).Warn("cannot compare invalid version")
		return 0
	}

	return va.Compare(vb)
}

// CompareNumericSegments compares two dotted version strings segment by
// segment, numerically, with missing segments treated as 0. This is the
// comparator the registry uses to pick the highest on-disk version
// directory; it tolerates names that are not strict semver.
func CompareNumericSegments(a, b string) int {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsBreakingChange reports whether updating from -> to crosses a breaking
// boundary: any major bump is breaking, and for pre-1.0 lines a minor bump
// is breaking too. Invalid input yields false with a logged warning.
func IsBreakingChange(from, to string) bool {
	vf, err := semver.NewVersion(from)
	if err != nil {
		log.WithField("version", from).Warn("cannot classify breaking change for invalid version")
		return false
	}

	vt, err := semver.NewVersion(to)
	if err != nil {
		log.WithField("version", to).Warn("cannot classify breaking change for invalid version")
		return false
	}

	if vt.Major() != vf.Major() {
		return true
	}

	// Pre-1.0 lines promise nothing across minor bumps.
	if vf.Major() == 0 && vt.Minor() != vf.Minor() {
		return true
	}

	return false
}

// UpdateStrategy classifies how far apart two versions are.
type UpdateStrategy string

const (
	UpdateNone       UpdateStrategy = "none"
	UpdatePatch      UpdateStrategy = "patch"
	UpdateMinor      UpdateStrategy = "minor"
	UpdateMajor      UpdateStrategy = "major"
	UpdatePrerelease UpdateStrategy = "prerelease"
)

// GetUpdateStrategy classifies the update from current to latest. Equal
// versions yield UpdateNone; a latest carrying a prerelease tag yields
// UpdatePrerelease; otherwise the highest version component that increased
// decides. Invalid input yields UpdateNone with a logged warning.
func GetUpdateStrategy(current, latest string) UpdateStrategy {
	vc, err := semver.NewVersion(current)
	if err != nil {
		log.WithField("version", current).Warn("cannot classify update for invalid version")
		return UpdateNone
	}

	vl, err := semver.NewVersion(latest)
	if err != nil {
		log.WithField("version", latest).Warn("cannot classify update for invalid version")
		return UpdateNone
	}

	if vl.Equal(vc) {
		return UpdateNone
	}

	if vl.Prerelease() != "" {
		return UpdatePrerelease
	}

	switch {
	case vl.Major() > vc.Major():
		return UpdateMajor
	case vl.Major() == vc.Major() && vl.Minor() > vc.Minor():
		return UpdateMinor
	case vl.Major() == vc.Major() && vl.Minor() == vc.Minor() && vl.Patch() > vc.Patch():
		return UpdatePatch
	}

	return UpdateNone
}
