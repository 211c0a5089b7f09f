package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a major.minor version number attached to a version edge.
// The zero value ("0.0") means "not yet versioned".
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// ParseVersion parses a "major.minor" string such as "2.3".
func ParseVersion(s string) (Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	ma, err := strconv.Atoi(major)
	if err != nil {
		return Version{}, fmt.Errorf("malformed version %q: %w", s, err)
	}
	mi, err := strconv.Atoi(minor)
	if err != nil {
		return Version{}, fmt.Errorf("malformed version %q: %w", s, err)
	}
	if ma < 0 || mi < 0 {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	return Version{Major: ma, Minor: mi}, nil
}

// MustParseVersion parses s and panics on malformed input. For literals.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsZero reports whether the version is the unversioned zero value.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

// Less orders versions numerically, major first.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// Compare returns -1, 0 or 1 comparing v against other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Less(other):
		return -1
	case other.Less(v):
		return 1
	default:
		return 0
	}
}

// VersionPolicy decides the version number assigned by a lifecycle step.
// The numbering scheme varies per entity type in some deployments, so the
// repository takes it as a dependency rather than hard-coding one.
type VersionPolicy interface {
	// Initial is the version of the first draft of a new root.
	Initial() Version
	// NextDraft is the version assigned when a draft is edited, or when a
	// new draft is opened over a final version.
	NextDraft(current Version, currentStatus VersionStatus) Version
	// NextFinal is the version assigned when a draft is approved.
	NextFinal(current Version) Version
}

// StandardVersionPolicy numbers versions the way the library concepts do:
// 0.1 on create, minor bumps while drafting, whole majors on approval, and
// the version number carried over unchanged on retire and reactivate.
type StandardVersionPolicy struct{}

// Initial returns 0.1.
func (StandardVersionPolicy) Initial() Version {
	return Version{Major: 0, Minor: 1}
}

// NextDraft bumps the minor number. Editing a final version opens the next
// draft lineage on top of the approved major (1.0 -> 1.1 draft).
func (StandardVersionPolicy) NextDraft(current Version, _ VersionStatus) Version {
	return Version{Major: current.Major, Minor: current.Minor + 1}
}

// NextFinal promotes to the next whole major (0.2 -> 1.0, 1.3 -> 2.0).
func (StandardVersionPolicy) NextFinal(current Version) Version {
	return Version{Major: current.Major + 1, Minor: 0}
}
