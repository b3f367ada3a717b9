package landing

import (
	"fmt"
	"strings"
	"time"
)

// Versions are calendar dates in YYYYMMDD form, prefixed to filenames with
// a double underscore: 20260815__SOLKAT_CH_DACH.zip. The prefix sorts
// lexicographically in date order, so the newest landed file of a dataset
// is always the last one in a sorted listing.

const versionSep = "__"

// FormatVersion renders a timestamp as a YYYYMMDD version string.
func FormatVersion(t time.Time) string {
	return t.UTC().Format("20060102")
}

// ParseVersion parses a YYYYMMDD version string.
func ParseVersion(v string) (time.Time, error) {
	t, err := time.Parse("20060102", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad version %q: %w", v, err)
	}
	return t, nil
}

// VersionedName prefixes a base filename with a version.
func VersionedName(version, base string) string {
	return version + versionSep + base
}

// SplitVersioned splits a versioned filename into version and base name.
// Returns ok=false for names that carry no version prefix.
func SplitVersioned(name string) (version, base string, ok bool) {
	i := strings.Index(name, versionSep)
	if i != 8 {
		return "", "", false
	}
	version = name[:i]
	if _, err := ParseVersion(version); err != nil {
		return "", "", false
	}
	return version, name[i+len(versionSep):], true
}

// LatestVersion returns the highest version among versioned names sharing
// the given base filename. Empty string when none match.
func LatestVersion(names []string, base string) string {
	latest := ""
	for _, n := range names {
		// Strip any directory part
		if i := strings.LastIndex(n, "/"); i >= 0 {
			n = n[i+1:]
		}
		v, b, ok := SplitVersioned(n)
		if !ok || b != base {
			continue
		}
		if v > latest {
			latest = v
		}
	}
	return latest
}
