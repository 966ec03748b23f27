// Package version implements numeric sort keys for artifact version strings.
//
// Versions found in repository archives mix numeric components with
// free-form qualifiers ("1.3.0.Final-redhat-00004"). Release ordering is
// carried by the numeric components, so a version string is reduced to the
// ordered tuple of its digit runs and tuples are compared lexicographically:
//
//	Parse("1.3.0").Less(Parse("1.4.0"))   // true
//	Parse("1.2.0").Less(Parse("1.10.0"))  // true, components compare as numbers
//	Parse("1.99.9").Less(Parse("1.100.0")) // true, no magnitude ceiling
//
// Qualifier text between digit runs is discarded: "1.3.0.Final" and
// "1.3.0.GA" compare equal. Callers that need a total order over such
// versions break ties positionally (see the merge selector).
package version

import (
	"math"
	"strconv"
	"strings"
)

// Key is the ordered tuple of numeric components extracted from a version
// string. The zero value (nil) is a valid key that orders before every
// non-empty key.
type Key []uint64

// Parse extracts the numeric components of s.
//
// The string is split on runs of non-digit characters and empty fragments
// are discarded, so separators and qualifiers contribute nothing:
// "1.3.0.Final-redhat-00004" parses to [1 3 0 4]. A digit run too large for
// uint64 saturates to the maximum value, keeping the ordering total for
// pathological inputs. Parse never fails; a string without digits yields an
// empty key.
func Parse(s string) Key {
	var key Key
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			key = append(key, parseComponent(s[start:i]))
			start = -1
		}
	}
	return key
}

func parseComponent(run string) uint64 {
	n, err := strconv.ParseUint(run, 10, 64)
	if err != nil {
		return math.MaxUint64
	}
	return n
}

// Compare returns -1 if k orders before other, +1 if after, and 0 if the
// keys are equal. Components are compared pairwise left to right; when one
// key is a strict prefix of the other, the shorter key orders first, so
// "1.3" precedes "1.3.0".
func (k Key) Compare(other Key) int {
	n := min(len(k), len(other))
	for i := 0; i < n; i++ {
		switch {
		case k[i] < other[i]:
			return -1
		case k[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(k) < len(other):
		return -1
	case len(k) > len(other):
		return 1
	}
	return 0
}

// Less reports whether k orders strictly before other.
func (k Key) Less(other Key) bool { return k.Compare(other) < 0 }

// Equal reports whether k and other contain the same components.
func (k Key) Equal(other Key) bool { return k.Compare(other) == 0 }

// IsZero reports whether the key has no components, i.e. the source string
// contained no digits.
func (k Key) IsZero() bool { return len(k) == 0 }

// String renders the key in dotted form ("1.3.0.4"). An empty key renders
// as the empty string.
func (k Key) String() string {
	if len(k) == 0 {
		return ""
	}
	parts := make([]string, len(k))
	for i, c := range k {
		parts[i] = strconv.FormatUint(c, 10)
	}
	return strings.Join(parts, ".")
}
