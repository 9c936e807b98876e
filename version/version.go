// Package version parses four-part version strings and encodes them into the
// byte patterns a running program keeps in memory.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned for anything that is not four dot-separated non-negative integers
	ErrMalformed = errors.New("malformed version")

	// ErrTooLong is returned when a version cannot be encoded within the required byte length
	ErrTooLong = errors.New("encoded version too long")
)

// Version is a major.minor.patch.build quadruple
type Version [4]uint32

// Parse parses "a.b.c.d". Components are decimal without sign or leading zeros.
func Parse(s string) (Version, error) {
	var v Version

	parts := strings.Split(s, ".")
	if len(parts) != len(v) {
		return v, fmt.Errorf("%w: %q has %d components, want %d", ErrMalformed, s, len(parts), len(v))
	}

	for i, part := range parts {
		if part == "" || (len(part) > 1 && part[0] == '0') {
			return v, fmt.Errorf("%w: %q component %d", ErrMalformed, s, i)
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return v, fmt.Errorf("%w: %q component %d: %w", ErrMalformed, s, i, err)
		}
		v[i] = uint32(n)
	}

	return v, nil
}

// MustParse is Parse for constants
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// Packed returns v in the 0x6MNNPPBB form: a 6 nibble, the major version in one
// hex digit, then one byte each for minor, patch and build.
func (v Version) Packed() (uint32, error) {
	if v[0] > 0xF || v[1] > 0xFF || v[2] > 0xFF || v[3] > 0xFF {
		return 0, fmt.Errorf("%w: %s does not fit the packed form", ErrTooLong, v)
	}
	return 0x60000000 | v[0]<<24 | v[1]<<16 | v[2]<<8 | v[3], nil
}

// FromPacked is the inverse of Packed
func FromPacked(value uint32) (Version, error) {
	if value>>28 != 0x6 {
		return Version{}, fmt.Errorf("%w: 0x%08x is not a packed version", ErrMalformed, value)
	}
	return Version{(value >> 24) & 0xF, (value >> 16) & 0xFF, (value >> 8) & 0xFF, value & 0xFF}, nil
}
