package version

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"
)

// Encoding is how a program stores its version in memory. It is an assumption
// about the target; a wrong guess shows up as the pattern not being found.
type Encoding int

const (
	// Packed is a little-endian uint32 in the Version.Packed form
	Packed Encoding = iota
	// ASCII is the dotted string, one byte per character
	ASCII
	// UTF16 is the dotted string as UTF-16LE code units
	UTF16
)

var encodingNames = map[Encoding]string{
	Packed: "packed",
	ASCII:  "ascii",
	UTF16:  "utf16",
}

func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// ParseEncoding accepts the names returned by String, ignoring case
func ParseEncoding(s string) (Encoding, error) {
	for e, name := range encodingNames {
		if strings.EqualFold(s, name) {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown encoding %q, want packed, ascii or utf16", s)
}

// unitSize is the width of one character, or of the whole value for Packed
func (e Encoding) unitSize() int {
	if e == UTF16 {
		return 2
	}
	return 1
}

// Encode returns the natural encoding of v, with no terminator or padding
func (e Encoding) Encode(v Version) ([]byte, error) {
	switch e {
	case Packed:
		value, err := v.Packed()
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint32(nil, value), nil
	case ASCII:
		return []byte(v.String()), nil
	case UTF16:
		units := utf16.Encode([]rune(v.String()))
		out := make([]byte, 0, len(units)*2)
		for _, u := range units {
			out = binary.LittleEndian.AppendUint16(out, u)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported encoding %s", e)
}

// EncodeSize encodes v into exactly size bytes. String encodings are padded
// with NUL units; an encoding longer than size is ErrTooLong.
func (e Encoding) EncodeSize(v Version, size int) ([]byte, error) {
	data, err := e.Encode(v)
	if err != nil {
		return nil, err
	}

	if len(data) > size {
		return nil, fmt.Errorf("%w: %s is %d bytes as %s, only %d available", ErrTooLong, v, len(data), e, size)
	}
	if len(data) < size {
		if e == Packed || (size-len(data))%e.unitSize() != 0 {
			return nil, fmt.Errorf("%w: %s cannot be padded from %d to %d bytes as %s", ErrTooLong, v, len(data), size, e)
		}
		data = append(data, make([]byte, size-len(data))...)
	}
	return data, nil
}

// Decode is the inverse of Encode. Trailing NUL padding is ignored for the string encodings.
func (e Encoding) Decode(data []byte) (Version, error) {
	switch e {
	case Packed:
		if len(data) != 4 {
			return Version{}, fmt.Errorf("%w: packed version is 4 bytes, got %d", ErrMalformed, len(data))
		}
		return FromPacked(binary.LittleEndian.Uint32(data))
	case ASCII:
		return Parse(string(bytes.TrimRight(data, "\x00")))
	case UTF16:
		if len(data)%2 != 0 {
			return Version{}, fmt.Errorf("%w: odd UTF-16 length %d", ErrMalformed, len(data))
		}
		units := make([]uint16, 0, len(data)/2)
		for i := 0; i < len(data); i += 2 {
			units = append(units, binary.LittleEndian.Uint16(data[i:]))
		}
		for len(units) > 0 && units[len(units)-1] == 0 {
			units = units[:len(units)-1]
		}
		return Parse(string(utf16.Decode(units)))
	}
	return Version{}, fmt.Errorf("unsupported encoding %s", e)
}

// EncodePair encodes current as the search pattern and target as a replacement
// of the same byte length.
func EncodePair(current, target Version, e Encoding) (source, replacement []byte, err error) {
	source, err = e.Encode(current)
	if err != nil {
		return nil, nil, fmt.Errorf("current version: %w", err)
	}

	replacement, err = e.EncodeSize(target, len(source))
	if err != nil {
		return nil, nil, fmt.Errorf("target version: %w", err)
	}

	return source, replacement, nil
}
