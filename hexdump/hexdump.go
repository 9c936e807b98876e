// Package hexdump renders memory as hex and ASCII, highlighting byte ranges.
package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"verpatch/coloransi"
	"verpatch/process"
)

// Span is a highlighted byte range, relative to the start of the dumped data
type Span struct {
	Offset int
	Length int
}

func (s Span) contains(i int) bool {
	return i >= s.Offset && i < s.Offset+s.Length
}

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// StartAddress is the address printed for the first byte
	StartAddress uint64

	Highlight []Span

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	AddressColor   coloransi.ColorCode
	HexColor       coloransi.ColorCode
	ZeroColor      coloransi.ColorCode
	HighlightColor coloransi.ColorCode
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine:   16,
		AddressColor:   coloransi.Cyan,
		HexColor:       coloransi.Green,
		ZeroColor:      coloransi.BrightBlack,
		HighlightColor: coloransi.Yellow,
	}
}

func (o HexDumpOptions) highlighted(i int) bool {
	for _, s := range o.Highlight {
		if s.contains(i) {
			return true
		}
	}
	return false
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}

	lines := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lines >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			return
		}
		lines++

		end := min(offset+options.BytesPerLine, len(data))

		var hex, ascii strings.Builder
		for i := offset; i < offset+options.BytesPerLine; i++ {
			if i > offset && (i-offset)%8 == 0 {
				hex.WriteByte(' ')
			}
			if i >= end {
				hex.WriteString("   ")
				continue
			}

			b := data[i]
			h := fmt.Sprintf("%02x", b)
			c := "."
			if b >= 0x20 && b < 0x7f {
				c = string(rune(b))
			}

			switch {
			case options.highlighted(i):
				h = coloransi.Color(coloransi.Black, options.HighlightColor, h)
				c = coloransi.Color(coloransi.Black, options.HighlightColor, c)
			case b == 0:
				h = coloransi.Foreground(options.ZeroColor, h)
			default:
				h = coloransi.Foreground(options.HexColor, h)
			}
			hex.WriteString(h)
			hex.WriteByte(' ')
			ascii.WriteString(c)
		}

		address := coloransi.Foreground(options.AddressColor, fmt.Sprintf("%016x", options.StartAddress+uint64(offset)))
		fmt.Fprintf(writer, "%s  %s |%s|\n", address, hex.String(), ascii.String())
	}
}

// Around dumps length bytes at addr with radius bytes of context on each side,
// clamped to the region that holds addr. The bytes at addr are highlighted.
func Around(proc process.Process, addr process.ProcessMemoryAddress, length, radius int) (string, error) {
	region, err := proc.QueryRegion(uint64(addr))
	if err != nil {
		return "", err
	}
	if !region.Contains(uint64(addr), uint(length)) {
		return "", fmt.Errorf("%s: %w", addr, process.ErrAddressNotMapped)
	}

	start := max(uint64(addr)-uint64(radius), region.Address)
	if uint64(addr) < uint64(radius) {
		start = region.Address
	}
	end := min(uint64(addr)+uint64(length)+uint64(radius), region.End())

	data, err := proc.ReadMemory(process.ProcessMemoryAddress(start), process.ProcessMemorySize(end-start))
	if err != nil {
		return "", err
	}

	options := DefaultOptions()
	options.StartAddress = start
	options.Highlight = []Span{{Offset: int(uint64(addr) - start), Length: length}}
	return Dump(data, options), nil
}
