// Package coloransi renders ANSI colored text for terminal output. Coloring is
// switched off as a whole when the output is not a terminal.
package coloransi

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

// ColorCode represents ANSI color codes and RGB colors as a 32-bit integer.
// The lower 8 bits represent ANSI color codes, and the upper 24 bits represent RGB values.
type ColorCode uint32

// ANSI color codes
const (
	Black   ColorCode = 30
	Red     ColorCode = 31
	Green   ColorCode = 32
	Yellow  ColorCode = 33
	Blue    ColorCode = 34
	Magenta ColorCode = 35
	Cyan    ColorCode = 36
	White   ColorCode = 37

	// For bright colors, add 60
	BrightBlack ColorCode = Black + 60
	BrightRed   ColorCode = Red + 60
	BrightGreen ColorCode = Green + 60

	BackgroundOffset ColorCode = 10

	RGBMask ColorCode = 0xFFFFFF00
)

func CreateRGB(r, g, b uint8) ColorCode {
	return ColorCode(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8)
}

var ColorOrange ColorCode = CreateRGB(255, 140, 0)
var ColorLimeGreen ColorCode = CreateRGB(50, 205, 50)

// IsRGB checks if the ColorCode represents an RGB color
func (c ColorCode) IsRGB() bool {
	return c&RGBMask != 0
}

var disabled atomic.Bool

// SetEnabled turns escape sequences on or off for every function in this package
func SetEnabled(on bool) {
	disabled.Store(!on)
}

func Enabled() bool {
	return !disabled.Load()
}

// EnableFor enables color only if fd is a terminal and reports the result
func EnableFor(fd uintptr) bool {
	on := isatty.IsTerminal(fd)
	SetEnabled(on)
	return on
}

func join(v []interface{}) string {
	args := make([]string, len(v))
	for i, arg := range v {
		args[i] = fmt.Sprint(arg)
	}
	return strings.Join(args, " ")
}

// Color formats the given text with the specified foreground and background colors.
func Color(fg, bg ColorCode, v ...interface{}) string {
	if !Enabled() {
		return join(v)
	}
	return OneForeground(fg) + OneBackground(bg) + join(v) + Reset()
}

// Foreground formats the given text with the specified foreground color.
func Foreground(fg ColorCode, v ...interface{}) string {
	if !Enabled() {
		return join(v)
	}
	return OneForeground(fg) + join(v) + Reset()
}

// OneForeground returns the ANSI escape sequence for the given color code.
func OneForeground(code ColorCode) string {
	if code.IsRGB() {
		return fmt.Sprintf("\033[38;2;%d;%d;%dm", (code>>24)&0xFF, (code>>16)&0xFF, (code>>8)&0xFF)
	}
	return fmt.Sprintf("\033[%dm", code)
}

// OneBackground returns the ANSI escape sequence for the given background color code.
func OneBackground(code ColorCode) string {
	if code.IsRGB() {
		return fmt.Sprintf("\033[48;2;%d;%d;%dm", (code>>24)&0xFF, (code>>16)&0xFF, (code>>8)&0xFF)
	}
	return fmt.Sprintf("\033[%dm", code+BackgroundOffset)
}

// Reset returns the ANSI escape sequence to reset the text color.
func Reset() string {
	return "\033[0m"
}
