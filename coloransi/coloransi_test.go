package coloransi

import "testing"

func TestColorEnabled(t *testing.T) {
	defer SetEnabled(true)

	SetEnabled(true)
	if got := Foreground(Red, "patched", 4); got != "\033[31mpatched 4\033[0m" {
		t.Errorf("Foreground = %q", got)
	}
	if got := Color(Black, Yellow, "x"); got != "\033[30m\033[43mx\033[0m" {
		t.Errorf("Color = %q", got)
	}
	if got := OneForeground(ColorOrange); got != "\033[38;2;255;140;0m" {
		t.Errorf("OneForeground(rgb) = %q", got)
	}

	SetEnabled(false)
	if got := Color(Black, Yellow, "plain", "text"); got != "plain text" {
		t.Errorf("disabled Color = %q", got)
	}
}
