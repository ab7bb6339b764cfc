package util

import (
	"math"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{90 * time.Second, "00:01:30.000"},
		{1500 * time.Millisecond, "00:00:01.500"},
		{3661*time.Second + 500*time.Millisecond, "01:01:01.500"},
	}

	for _, c := range cases {
		if got := FormatDuration(c.in); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"0/0", 0},
		{"1/0", 0},
		{"garbage", 0},
		{"", 0},
	}

	for _, c := range cases {
		got := ParseFrameRate(c.in)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("ParseFrameRate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFrameToTime(t *testing.T) {
	if got := FrameToTime(150, 30); got != 5*time.Second {
		t.Errorf("FrameToTime(150, 30) = %v, want 5s", got)
	}
	if got := FrameToTime(0, 30); got != 0 {
		t.Errorf("FrameToTime(0, 30) = %v, want 0", got)
	}
	if got := FrameToTime(100, 0); got != 0 {
		t.Errorf("FrameToTime with zero fps = %v, want 0", got)
	}
}
