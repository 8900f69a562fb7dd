package edge

import (
	"strings"
	"testing"
)

func TestFormatRate(t *testing.T) {
	tests := []struct {
		rate int
		want string
	}{
		{10, "+10%"},
		{-5, "-5%"},
		{0, "+0%"},
		{50, "+50%"},
		{-50, "-50%"},
	}
	for _, tt := range tests {
		if got := FormatRate(tt.rate); got != tt.want {
			t.Errorf("FormatRate(%d) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestFormatPitch(t *testing.T) {
	tests := []struct {
		pitch int
		want  string
	}{
		{0, "+0Hz"},
		{20, "+20Hz"},
		{-20, "-20Hz"},
	}
	for _, tt := range tests {
		if got := FormatPitch(tt.pitch); got != tt.want {
			t.Errorf("FormatPitch(%d) = %q, want %q", tt.pitch, got, tt.want)
		}
	}
}

func TestBuildSSML(t *testing.T) {
	ssml := buildSSML("Hello", "en-US-AriaNeural", "+10%", "-5Hz")
	for _, want := range []string{
		"name='en-US-AriaNeural'",
		"rate='+10%'",
		"pitch='-5Hz'",
		">Hello</prosody>",
	} {
		if !strings.Contains(ssml, want) {
			t.Errorf("ssml missing %q:\n%s", want, ssml)
		}
	}
}

func TestBuildSSMLEscapesText(t *testing.T) {
	ssml := buildSSML(`Tom & Jerry <3 "quotes"`, "en-US-AriaNeural", "+0%", "+0Hz")
	if strings.Contains(ssml, "& Jerry") || strings.Contains(ssml, "<3") {
		t.Errorf("text not escaped:\n%s", ssml)
	}
	if !strings.Contains(ssml, "&amp; Jerry &lt;3 &quot;quotes&quot;") {
		t.Errorf("unexpected escaping:\n%s", ssml)
	}
}
