package security

import "testing"

func TestMaskString(t *testing.T) {
	cases := []struct {
		in     string
		prefix int
		suffix int
		want   string
	}{
		{"alice", 2, 1, "al****e"},
		{"operator-zhang", 2, 0, "op****"},
		{"ab", 2, 1, "ab"},
		{"", 2, 1, ""},
	}
	for _, c := range cases {
		if got := MaskString(c.in, c.prefix, c.suffix); got != c.want {
			t.Errorf("MaskString(%q, %d, %d) = %q, want %q", c.in, c.prefix, c.suffix, got, c.want)
		}
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken("eyJhbGciOiJIUzI1NiJ9"); got != "eyJhbG****" {
		t.Errorf("MaskToken long = %q", got)
	}
	if got := MaskToken("short"); got != "****" {
		t.Errorf("MaskToken short = %q", got)
	}
	if got := MaskToken("  eyJhbGciOiJIUzI1NiJ9  "); got != "eyJhbG****" {
		t.Errorf("MaskToken trimmed = %q", got)
	}
}
