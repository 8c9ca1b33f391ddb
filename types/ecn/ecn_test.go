// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ecn

import "testing"

func TestFromTOSBitsRoundTrip(t *testing.T) {
	for _, c := range []Codepoint{NotECT, ECT1, ECT0, CE} {
		b, ok := c.Bits()
		if !ok {
			t.Fatalf("%v.Bits() not ok", c)
		}
		// DSCP bits above the ECN field must be ignored.
		if got := FromTOS(0xb8 | b); got != c {
			t.Errorf("FromTOS(0xb8|%#b) = %v; want %v", b, got, c)
		}
	}
}

func TestUnset(t *testing.T) {
	var c Codepoint
	if c != Unset {
		t.Fatalf("zero Codepoint = %v; want unset", c)
	}
	if c.IsSet() {
		t.Error("Unset.IsSet() = true")
	}
	if _, ok := Codepoint(9).Bits(); ok {
		t.Error("out of range codepoint reported bits")
	}
}

func TestUnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    Codepoint
		wantErr bool
	}{
		{"", Unset, false},
		{"ect1", ECT1, false},
		{"1", ECT1, false},
		{"ect0", ECT0, false},
		{"ce", CE, false},
		{"not-ect", NotECT, false},
		{"bogus", Unset, true},
	}
	for _, tt := range tests {
		var c Codepoint
		err := c.UnmarshalText([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("UnmarshalText(%q) err = %v; wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if c != tt.want {
			t.Errorf("UnmarshalText(%q) = %v; want %v", tt.in, c, tt.want)
		}
		if !tt.wantErr && tt.in != "" && tt.in[0] > '9' {
			if got, _ := c.MarshalText(); string(got) != tt.in {
				t.Errorf("MarshalText = %q; want %q", got, tt.in)
			}
		}
	}
}
