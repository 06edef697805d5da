package main

import "testing"

func TestProjectName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"demo", "demo"},
		{"My Project", "my-project"},
		{"  Spaced  ", "spaced"},
		{"cli_v2", "cli_v2"},
		{"42crates", "logos-project"},
		{"---", "logos-project"},
		{"", "logos-project"},
		{"Ünïcode", "ncode"},
	}
	for _, tc := range cases {
		if got := projectName(tc.in); got != tc.want {
			t.Errorf("projectName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReadUIMode(t *testing.T) {
	for _, in := range []string{"", "auto", "ON", " off "} {
		if _, err := readUIMode(in); err != nil {
			t.Errorf("readUIMode(%q): unexpected error %v", in, err)
		}
	}
	if _, err := readUIMode("maybe"); err == nil {
		t.Errorf("invalid mode should be rejected")
	}
	if !shouldUseTUI(uiModeOn) {
		t.Errorf("explicit on forces the TUI")
	}
	if shouldUseTUI(uiModeOff) {
		t.Errorf("explicit off suppresses the TUI")
	}
}
