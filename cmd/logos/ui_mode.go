package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode controls whether analyze renders the interactive progress view.
type uiMode int

const (
	uiModeAuto uiMode = iota
	uiModeOn
	uiModeOff
)

var uiModeNames = map[string]uiMode{
	"":     uiModeAuto,
	"auto": uiModeAuto,
	"on":   uiModeOn,
	"off":  uiModeOff,
}

func readUIMode(value string) (uiMode, error) {
	mode, ok := uiModeNames[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return uiModeAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
	return mode, nil
}

// Auto mode enables the TUI only when stdout is an interactive terminal.
func shouldUseTUI(mode uiMode) bool {
	if mode == uiModeAuto {
		return isTerminal(os.Stdout)
	}
	return mode == uiModeOn
}
