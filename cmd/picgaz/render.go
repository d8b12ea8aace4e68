package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"picgaz/internal/history"
	"picgaz/internal/manifest"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorize(value, color string, enabled bool) string {
	if !enabled || color == "" {
		return value
	}
	return color + value + ansiReset
}

func stateLabel(state manifest.State, color bool) string {
	switch state {
	case manifest.StateValid:
		return colorize(state.String(), ansiGreen, color)
	case manifest.StateMissing:
		return colorize(state.String(), ansiYellow, color)
	default:
		return colorize(state.String(), ansiRed, color)
	}
}

func outcomeLabel(outcome history.Outcome, color bool) string {
	switch outcome {
	case history.OutcomeOK:
		return colorize(string(outcome), ansiGreen, color)
	case history.OutcomeDeclined:
		return colorize(string(outcome), ansiYellow, color)
	default:
		return colorize(string(outcome), ansiRed, color)
	}
}
