package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kalambet/intake/internal/intake"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorPlain  = "\033[39m"
	colorBold   = "\033[1m"
)

// stderr receives status lines so stdout stays clean for `list --json`.
var stderr io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// colorizeType highlights the known employee type labels of every locale:
// formal employees in green, interns in yellow. Other values get the default
// color so every cell carries escape codes of the same width for tabwriter.
func colorizeType(t string) string {
	switch {
	case intake.IsFormal(t):
		return colorize(colorGreen, t)
	case intake.IsIntern(t):
		return colorize(colorYellow, t)
	default:
		return colorize(colorPlain, t)
	}
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}
