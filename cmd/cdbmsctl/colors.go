package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI color codes
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
)

var colorsEnabled = os.Getenv("NO_COLOR") == ""

func colorize(color, text string) string {
	if !colorsEnabled {
		return text
	}
	return color + text + ansiReset
}

func colorRed(text string) string    { return colorize(ansiRed, text) }
func colorGreen(text string) string  { return colorize(ansiGreen, text) }
func colorYellow(text string) string { return colorize(ansiYellow, text) }
func colorCyan(text string) string   { return colorize(ansiCyan, text) }
func colorBold(text string) string   { return colorize(ansiBold, text) }
func colorDim(text string) string    { return colorize(ansiDim, text) }

func printSuccess(message string) {
	fmt.Println(colorGreen("✓") + " " + message)
}

func printError(message string) {
	fmt.Fprintln(os.Stderr, colorRed("✗")+" "+message)
}

func printWarning(message string) {
	fmt.Println(colorYellow("⚠") + " " + message)
}

func printHeader(title string) {
	fmt.Println("\n" + colorBold(colorCyan(title)))
	fmt.Println(colorDim("────────────────────────────────────────"))
}

// printTable writes an aligned table. Widths are computed before coloring
// so escape codes do not skew the columns.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		fmt.Fprint(w, colorBold(h)+strings.Repeat(" ", widths[i]-len(h)+2))
	}
	fmt.Fprintln(w)

	for _, width := range widths {
		fmt.Fprint(w, strings.Repeat("─", width)+"  ")
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprintf(w, "%-*s  ", widths[i], cell)
		}
		fmt.Fprintln(w)
	}
}
