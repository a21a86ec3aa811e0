package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
)

var statusColors = map[statusKind]text.Colors{
	statusInfo: {text.FgBlue},
	statusOK:   {text.FgGreen},
	statusWarn: {text.FgYellow, text.Bold},
}

func (k statusKind) tag() string {
	switch k {
	case statusOK:
		return "[OK]"
	case statusWarn:
		return "[WARN]"
	default:
		return "[INFO]"
	}
}

// statusLine is one row of a report such as the crop summary.
type statusLine struct {
	label   string
	kind    statusKind
	message string
}

// writeReport prints a titled block of status lines. Labels are padded to
// the longest one in the block so the tags line up.
func writeReport(out io.Writer, title string, lines []statusLine, colorize bool) {
	title = strings.TrimSpace(title)
	rule := strings.Repeat("─", utf8.RuneCountInString(title))
	if colorize {
		title = text.Bold.Sprint(title)
	}
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, rule)

	width := 0
	for _, line := range lines {
		width = max(width, utf8.RuneCountInString(line.label)+1)
	}
	for _, line := range lines {
		fmt.Fprintln(out, renderStatusLine(line, width, colorize))
	}
}

// renderStatusLine formats "  Label:  [KIND] message". Only the tag is colored.
func renderStatusLine(line statusLine, width int, colorize bool) string {
	tag := line.kind.tag()
	if colorize {
		tag = statusColors[line.kind].Sprint(tag)
	}
	rendered := fmt.Sprintf("  %-*s %s", width, line.label+":", tag)
	if line.message != "" {
		rendered += " " + line.message
	}
	return rendered
}

// shouldColorize reports whether out is an interactive terminal that has not
// opted out of color through NO_COLOR or TERM=dumb.
func shouldColorize(out io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok || os.Getenv("TERM") == "dumb" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
