package util

import (
	"strings"

	"github.com/fatih/color"
)

var green = color.New(color.FgGreen).SprintFunc()
var whiteBold = color.New(color.FgWhite, color.Bold).SprintFunc()

func GenerateHelpSection(title string, body string) string {
	return green(title) + "\n\n" + whiteBold(body)
}

// HelpSection is a titled part of a driver help.
type HelpSection struct {
	Title string
	Body  string
}

// GenerateHelp joins the sections with a blank line between them.
func GenerateHelp(sections ...HelpSection) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, GenerateHelpSection(s.Title, strings.TrimRight(s.Body, "\n")+"\n"))
	}
	return strings.Join(parts, "\n")
}
