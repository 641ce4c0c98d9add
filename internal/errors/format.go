package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// ANSI escape sequences used by Format.
const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiBlue  = "\033[34m"
	ansiCyan  = "\033[36m"
	ansiGray  = "\033[90m"
	ansiBold  = "\033[1m"
)

var colorEnabled = true

// DisableColors turns off ANSI colors in Format and PrintError.
func DisableColors() {
	colorEnabled = false
}

// EnableColors turns ANSI colors back on.
func EnableColors() {
	colorEnabled = true
}

func paint(text string, codes ...string) string {
	if !colorEnabled || len(codes) == 0 {
		return text
	}
	return strings.Join(codes, "") + text + ansiReset
}

// detailWidth is the column Format wraps details at.
const detailWidth = 70

// Format renders the error for a terminal: header, wrapped detail, hint,
// cause and documentation link.
func (e *VangoError) Format() string {
	var b strings.Builder

	label := "ERROR:"
	if e.Code != "" {
		label = "ERROR " + e.Code + ":"
	}
	fmt.Fprintf(&b, "\n%s %s\n\n", paint(label, ansiRed, ansiBold), paint(e.Message, ansiBold))

	if lines := wrapText(e.Detail, detailWidth); len(lines) > 0 {
		for _, line := range lines {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s %s\n\n", paint("Hint:", ansiCyan), e.Suggestion)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s %s\n\n", paint("Cause:", ansiGray), e.Wrapped.Error())
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s %s\n", paint("Learn more:", ansiGray), paint(e.DocURL, ansiBlue))
	}
	return b.String()
}

// FormatCompact renders the error on one line, without the cause.
func (e *VangoError) FormatCompact() string {
	s := e.Message
	if e.Code != "" {
		s = e.Code + ": " + s
	}
	if e.Detail != "" {
		s += " (" + e.Detail + ")"
	}
	return s
}

type jsonError struct {
	Code       string   `json:"code,omitempty"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Detail     string   `json:"detail,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Cause      string   `json:"cause,omitempty"`
	DocURL     string   `json:"docUrl,omitempty"`
}

// FormatJSON renders the error as a JSON object.
func (e *VangoError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// wrapText splits text into lines of at most width bytes, breaking on
// spaces. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// PrintError writes err to w, formatted when it carries a VangoError.
func PrintError(w io.Writer, err error) {
	var ve *VangoError
	if stderrors.As(err, &ve) {
		io.WriteString(w, ve.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint("ERROR:", ansiRed, ansiBold), err.Error())
}
