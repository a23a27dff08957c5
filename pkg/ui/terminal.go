// Package ui handles the command line surface. Results go to stdout as JSON so
// callers can parse them; everything meant for a human goes to stderr, colored
// when stderr is a terminal.
package ui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

var (
	stdout   io.Writer = os.Stdout
	stderr   io.Writer = os.Stderr
	useColor           = term.IsTerminal(int(os.Stderr.Fd()))
	quiet    bool
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !useColor {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// SetColor forces colored output on or off
func SetColor(enabled bool) {
	useColor = enabled
}

// SetQuietMode suppresses everything but errors on stderr
func SetQuietMode(enabled bool) {
	quiet = enabled
}

// SetOutput redirects the result and message streams
func SetOutput(out, msg io.Writer) {
	stdout = out
	stderr = msg
}

// PrintJSON writes v to stdout as a JSON document
func PrintJSON(v interface{}, pretty bool) error {
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(stderr, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(stderr, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if quiet {
		return
	}
	fmt.Fprintln(stderr, Green(msg))
}

// PrintInfo prints a labelled value
func PrintInfo(label string, value string) {
	if quiet {
		return
	}
	fmt.Fprintf(stderr, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if quiet {
		return
	}
	if len(args) > 0 {
		fmt.Fprintln(stderr, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(stderr, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if quiet {
		return
	}
	fmt.Fprintln(stderr, Magenta(msg))
}

// ReadSecret prompts on stderr and reads a line from stdin without echo when
// stdin is a terminal
func ReadSecret(prompt string) (string, error) {
	fmt.Fprint(stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
