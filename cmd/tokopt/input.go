package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	formatAuto     = "auto"
	formatJSON     = "json"
	formatText     = "text"
	formatMarkdown = "markdown"
)

// readInput returns the JSON payload named by arg: "-" reads stdin, an
// argument starting with '{' or '[' is inline JSON, anything else is a path.
func readInput(arg string, stdin io.Reader) ([]byte, error) {
	trimmed := strings.TrimSpace(arg)
	switch {
	case trimmed == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		return []byte(trimmed), nil
	default:
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
		return data, nil
	}
}

// inputName labels an input argument for stored history.
func inputName(arg string) string {
	trimmed := strings.TrimSpace(arg)
	switch {
	case trimmed == "-":
		return "stdin"
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		return "inline"
	default:
		return arg
	}
}

// resolveFormat maps "auto" to text on a terminal and JSON otherwise.
func resolveFormat(format string, out io.Writer) (string, error) {
	switch f := strings.ToLower(format); f {
	case formatJSON, formatText, formatMarkdown:
		return f, nil
	case "", formatAuto:
		if isTerminal(out) {
			return formatText, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("invalid --format %q (use auto, json, text or markdown)", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
