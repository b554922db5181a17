package iojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// FileReader decodes one JSON value of type T from the file named by its
// flag, or from stdin when the flag is unset.
type FileReader[T any] struct {
	fileFlagValue string

	// Stdin overrides os.Stdin. A non-nil Stdin is never treated as a
	// terminal.
	Stdin io.Reader
}

func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to JSON file (reads from stdin if not provided)",
		Destination: &fr.fileFlagValue,
	}
}

// SetFile sets the path normally supplied by the flag.
func (fr *FileReader[T]) SetFile(path string) {
	fr.fileFlagValue = path
}

func (fr *FileReader[T]) Read() (T, error) {
	var input T

	reader, closer, err := fr.open()
	if err != nil {
		return input, err
	}
	defer closer()

	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		return input, fmt.Errorf("decode JSON: %w", err)
	}

	return input, nil
}

func (fr *FileReader[T]) open() (io.Reader, func(), error) {
	if fr.fileFlagValue != "" {
		f, err := os.Open(fr.fileFlagValue)
		if err != nil {
			return nil, nil, fmt.Errorf("open file: %w", err)
		}
		return f, func() { _ = f.Close() }, nil
	}

	if fr.Stdin != nil {
		return fr.Stdin, func() {}, nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, nil, fmt.Errorf("no input provided (stdin is a terminal); use -f flag or pipe JSON input")
	}
	return os.Stdin, func() {}, nil
}
