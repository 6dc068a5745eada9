package pipeline

import (
	"fmt"
	"io"
	"strings"
)

// StdioPath selects stdin for input or stdout for output.
const StdioPath = "-"

// Config holds everything one document run needs besides the translator.
type Config struct {
	// IO Paths; StdioPath reads Stdin / writes Stdout.
	InputPath  string
	OutputPath string
	Stdin      io.Reader
	Stdout     io.Writer

	// Overwrite replaces an existing output file without asking.
	Overwrite bool
	// NoClobber writes to a numbered sibling instead of replacing.
	NoClobber bool

	// OnConfirmOverwrite is called when the output file exists and neither
	// flag decides. A false answer skips the run.
	OnConfirmOverwrite func(path string) (bool, error)
}

// Validate checks the path combination before any work is done.
func (c Config) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return fmt.Errorf("input path is empty")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return fmt.Errorf("output path is empty")
	}
	if c.Overwrite && c.NoClobber {
		return fmt.Errorf("overwrite and no-clobber cannot be used together")
	}
	if c.InputPath == StdioPath && c.Stdin == nil {
		return fmt.Errorf("stdin is not available")
	}
	if c.OutputPath == StdioPath && c.Stdout == nil {
		return fmt.Errorf("stdout is not available")
	}
	return nil
}
