// Package pipeline runs one document through a translator: path checks,
// overwrite policy, reading, translating and an atomic write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oukeidos/mdtrans/internal/files"
	"github.com/oukeidos/mdtrans/internal/logger"
)

// Translator is satisfied by *translator.Service.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// RunTranslation executes the full document pipeline. A declined overwrite
// returns TranslationStatusSkipped without an error.
func RunTranslation(ctx context.Context, cfg Config, tr Translator) (TranslationResult, error) {
	if err := cfg.Validate(); err != nil {
		return TranslationResult{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := checkPaths(cfg.InputPath, cfg.OutputPath); err != nil {
		return TranslationResult{}, err
	}

	if cfg.OutputPath != StdioPath && !cfg.NoClobber {
		proceed, err := confirmOutput(cfg)
		if err != nil {
			return TranslationResult{}, err
		}
		if !proceed {
			logger.Info("Output file exists. Aborted by user.", "path", cfg.OutputPath)
			return TranslationResult{Status: TranslationStatusSkipped}, nil
		}
	}

	input, err := readInput(cfg)
	if err != nil {
		return TranslationResult{}, err
	}
	logger.Debug("Loaded document", "path", cfg.InputPath, "bytes", len(input))

	start := time.Now()
	output, err := tr.Translate(ctx, string(input))
	if err != nil {
		return TranslationResult{}, err
	}

	written, err := writeOutput(cfg, []byte(output))
	if err != nil {
		return TranslationResult{}, err
	}
	return TranslationResult{
		Status:      TranslationStatusSuccess,
		OutputPath:  written,
		InputBytes:  len(input),
		OutputBytes: len(output),
		Elapsed:     time.Since(start),
	}, nil
}

func checkPaths(inputPath, outputPath string) error {
	if outputPath == StdioPath {
		return nil
	}
	if err := files.RejectSymlinkPath(outputPath); err != nil {
		return err
	}
	if inputPath == StdioPath {
		return nil
	}

	absIn, err := filepath.Abs(inputPath)
	if err != nil {
		return fmt.Errorf("failed to resolve input path: %w", err)
	}
	absOut, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}
	if absIn == absOut {
		return fmt.Errorf("input and output files are the same (%s)", absIn)
	}
	inInfo, err := os.Stat(absIn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat input path: %w", err)
	}
	outInfo, err := os.Stat(absOut)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat output path: %w", err)
	}
	if os.SameFile(inInfo, outInfo) {
		return fmt.Errorf("input and output files are the same (%s)", absIn)
	}
	return nil
}

func confirmOutput(cfg Config) (bool, error) {
	if _, err := os.Lstat(cfg.OutputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("failed to stat output path: %w", err)
	}
	if cfg.Overwrite {
		logger.Info("Overwriting output file", "path", cfg.OutputPath)
		return true, nil
	}
	if cfg.OnConfirmOverwrite == nil {
		return false, nil
	}
	return cfg.OnConfirmOverwrite(cfg.OutputPath)
}

func readInput(cfg Config) ([]byte, error) {
	if cfg.InputPath == StdioPath {
		data, err := io.ReadAll(cfg.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}

func writeOutput(cfg Config, data []byte) (string, error) {
	if cfg.OutputPath == StdioPath {
		if _, err := cfg.Stdout.Write(data); err != nil {
			return "", fmt.Errorf("failed to write stdout: %w", err)
		}
		return "stdout", nil
	}
	if cfg.NoClobber {
		written, err := files.AtomicWriteNew(cfg.OutputPath, data, 0o644)
		if err != nil {
			return "", fmt.Errorf("failed to write output file: %w", err)
		}
		return written, nil
	}
	if err := files.AtomicWrite(cfg.OutputPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return cfg.OutputPath, nil
}
