package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type upperTranslator struct {
	calls int
	err   error
}

func (u *upperTranslator) Translate(_ context.Context, text string) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return strings.ToUpper(text), nil
}

func writeInput(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "input.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunTranslation_InvalidPaths(t *testing.T) {
	tmpDir := t.TempDir()
	inPath := writeInput(t, tmpDir, "# Hello\n")

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "Same input and output",
			cfg:     Config{InputPath: inPath, OutputPath: inPath},
			wantErr: "input and output files are the same",
		},
		{
			name:    "Empty output",
			cfg:     Config{InputPath: inPath},
			wantErr: "output path is empty",
		},
		{
			name:    "Overwrite and no-clobber",
			cfg:     Config{InputPath: inPath, OutputPath: filepath.Join(tmpDir, "out.md"), Overwrite: true, NoClobber: true},
			wantErr: "cannot be used together",
		},
		{
			name:    "Stdin without reader",
			cfg:     Config{InputPath: StdioPath, OutputPath: filepath.Join(tmpDir, "out.md")},
			wantErr: "stdin is not available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &upperTranslator{}
			_, err := RunTranslation(context.Background(), tt.cfg, tr)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("RunTranslation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tr.calls != 0 {
				t.Errorf("translator called despite invalid paths")
			}
		})
	}
}

func TestRunTranslation_FileToFile(t *testing.T) {
	tmpDir := t.TempDir()
	inPath := writeInput(t, tmpDir, "# Hello\n")
	outPath := filepath.Join(tmpDir, "out.md")

	res, err := RunTranslation(context.Background(), Config{InputPath: inPath, OutputPath: outPath}, &upperTranslator{})
	if err != nil {
		t.Fatalf("RunTranslation failed: %v", err)
	}
	if res.Status != TranslationStatusSuccess || res.OutputPath != outPath || res.InputBytes != 8 {
		t.Fatalf("unexpected result %+v", res)
	}
	data, _ := os.ReadFile(outPath)
	if string(data) != "# HELLO\n" {
		t.Fatalf("unexpected output %q", data)
	}
}

func TestRunTranslation_Stdio(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{InputPath: StdioPath, OutputPath: StdioPath, Stdin: strings.NewReader("abc"), Stdout: &out}
	res, err := RunTranslation(context.Background(), cfg, &upperTranslator{})
	if err != nil || out.String() != "ABC" || res.OutputPath != "stdout" {
		t.Fatalf("RunTranslation() = %+v, %v; stdout %q", res, err, out.String())
	}
}

func TestRunTranslation_ExistingOutput(t *testing.T) {
	tmpDir := t.TempDir()
	inPath := writeInput(t, tmpDir, "new")
	outPath := filepath.Join(tmpDir, "out.md")

	reset := func() {
		if err := os.WriteFile(outPath, []byte("old"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	t.Run("declined", func(t *testing.T) {
		reset()
		tr := &upperTranslator{}
		cfg := Config{InputPath: inPath, OutputPath: outPath, OnConfirmOverwrite: func(string) (bool, error) { return false, nil }}
		res, err := RunTranslation(context.Background(), cfg, tr)
		if err != nil || res.Status != TranslationStatusSkipped {
			t.Fatalf("expected skipped run, got %+v, %v", res, err)
		}
		if tr.calls != 0 {
			t.Fatalf("translator must not run when the overwrite is declined")
		}
	})

	t.Run("confirm error", func(t *testing.T) {
		reset()
		boom := errors.New("no tty")
		cfg := Config{InputPath: inPath, OutputPath: outPath, OnConfirmOverwrite: func(string) (bool, error) { return false, boom }}
		if _, err := RunTranslation(context.Background(), cfg, &upperTranslator{}); !errors.Is(err, boom) {
			t.Fatalf("expected confirm error, got %v", err)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		reset()
		cfg := Config{InputPath: inPath, OutputPath: outPath, Overwrite: true}
		if _, err := RunTranslation(context.Background(), cfg, &upperTranslator{}); err != nil {
			t.Fatalf("RunTranslation failed: %v", err)
		}
		if data, _ := os.ReadFile(outPath); string(data) != "NEW" {
			t.Fatalf("expected overwritten output, got %q", data)
		}
	})

	t.Run("no clobber", func(t *testing.T) {
		reset()
		cfg := Config{InputPath: inPath, OutputPath: outPath, NoClobber: true}
		res, err := RunTranslation(context.Background(), cfg, &upperTranslator{})
		if err != nil {
			t.Fatalf("RunTranslation failed: %v", err)
		}
		if res.OutputPath == outPath {
			t.Fatalf("no-clobber must not reuse the existing name")
		}
		if data, _ := os.ReadFile(outPath); string(data) != "old" {
			t.Fatalf("existing output replaced: %q", data)
		}
	})
}

func TestRunTranslation_TranslatorErrorWritesNothing(t *testing.T) {
	tmpDir := t.TempDir()
	inPath := writeInput(t, tmpDir, "text")
	outPath := filepath.Join(tmpDir, "out.md")
	boom := errors.New("endpoint down")

	_, err := RunTranslation(context.Background(), Config{InputPath: inPath, OutputPath: outPath}, &upperTranslator{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected translator error, got %v", err)
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Fatalf("no output should be written on failure")
	}
}
