package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/config"
	"github.com/oukeidos/mdtrans/internal/translator"
)

type upperBackend struct {
	calls atomic.Int32
	err   error
}

func (b *upperBackend) Translate(_ context.Context, text string) (string, error) {
	b.calls.Add(1)
	if b.err != nil {
		return "", b.err
	}
	return strings.ToUpper(text), nil
}

func withBackend(t *testing.T, b translator.Translator) *config.Config {
	t.Helper()
	var seen config.Config
	prev := newBackend
	newBackend = func(_ context.Context, cfg config.Config) (translator.Translator, error) {
		seen = cfg
		return b, nil
	}
	t.Cleanup(func() { newBackend = prev })
	return &seen
}

func writeTestConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const enabledConfig = `
[translation]
enabled = true
target_lang = "de"
max_requests_per_second = 50.0
`

func TestTranslate_FileToFile(t *testing.T) {
	dir := t.TempDir()
	b := &upperBackend{}
	seen := withBackend(t, b)
	cfgPath := writeTestConfig(t, dir, enabledConfig)

	in := filepath.Join(dir, "README.md")
	out := filepath.Join(dir, "README.de.md")
	if err := os.WriteFile(in, []byte("# Hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := executeCommand(t, "translate", "--config", cfgPath, "--source", "English", in, out); err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "# HELLO" {
		t.Fatalf("unexpected output %q, %v", data, err)
	}
	if seen.SourceLang != "en" || seen.TargetLang != "de" {
		t.Fatalf("flags not applied: %+v", *seen)
	}
}

func TestTranslate_RootShorthandAndStdout(t *testing.T) {
	dir := t.TempDir()
	withBackend(t, &upperBackend{})
	cfgPath := writeTestConfig(t, dir, enabledConfig)
	in := filepath.Join(dir, "doc.md")
	_ = os.WriteFile(in, []byte("hello"), 0o644)

	out, err := executeCommand(t, "--config", cfgPath, in)
	if err != nil {
		t.Fatalf("root translate failed: %v", err)
	}
	if out != "HELLO" {
		t.Fatalf("expected translation on stdout, got %q", out)
	}
}

func TestTranslate_StdinToStdout(t *testing.T) {
	dir := t.TempDir()
	withBackend(t, &upperBackend{})
	cfgPath := writeTestConfig(t, dir, enabledConfig)

	out, err := executeCommandWithInput(t, strings.NewReader("from stdin"), "translate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if out != "FROM STDIN" {
		t.Fatalf("unexpected stdout %q", out)
	}
}

func TestTranslate_DisabledCopiesInput(t *testing.T) {
	dir := t.TempDir()
	b := &upperBackend{}
	withBackend(t, b)
	cfgPath := writeTestConfig(t, dir, "[translation]\nenabled = false\n")

	out, err := executeCommandWithInput(t, strings.NewReader("keep me"), "translate", "--config", cfgPath)
	if err != nil || out != "keep me" {
		t.Fatalf("disabled translate = %q, %v", out, err)
	}
	if b.calls.Load() != 0 {
		t.Fatalf("backend called while disabled")
	}

	out, err = executeCommandWithInput(t, strings.NewReader("now on"), "translate", "--config", cfgPath, "--enabled")
	if err != nil || out != "NOW ON" {
		t.Fatalf("--enabled translate = %q, %v", out, err)
	}
}

func TestTranslate_NoClobber(t *testing.T) {
	dir := t.TempDir()
	withBackend(t, &upperBackend{})
	cfgPath := writeTestConfig(t, dir, enabledConfig)
	in := filepath.Join(dir, "a.md")
	out := filepath.Join(dir, "b.md")
	_ = os.WriteFile(in, []byte("new"), 0o644)
	_ = os.WriteFile(out, []byte("old"), 0o644)

	if _, err := executeCommand(t, "translate", "--config", cfgPath, "--no-clobber", in, out); err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if data, _ := os.ReadFile(out); string(data) != "old" {
		t.Fatalf("existing output replaced: %q", data)
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "b_1.md")); string(data) != "NEW" {
		t.Fatalf("numbered output missing: %q", data)
	}
}

func TestTranslate_OverwriteDeclined(t *testing.T) {
	dir := t.TempDir()
	withBackend(t, &upperBackend{})
	cfgPath := writeTestConfig(t, dir, enabledConfig)
	in := filepath.Join(dir, "a.md")
	out := filepath.Join(dir, "b.md")
	_ = os.WriteFile(in, []byte("new"), 0o644)
	_ = os.WriteFile(out, []byte("old"), 0o644)

	prev := confirmOverwrite
	var asked bool
	confirmOverwrite = func(path string, force bool) (bool, error) {
		asked = true
		return force, nil
	}
	defer func() { confirmOverwrite = prev }()

	if _, err := executeCommand(t, "translate", "--config", cfgPath, in, out); err != nil {
		t.Fatalf("declined overwrite should skip quietly, got %v", err)
	}
	if data, _ := os.ReadFile(out); !asked || string(data) != "old" {
		t.Fatalf("declined overwrite changed file (asked=%v): %q", asked, data)
	}

	if _, err := executeCommand(t, "translate", "--config", cfgPath, "-y", in, out); err != nil {
		t.Fatalf("forced translate failed: %v", err)
	}
	if data, _ := os.ReadFile(out); string(data) != "NEW" {
		t.Fatalf("forced overwrite not applied: %q", data)
	}
}

func TestTranslate_FailurePrintsPublicMessage(t *testing.T) {
	dir := t.TempDir()
	withBackend(t, &upperBackend{err: apperrors.API(503, "Translation endpoint returned an error status", errors.New("secret detail"))})
	cfgPath := writeTestConfig(t, dir, enabledConfig+"\n[translation.retry]\nmax_retries = 0\n")

	_, err := executeCommandWithInput(t, strings.NewReader("hello"), "translate", "--config", cfgPath)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if strings.Contains(err.Error(), "secret detail") {
		t.Fatalf("internal cause leaked to user: %v", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status code in message, got %v", err)
	}
}

func TestTranslate_FlagValidation(t *testing.T) {
	dir := t.TempDir()
	withBackend(t, &upperBackend{})
	cfgPath := writeTestConfig(t, dir, enabledConfig)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"BadTarget", []string{"--target", "klingon"}, "--target"},
		{"AutoTarget", []string{"--target", "auto"}, "target language"},
		{"BadProvider", []string{"--provider", "bing"}, "unknown provider"},
		{"YesAndNoClobber", []string{"-y", "--no-clobber"}, "cannot be used together"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"translate", "--config", cfgPath}, tt.args...)
			_, err := executeCommandWithInput(t, strings.NewReader("x"), args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
