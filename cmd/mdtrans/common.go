package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/oukeidos/mdtrans/internal/auth"
	"github.com/oukeidos/mdtrans/internal/config"
	"github.com/oukeidos/mdtrans/internal/endpoint"
	"github.com/oukeidos/mdtrans/internal/gemini"
	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/prompt"
	"github.com/oukeidos/mdtrans/internal/translator"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	saveKey      = auth.SaveKey
	deleteKey    = auth.DeleteKey
	promptForKey = auth.PromptForAPIKey

	newBackend       = buildBackend
	confirmOverwrite = func(path string, force bool) (bool, error) {
		return prompt.DefaultConfirmer().ConfirmOverwrite(path, force)
	}
)

// resolveKey finds the credential for service: keychain, then environment,
// then an interactive prompt. Optional credentials are never prompted for.
func resolveKey(service string, required bool) (string, string, error) {
	if key, source := getKey(service, false); key != "" {
		return key, source, nil
	}
	if key, ok := getEnvKey(service); ok {
		return key, auth.SourceEnv, nil
	}
	if !required {
		return "", "", nil
	}

	if isTerminal(int(os.Stdin.Fd())) {
		key, err := promptForKey(fmt.Sprintf("%s (press Enter to skip): ", auth.Label(service)))
		if err != nil {
			return "", "", fmt.Errorf("error reading %s: %w", auth.Label(service), err)
		}
		if strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), "Terminal Prompt", nil
		}
	}
	return "", "", fmt.Errorf("%s is required; run 'mdtrans env setup --service %s' or set %s",
		auth.Label(service), service, auth.EnvVar(service))
}

func buildBackend(ctx context.Context, cfg config.Config) (translator.Translator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		key, source, err := resolveKey(auth.ServiceGemini, true)
		if err != nil {
			return nil, err
		}
		logger.Info("Using API key", "service", auth.ServiceGemini, "source", source)
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:     key,
			Model:      cfg.Model,
			SourceLang: cfg.SourceLang,
			TargetLang: cfg.TargetLang,
		})
	case config.ProviderDeepLX:
		token, source, err := resolveKey(auth.ServiceDeepLX, false)
		if err != nil {
			return nil, err
		}
		if token != "" {
			logger.Info("Using access token", "service", auth.ServiceDeepLX, "source", source)
		}
		return endpoint.NewClient(endpoint.Config{
			URL:        cfg.DeepLXAPIURL,
			SourceLang: cfg.SourceLang,
			TargetLang: cfg.TargetLang,
			Token:      token,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// loadConfig resolves the effective configuration: .env file, then the
// configuration file, then MDTRANS_* variables, then normalization.
func loadConfig(global *globalOptions) (config.Config, string, error) {
	if global.envFile != "" {
		if err := config.LoadDotEnv(global.envFile); err != nil {
			return config.Config{}, "", err
		}
	}

	var cfg config.Config
	var path string
	if global.configPath != "" {
		loaded, err := config.Load(global.configPath)
		if err != nil {
			return config.Config{}, "", err
		}
		cfg, path = loaded, global.configPath
	} else {
		dir, err := os.Getwd()
		if err != nil {
			return config.Config{}, "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cfg, path = config.LoadDefault(dir)
	}

	cfg, err := cfg.ApplyEnv()
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, notes := cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Configuration adjusted", "note", note)
	}
	return cfg, path, nil
}

func resolveLanguageCode(input string) (string, error) {
	if language.IsAuto(input) {
		return language.Auto, nil
	}
	if lang, ok := language.GetLanguage(input); ok {
		return lang.Code, nil
	}
	needle := strings.TrimSpace(input)
	if needle == "" {
		return "", fmt.Errorf("language is empty")
	}
	for _, entry := range language.GetSupportedLanguages() {
		if strings.EqualFold(entry.Name, needle) {
			return entry.Code, nil
		}
	}
	return "", fmt.Errorf("unsupported language: %s", input)
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
