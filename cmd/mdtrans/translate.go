package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/cache"
	"github.com/oukeidos/mdtrans/internal/config"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/pipeline"
	"github.com/oukeidos/mdtrans/internal/translator"
)

type translateOptions struct {
	provider   string
	sourceLang string
	targetLang string
	endpoint   string
	model      string
	enabled    bool
	cachePath  string
	noCache    bool
	yes        bool
	noClobber  bool
}

func newTranslateCmd(global *globalOptions) *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate [input.md|-] [output.md|-]",
		Short: "Translate a Markdown document",
		Long:  "Translate a Markdown document. Without an input file (or with \"-\") the\n" +
			"document is read from stdin; without an output file it is written to stdout.\n" +
			"Fenced code blocks are copied unchanged.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, global, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Translation backend (deeplx or gemini)")
	cmd.Flags().StringVar(&opts.sourceLang, "source", "", "Source language code or name (auto to detect)")
	cmd.Flags().StringVar(&opts.targetLang, "target", "", "Target language code or name")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "DeepLX-compatible endpoint URL")
	cmd.Flags().StringVar(&opts.model, "model", "", "Gemini model name")
	cmd.Flags().BoolVar(&opts.enabled, "enabled", true, "Override the configured enabled switch; --enabled=false copies input unchanged")
	cmd.Flags().StringVar(&opts.cachePath, "cache", "", "SQLite translation cache file")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Do not read or write the translation cache")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Overwrite output file without asking")
	cmd.Flags().BoolVar(&opts.noClobber, "no-clobber", false, "Never overwrite; write to a numbered file name instead")
}

// applyTranslateFlags overrides configuration values with explicitly set
// flags only.
func applyTranslateFlags(cmd *cobra.Command, cfg config.Config, opts *translateOptions) (config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = opts.provider
	}
	if flags.Changed("source") {
		code, err := resolveLanguageCode(opts.sourceLang)
		if err != nil {
			return cfg, fmt.Errorf("--source: %w", err)
		}
		cfg.SourceLang = code
	}
	if flags.Changed("target") {
		code, err := resolveLanguageCode(opts.targetLang)
		if err != nil {
			return cfg, fmt.Errorf("--target: %w", err)
		}
		cfg.TargetLang = code
	}
	if flags.Changed("endpoint") {
		cfg.DeepLXAPIURL = opts.endpoint
	}
	if flags.Changed("model") {
		cfg.Model = opts.model
	}
	if flags.Changed("enabled") {
		cfg.Enabled = opts.enabled
	}
	if flags.Changed("cache") {
		cfg.CachePath = opts.cachePath
	}
	if opts.noCache {
		cfg.CachePath = ""
	}
	cfg, _ = cfg.Normalize()
	return cfg, cfg.Validate()
}

func runTranslate(cmd *cobra.Command, args []string, global *globalOptions, opts *translateOptions) error {
	if len(args) > 2 {
		return fmt.Errorf("expected at most 2 arguments (input and output), got %d; did you forget quotes around file paths?", len(args))
	}
	if opts.yes && opts.noClobber {
		return fmt.Errorf("--yes and --no-clobber cannot be used together")
	}
	runCfg := pipeline.Config{
		InputPath:  pipeline.StdioPath,
		OutputPath: pipeline.StdioPath,
		Stdin:      cmd.InOrStdin(),
		Stdout:     cmd.OutOrStdout(),
		Overwrite:  opts.yes,
		NoClobber:  opts.noClobber,
		OnConfirmOverwrite: func(path string) (bool, error) {
			return confirmOverwrite(path, false)
		},
	}
	if len(args) > 0 {
		runCfg.InputPath = args[0]
	}
	if len(args) > 1 {
		runCfg.OutputPath = args[1]
	}

	cfg, cfgPath, err := loadConfig(global)
	if err != nil {
		return err
	}
	cfg, err = applyTranslateFlags(cmd, cfg, opts)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		logger.Debug("Using configuration", "path", cfgPath)
	}

	ctx, stop := signalContext()
	defer stop()

	var backend translator.Translator
	if cfg.Enabled {
		backend, err = newBackend(ctx, cfg)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("Translation is disabled in the configuration; copying input unchanged")
	}

	svcOpts := []translator.Option{translator.WithProgress(logProgress)}
	if cfg.Enabled && cfg.CachePath != "" {
		store, err := cache.Open(cfg.CachePath)
		if err != nil {
			return err
		}
		defer store.Close()
		svcOpts = append(svcOpts, translator.WithCache(store))
	}

	svc, err := translator.NewService(cfg, backend, svcOpts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := pipeline.RunTranslation(ctx, runCfg, svc)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Translation canceled")
			return ctx.Err()
		}
		if _, ok := apperrors.KindOf(err); ok {
			logger.Error("Translation failed", "error", err)
			return errors.New(apperrors.PublicMessage(err))
		}
		return err
	}
	if result.Status == pipeline.TranslationStatusSkipped {
		return nil
	}
	logger.Info("Translation finished",
		"provider", svc.Provider(),
		"source", cfg.SourceLang,
		"target", cfg.TargetLang,
		"path", result.OutputPath,
		"bytes_in", result.InputBytes,
		"bytes_out", result.OutputBytes,
		"elapsed", result.Elapsed.Round(time.Millisecond),
	)
	return nil
}

func logProgress(p translator.TranslationProgress) {
	switch p.State {
	case translator.StateCompleted, translator.StateCached:
		logger.Info("Chunk "+p.State.String(), "index", p.ChunkIndex, "total", p.TotalChunks)
	case translator.StateRetrying:
		logger.Warn("Chunk retry", "index", p.ChunkIndex, "attempt", p.Attempt, "error", p.Error)
	case translator.StateSkipped:
		logger.Debug("Code block kept", "index", p.ChunkIndex)
	}
}
