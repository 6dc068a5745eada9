package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/mdtrans/internal/cache"
)

type cacheOptions struct {
	path      string
	olderThan time.Duration
}

func newCacheCmd(global *globalOptions) *cobra.Command {
	opts := cacheOptions{}
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the translation cache",
	}
	cmd.SetUsageTemplate(groupUsageTemplate)
	cmd.PersistentFlags().StringVar(&opts.path, "cache", "", "Cache file (defaults to cache_path from the configuration)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show the number of cached translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(global, &opts, func(ctx context.Context, path string, s *cache.Store) error {
				n, err := s.Len(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d cached translations\n", path, n)
				return nil
			})
		},
	}
	stats.SetUsageTemplate(subcommandUsageTemplate)

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete cached translations older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}
			return withCache(global, &opts, func(ctx context.Context, path string, s *cache.Store) error {
				n, err := s.Purge(ctx, time.Now().Add(-opts.olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d cached translations\n", path, n)
				return nil
			})
		},
	}
	purge.Flags().DurationVar(&opts.olderThan, "older-than", 30*24*time.Hour, "Minimum age of removed entries (0 removes everything)")
	purge.SetUsageTemplate(subcommandUsageTemplate)

	cmd.AddCommand(stats, purge)
	return cmd
}

func withCache(global *globalOptions, opts *cacheOptions, fn func(context.Context, string, *cache.Store) error) error {
	path := opts.path
	if path == "" {
		cfg, _, err := loadConfig(global)
		if err != nil {
			return err
		}
		path = cfg.CachePath
	}
	if path == "" {
		return fmt.Errorf("no cache configured; set cache_path or pass --cache")
	}
	store, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signalContext()
	defer stop()
	return fn(ctx, path, store)
}
