// Package translator orchestrates a document translation: chunking,
// bounded parallel dispatch, retries under the shared rate limiter, and
// reassembly in the original order.
package translator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/cache"
	"github.com/oukeidos/mdtrans/internal/chunker"
	"github.com/oukeidos/mdtrans/internal/config"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/ratelimit"
	"github.com/oukeidos/mdtrans/internal/retry"
)

// maxConcurrentChunks bounds in-flight chunk tasks per Translate call,
// independently of the limiter's permit count.
const maxConcurrentChunks = 5

const chunkSeparator = "\n\n"

// Translator performs one remote translation call.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Cache stores finished translations between runs.
type Cache interface {
	Get(ctx context.Context, k cache.Key) (string, bool, error)
	Put(ctx context.Context, k cache.Key, translation string) error
}

// Limiter is the shared request gate. *ratelimit.Limiter satisfies it.
type Limiter interface {
	retry.Limiter
	Close()
}

// TranslationState represents the current state of a chunk translation.
type TranslationState int

const (
	StateStarted TranslationState = iota
	StateRetrying
	StateCompleted
	StateCached
	StateSkipped
	StateFailed
)

func (s TranslationState) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateRetrying:
		return "retrying"
	case StateCompleted:
		return "completed"
	case StateCached:
		return "cached"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// TranslationProgress reports a state change of one chunk.
type TranslationProgress struct {
	ChunkIndex  int
	TotalChunks int
	Attempt     int
	State       TranslationState
	Error       error
}

// Option configures a Service.
type Option func(*Service)

// WithCache consults c before every remote call and fills it afterwards.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithProgress registers a progress callback. Calls are serialized.
func WithProgress(fn func(TranslationProgress)) Option {
	return func(s *Service) { s.onProgress = fn }
}

// WithLimiter replaces the limiter built from MaxRequestsPerSecond.
func WithLimiter(l Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// Service translates documents with one backend. It is safe for
// concurrent use; all calls share one limiter.
type Service struct {
	cfg      config.Config
	backend  Translator
	policy   retry.Policy
	limiter  Limiter
	provider string

	cache      Cache
	onProgress func(TranslationProgress)
	progressMu sync.Mutex
}

// NewService validates cfg and prepares the shared limiter. A disabled
// configuration needs no backend.
func NewService(cfg config.Config, backend Translator, opts ...Option) (*Service, error) {
	if cfg.Enabled {
		if backend == nil {
			return nil, fmt.Errorf("translation is enabled but no backend was provided")
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	s := &Service{
		cfg:      cfg,
		backend:  backend,
		policy:   cfg.RetryPolicy(),
		provider: cfg.Provider,
	}
	if named, ok := backend.(interface{ Name() string }); ok {
		s.provider = named.Name()
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(cfg.MaxRequestsPerSecond)
	}
	return s, nil
}

// Enabled reports whether Translate calls the backend at all.
func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Provider names the backend used for cache keys and logs.
func (s *Service) Provider() string { return s.provider }

// Translate returns text translated into the configured target language.
// Code blocks are returned verbatim. Any chunk failure fails the whole call
// and no partial output is returned.
func (s *Service) Translate(ctx context.Context, text string) (string, error) {
	if !s.cfg.Enabled {
		return text, nil
	}

	log := logger.With("run_id", uuid.NewString())
	if len(text) <= s.cfg.MaxTextLength {
		log.Debug("Translating in a single request", "bytes", len(text), "provider", s.provider)
		return s.translateChunk(ctx, log, 0, 1, text)
	}

	chunks := chunker.SplitWithOptions(text, chunker.Options{
		MaxLength:     s.cfg.MaxTextLength,
		MaxParagraphs: s.cfg.MaxParagraphsPerRequest,
	})
	log.Info("Translating document", "bytes", len(text), "chunks", len(chunks), "provider", s.provider)

	results := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChunks)

	for i, c := range chunks {
		if c.CodeBlock {
			results[i] = c.Text
			s.report(TranslationProgress{ChunkIndex: i, TotalChunks: len(chunks), State: StateSkipped})
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("Panic while translating chunk", "chunk", i, "panic", r)
					err = fmt.Errorf("chunk %d: %w", i, apperrors.Generic(fmt.Errorf("panic: %v", r)))
				}
			}()
			out, err := s.translateChunk(gctx, log, i, len(chunks), c.Text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	// The loop may stop early on a canceled parent without any task failing.
	if err := ctx.Err(); err != nil {
		return "", err
	}
	log.Info("Document translated", "chunks", len(chunks))
	return strings.Join(results, chunkSeparator), nil
}

func (s *Service) translateChunk(ctx context.Context, log *slog.Logger, index, total int, text string) (string, error) {
	key := cache.Key{
		Text:       text,
		SourceLang: s.cfg.SourceLang,
		TargetLang: s.cfg.TargetLang,
		Provider:   s.provider,
	}
	if s.cache != nil {
		hit, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Warn("Cache lookup failed", "chunk", index, "error", err)
		} else if ok {
			s.report(TranslationProgress{ChunkIndex: index, TotalChunks: total, State: StateCached})
			return hit, nil
		}
	}

	s.report(TranslationProgress{ChunkIndex: index, TotalChunks: total, Attempt: 1, State: StateStarted})
	op := retry.OperationFunc[string](func(ctx context.Context) (string, error) {
		return s.backend.Translate(ctx, text)
	})
	out, err := retry.Do(ctx, op, s.policy, s.limiter, retry.Options{
		OnRetry: func(a retry.Attempt) {
			s.report(TranslationProgress{
				ChunkIndex:  index,
				TotalChunks: total,
				Attempt:     a.Number + 1,
				State:       StateRetrying,
				Error:       a.Err,
			})
		},
	})
	if err != nil {
		s.report(TranslationProgress{ChunkIndex: index, TotalChunks: total, State: StateFailed, Error: err})
		if !errors.Is(err, context.Canceled) {
			log.Error("Chunk translation failed", "chunk", index, "error", err)
		}
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, out); err != nil {
			log.Warn("Cache store failed", "chunk", index, "error", err)
		}
	}
	s.report(TranslationProgress{ChunkIndex: index, TotalChunks: total, State: StateCompleted})
	return out, nil
}

func (s *Service) report(p TranslationProgress) {
	if s.onProgress == nil {
		return
	}
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.onProgress(p)
}

// Close shuts the shared limiter and releases the backend. In-flight and
// later Translate calls fail with a rate-limit error.
func (s *Service) Close() error {
	s.limiter.Close()
	if closer, ok := s.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
