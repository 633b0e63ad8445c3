package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/index"
	"github.com/starford/scribe/internal/llm"
	"github.com/starford/scribe/internal/merge"
	"github.com/starford/scribe/internal/pipeline"
	"github.com/starford/scribe/internal/projectservice"
	"github.com/starford/scribe/internal/storage"
	"github.com/starford/scribe/internal/transcribe"
	"github.com/starford/scribe/internal/versions"
)

const drainTimeout = 30 * time.Second

// core is the storage, index and pipeline stack shared by the HTTP server
// and the MCP server.
type core struct {
	logger   *slog.Logger
	files    *storage.FS
	db       *index.DB
	pipeline *pipeline.Pipeline
	svc      *projectservice.Service
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// newCore opens storage and the index, syncs them, and builds the pipeline.
// observer may be nil. The caller owns close.
func newCore(ctx context.Context, app *application, logger *slog.Logger, observer pipeline.Observer) (*core, error) {
	cfg := app.config

	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	stt := app.transcriber
	if stt == nil {
		stt, err = transcribe.New(ctx, transcribe.Options{
			Provider: cfg.Transcriber.Provider,
			Model:    cfg.Transcriber.Model,
			APIKey:   cfg.Transcriber.APIKey,
			BaseURL:  cfg.Transcriber.BaseURL,
			Timeout:  cfg.Transcriber.Timeout,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init transcriber: %w", err)
		}
	}

	completer := app.completer
	if completer == nil {
		completer, err = llm.New(ctx, llm.Options{
			Provider:    cfg.Merger.Provider,
			Model:       cfg.Merger.Model,
			APIKey:      cfg.Merger.APIKey,
			BaseURL:     cfg.Merger.BaseURL,
			Temperature: cfg.Merger.Temperature,
			MaxTokens:   cfg.Merger.MaxTokens,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init merger: %w", err)
		}
	}

	engine := merge.NewEngine(merge.NewPromptMerger(completer), logger, merge.Options{
		Attempts:    cfg.Merger.Attempts,
		Backoff:     cfg.Merger.Backoff,
		Timeout:     cfg.Merger.Timeout,
		Concurrency: cfg.Merger.Concurrency,
		Limiter:     merge.NewLimiter(cfg.Merger.RequestsPerMinute),
	})

	store := docstore.New(files)
	snapshots := versions.New(files, db, logger, versions.Options{MaxPerProject: cfg.Versions.MaxPerProject})

	opts := []pipeline.Option{
		pipeline.WithPollInterval(cfg.Pipeline.PollInterval),
		pipeline.WithTranscribeTimeout(cfg.Transcriber.Timeout),
		pipeline.WithLanguage(cfg.Transcriber.Language),
	}
	if observer != nil {
		opts = append(opts, pipeline.WithObserver(observer))
	}
	pipe := pipeline.New(pipeline.Deps{
		Documents:   store,
		Transcriber: stt,
		Merger:      engine,
		Snapshots:   snapshots,
		Index:       db,
	}, logger, opts...)

	return &core{
		logger:   logger,
		files:    files,
		db:       db,
		pipeline: pipe,
		svc:      projectservice.NewService(store, db, snapshots, pipe),
	}, nil
}

// start launches the pipeline. The returned stop drains it, giving up after
// drainTimeout, and is safe to call once.
func (c *core) start(ctx context.Context) (stop func()) {
	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.pipeline.Start(pctx)

	return func() {
		defer cancel()
		done := make(chan struct{})
		go func() {
			c.pipeline.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(drainTimeout):
			t, m := c.pipeline.Pending()
			c.logger.Warn("pipeline: drain timed out, abandoning queued work",
				slog.Int("transcriptions", t), slog.Int("merges", m))
			cancel()
			<-done
		}
	}
}

func (c *core) close() error {
	return c.db.Close()
}
