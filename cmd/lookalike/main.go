package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DRSN-tech/lookalike/internal/app"
	config "github.com/DRSN-tech/lookalike/internal/cfg"
	"github.com/DRSN-tech/lookalike/internal/delivery/cli"
	"github.com/DRSN-tech/lookalike/internal/indexer"
	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/DRSN-tech/lookalike/pkg/closer"
	"github.com/DRSN-tech/lookalike/pkg/logger"
)

func main() {
	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	cli.SetFactory(newFactory(cfg, log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newFactory собирает use case без серверов и внешних интеграций: только модель и кэш.
func newFactory(cfg *config.Config, log logger.Logger) cli.Factory {
	return func(ctx context.Context, opts cli.Options) (*cli.Session, error) {
		root := cfg.Dataset.Root
		if opts.Root != "" {
			root = opts.Root
		}
		mode := cfg.Pipeline.Mode
		if opts.Mode != "" {
			mode = opts.Mode
		}

		cl := closer.NewCloser(5 * time.Second)
		closeAll := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := cl.Close(closeCtx); err != nil {
				log.Warnf("resource close error: %v", err)
			}
		}

		ex, err := app.NewExtractor(cfg, log, cl)
		if err != nil {
			closeAll()
			return nil, err
		}

		cacheRepo, err := app.NewCacheRepo(ctx, cfg, log, cl)
		if err != nil {
			closeAll()
			return nil, err
		}

		uc := usecase.NewRecommendUC(
			usecase.Options{
				Root:              root,
				Mode:              mode,
				TopN:              cfg.Pipeline.TopN,
				MaxTopN:           cfg.Pipeline.MaxTopN,
				VerifyFingerprint: cfg.Cache.VerifyFingerprint,
			},
			ex,
			indexer.NewIndexer(ex, cfg.Dataset.Workers, log),
			indexer.Fingerprint,
			cacheRepo,
			nil,
			nil,
			nil,
			log,
		)

		return &cli.Session{UC: uc, Root: root, Close: closeAll}, nil
	}
}
