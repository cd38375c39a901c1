package cmd

import (
	"context"
	"os"

	"github.com/oneconcern/gitshed/pkg/config"
	"github.com/oneconcern/gitshed/pkg/core"
	"github.com/oneconcern/gitshed/pkg/dlogger"
	"github.com/oneconcern/gitshed/pkg/repo"
	"github.com/oneconcern/gitshed/pkg/transfer"
	"go.uber.org/zap"
)

// session holds what a command needs to operate on the current repository
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	shed   *core.GitShed
}

func (s *session) close() {
	s.cancel()
	_ = s.logger.Sync()
}

func newLogger() (*zap.Logger, error) {
	return dlogger.GetLogger(gitshedFlags.root.logLevel)
}

// newSession finds the repository, loads its configuration and connects to the content store
func newSession() (*session, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	r, err := repo.Find(cwd)
	if err != nil {
		return nil, err
	}

	configPath := gitshedFlags.root.config
	if configPath == "" {
		configPath = config.Path(r.Root())
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded configuration", zap.String("path", configPath), zap.String("backend", cfg.Backend()))

	ctx, cancel := contextWithSignals(logger)
	store, err := cfg.NewStore(ctx, r.Root(), logger)
	if err != nil {
		cancel()
		return nil, err
	}

	shed, err := core.New(r.Root(), store,
		core.Logger(logger),
		core.Exclude(cfg.Exclude),
		core.TransferOptions(
			transfer.GetConcurrency(cfg.Concurrency.Get),
			transfer.PutConcurrency(cfg.Concurrency.Put),
			transfer.ChunkSize(cfg.ContentStore.ChunkSize),
			transfer.Progress(progressLogger(logger)),
		),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	return &session{ctx: ctx, cancel: cancel, logger: logger, shed: shed}, nil
}

func progressLogger(logger *zap.Logger) func(transfer.Event) {
	return func(e transfer.Event) {
		logger.Info("transfer progress",
			zap.Stringer("direction", e.Direction),
			zap.Int("done", e.Done),
			zap.Int("failed", e.Failed),
			zap.Int("total", e.Total),
		)
	}
}
