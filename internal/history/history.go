package history

import (
	"context"

	"codeberg.org/mutker/divoomctl/internal/errors"
	"codeberg.org/mutker/divoomctl/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopCollector struct{}

func NewService(cfg Config) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If history is disabled, return a no-op collector
	if !cfg.Enabled {
		logger.Debug().Msg("Push history disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	repo, err := NewRepository(cfg, logger.Default())
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to create push history repository")
		return nil, err
	}

	logger.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Push history service initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, record *PushRecord) error {
	errFactory := errors.New()

	if record == nil {
		return errFactory.New(ErrInvalidRecord)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(record); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}
	return nil
}

// No-op implementation
func (*noopCollector) Record(_ context.Context, _ *PushRecord) error {
	return nil
}

func (*noopCollector) Close() error {
	return nil
}
