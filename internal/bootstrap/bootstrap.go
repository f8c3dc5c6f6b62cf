package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/msavelyev/listing-categorizer/internal/config"
	"github.com/msavelyev/listing-categorizer/internal/core/ports"
	"github.com/msavelyev/listing-categorizer/internal/core/usecase"
	"github.com/msavelyev/listing-categorizer/internal/infrastructure/categorize/httpapi"
	"github.com/msavelyev/listing-categorizer/internal/infrastructure/queue/nats"
	"github.com/msavelyev/listing-categorizer/internal/infrastructure/repository/postgres"
	"github.com/msavelyev/listing-categorizer/internal/infrastructure/resilience"
	"github.com/msavelyev/listing-categorizer/internal/infrastructure/rowbuild"
	"github.com/msavelyev/listing-categorizer/internal/infrastructure/sheet/excel"
	"github.com/msavelyev/listing-categorizer/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.BatchRepository
	SubmitUC  ports.BatchSubmitter
	ReadUC    ports.BatchReader
	ProcessUC *usecase.ProcessBatchUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewBatchRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	parser := excel.NewParser()
	parser.Sheet = cfg.SheetName
	builder := rowbuild.NewBuilder()
	categorizer := httpapi.NewWithOptions(cfg.CategorizerURL, httpapi.Options{
		Timeout:  time.Duration(cfg.CategorizerTimeoutSeconds) * time.Second,
		Executor: executor,
	})

	submitUC := usecase.NewSubmitBatchUseCase(repo, storage, queue, cfg.MaxTotalRecords)
	readUC := usecase.NewReadBatchUseCase(repo)
	processUC := usecase.NewProcessBatchUseCase(
		repo,
		storage,
		parser,
		builder,
		categorizer,
		time.Duration(cfg.SubmitIntervalMS)*time.Millisecond,
	)

	return &App{
		Config: cfg,

		Queue:     queue,
		Repo:      repo,
		SubmitUC:  submitUC,
		ReadUC:    readUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
