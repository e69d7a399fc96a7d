package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"todo_api/internal/config"
	"todo_api/internal/database"
	"todo_api/internal/logging"
	"todo_api/internal/server"
	"todo_api/internal/stats"
	"todo_api/internal/todo"
)

type app struct {
	cfg     config.Config
	logger  *log.Logger
	db      *sql.DB
	store   *todo.Store
	limiter *todo.Limiter
	service *todo.Service
	syncer  *todo.Syncer
	closers []io.Closer
}

// newApp 主流程：加载配置、初始化日志、连接数据库并迁移
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(":8080", cfgFile)
	if err != nil {
		return nil, err
	}

	logger, logCloser := logging.New(cfg.Log, "todo-api")

	db, dialect, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if err := database.Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		_ = logCloser.Close()
		return nil, err
	}

	source, err := todo.NewHTTPSource(cfg.Sync.SourceURL, cfg.Sync.Timeout)
	if err != nil {
		_ = db.Close()
		_ = logCloser.Close()
		return nil, err
	}

	store := todo.NewStore(db, dialect)
	limiter := todo.NewLimiter(store, todo.MaxIncompletePerUser)

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		store:   store,
		limiter: limiter,
		service: todo.NewService(store, limiter, logger),
		syncer:  todo.NewSyncer(store, source, cfg.Sync.Timeout, logger),
		closers: []io.Closer{db, logCloser},
	}, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close", "err", err)
		}
	}
}

func (a *app) routes() http.Handler {
	todos := todo.NewHandler(a.service, a.syncer, a.logger)
	summary := stats.NewHandler(stats.NewStore(a.db), a.limiter, a.logger)
	return server.NewRouter(server.Mounts{
		"/todos": todos.Routes(),
		"/stats": summary.Routes(),
	}, a.store, a.logger)
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return server.Run(ctx, a.cfg, a.routes(), a.logger)
}

func runSync(ctx context.Context, out io.Writer) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	count, err := a.syncer.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "synchronized %d todos from %s\n", count, a.cfg.Sync.SourceURL)
	return nil
}

func runMigrate(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("schema is up to date")
	return nil
}
