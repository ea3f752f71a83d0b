package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"notemind/internal/ai"
	"notemind/internal/config"
	"notemind/internal/model"
	mysqlClient "notemind/internal/platform/mysql"
	rabbitmqClient "notemind/internal/platform/rabbitmq"
	redisClient "notemind/internal/platform/redis"
	"notemind/internal/repository"
	"notemind/internal/vectorindex"
	"notemind/internal/worker"
)

type App struct {
	Config          *config.Config
	MySQL           *gorm.DB
	Redis           *redis.Client
	MQConn          *amqp.Connection
	AI              *ai.Client
	Vectors         *vectorindex.Client
	ReconcileWorker *worker.ReconcileWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Note{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	aiClient := ai.NewClient(ai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})
	vectorClient := vectorindex.NewClient(vectorindex.Config{
		BaseURL:   cfg.Vector.BaseURL,
		APIKey:    cfg.Vector.APIKey,
		Namespace: cfg.Vector.Namespace,
	})

	noteRepo := repository.NewNoteRepository(mysqlDB)
	reconcileWorker := worker.NewReconcileWorker(mqConn, noteRepo, aiClient, vectorClient, cfg.RabbitMQ.ReconcileQueue)
	if err := reconcileWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start reconcile worker failed: %w", err)
	}

	return &App{
		Config:          cfg,
		MySQL:           mysqlDB,
		Redis:           redisCli,
		MQConn:          mqConn,
		AI:              aiClient,
		Vectors:         vectorClient,
		ReconcileWorker: reconcileWorker,
		StartedAt:       time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ReconcileWorker != nil {
		a.ReconcileWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
