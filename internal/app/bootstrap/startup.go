// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratafiles/internal/app/store/files"
	"github.com/dalemusser/stratafiles/internal/app/store/jobs"
	"github.com/dalemusser/stratafiles/internal/app/system/jobrunner"
	"github.com/dalemusser/stratafiles/internal/app/system/tasks"
	"github.com/dalemusser/stratafiles/internal/app/system/thumbnails"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// Returning a non-nil error will abort startup and prevent the server from
// starting.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	startJobRunner(appCfg, deps, logger)
	startTaskRunner(deps, logger)
	return nil
}

// jobRunner and taskRunner are package-level so Shutdown can stop them.
var (
	jobRunner  *jobrunner.Runner
	taskRunner *tasks.Runner
)

// startJobRunner starts the queue workers that render thumbnail variants.
func startJobRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	jobStore := jobs.New(deps.MongoDatabase)
	fileStore := files.New(deps.MongoDatabase)
	generator := thumbnails.NewGenerator(fileStore, deps.FileStorage, logger)

	cfg := jobrunner.DefaultConfig()
	if appCfg.ThumbnailWorkers > 0 {
		cfg.WorkerCount = appCfg.ThumbnailWorkers
	}
	if appCfg.JobPollInterval > 0 {
		cfg.PollInterval = appCfg.JobPollInterval
	}

	jobRunner = jobrunner.New(jobStore, logger, cfg)
	jobRunner.Register(thumbnails.JobType, generator.Handler())
	jobRunner.AddQueue(thumbnails.QueueName)

	if err := jobRunner.Start(); err != nil {
		logger.Error("failed to start job runner", zap.Error(err))
	}
}

// startTaskRunner starts recurring maintenance jobs.
func startTaskRunner(deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger)
	taskRunner.Register(tasks.TokenCleanupJob(deps.MongoDatabase, logger))
	taskRunner.Start()
}
