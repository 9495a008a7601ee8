package app

import (
	"context"

	"github.com/JuanFRosales/MindsetGo/internal/config"
	"github.com/JuanFRosales/MindsetGo/internal/modules/retention"
	pkgcron "github.com/JuanFRosales/MindsetGo/internal/pkg/cron"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, retentionSvc *retention.Service, cfg *config.AppConfig, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "ttl_cleanup",
		Description: "Delete rows past their retention window",
		Interval:    cfg.SweepInterval(),
		RunAtStart:  true,
		Fn: func(ctx context.Context) error {
			if _, err := retentionSvc.Sweep(); err != nil {
				cronLogger.Warn("ttl cleanup failed", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
