package app

import (
	"fmt"

	"github.com/JuanFRosales/MindsetGo/internal/middleware"
	"github.com/JuanFRosales/MindsetGo/internal/modules/ai"
	"github.com/JuanFRosales/MindsetGo/internal/modules/auth"
	"github.com/JuanFRosales/MindsetGo/internal/modules/chat"
	"github.com/JuanFRosales/MindsetGo/internal/modules/health"
	"github.com/JuanFRosales/MindsetGo/internal/modules/passkey"
	"github.com/JuanFRosales/MindsetGo/internal/modules/qr"
	"github.com/JuanFRosales/MindsetGo/internal/modules/retention"
	"github.com/JuanFRosales/MindsetGo/internal/modules/user"
	pkgredis "github.com/JuanFRosales/MindsetGo/internal/pkg/redis"
	"github.com/JuanFRosales/MindsetGo/internal/pkg/taskqueue"
)

// registerRoutes builds every module and mounts it under /api/v1. The
// retention service is returned so the scheduler can reuse it.
func (a *App) registerRoutes(rc *pkgredis.Client) (*retention.Service, error) {
	authMW := middleware.Auth(a.db, a.cfg.CookieName)
	adminMW := middleware.AdminKey(a.cfg.AdminKey)

	api := a.router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(a.db, a.cfg.CookieName))
	api.Use(middleware.RateLimit(rc.Raw()))

	taskSvc := taskqueue.NewService(rc)
	generator := ai.New(a.cfg.AI, a.cfg.GenTimeout())

	authSvc := auth.NewService(a.db, a.cfg)
	auth.NewHandler(authSvc, a.cfg).RegisterRoutes(api, authMW, adminMW)

	qrSvc := qr.NewService(a.db, authSvc, a.cfg)
	qr.NewHandler(qrSvc).RegisterRoutes(api)

	passkeySvc, err := passkey.NewService(a.db, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}
	passkey.NewHandler(passkeySvc, authSvc, a.cfg).RegisterRoutes(api)

	chatSvc := chat.NewService(a.db, generator, taskSvc, a.cfg, a.logger.Named("ChatPipeline"))
	chat.NewHandler(chatSvc).RegisterRoutes(api, authMW)

	retentionSvc := retention.NewService(a.db, a.cfg, a.logger.Named("Retention"))
	retention.NewHandler(retentionSvc).RegisterRoutes(api, a.cfg.AdminKey)

	userSvc := user.NewService(a.db, authSvc, a.cfg)
	user.NewHandler(userSvc).RegisterRoutes(api, adminMW)

	health.NewHandler(a.db).RegisterRoutes(api)

	return retentionSvc, nil
}
