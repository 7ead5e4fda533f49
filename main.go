package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/cppla/toolshed/assets"
	"github.com/cppla/toolshed/config"
	"github.com/cppla/toolshed/models"
	"github.com/cppla/toolshed/routes"
	"github.com/cppla/toolshed/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(cfg, models.All()...)

	if err := os.MkdirAll(cfg.PublicDir, 0o755); err != nil {
		utils.Sugar.Fatalf("create public dir %s: %v", cfg.PublicDir, err)
	}

	r := routes.SetupRouter(routes.Deps{
		Config: cfg,
		DB:     db,
		Assets: assets.NewOsFs(cfg.PublicDir),
		Redis:  utils.NewRedis(cfg),
		Mailer: utils.NewMailer(cfg, utils.Logger),
		Logger: utils.Logger,
	})

	utils.Logger.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("public_dir", cfg.PublicDir),
		zap.String("base_url", cfg.AppBaseURL),
	)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
