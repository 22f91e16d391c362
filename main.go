package main

import (
	"go.uber.org/zap"

	"github.com/cppla/bloghub/config"
	"github.com/cppla/bloghub/routes"
	"github.com/cppla/bloghub/services"
	"github.com/cppla/bloghub/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(cfg)
	rdb := utils.NewRedis(cfg)

	verifier, err := utils.NewIdentityVerifier(cfg)
	if err != nil {
		utils.Logger.Fatal("identity verifier", zap.Error(err))
	}

	views := services.NewViewCounter(db, cfg.ViewCounterWorkers, cfg.ViewCounterQueue)

	r := routes.SetupRouter(routes.Deps{
		Config:       cfg,
		DB:           db,
		Redis:        rdb,
		Verifier:     verifier,
		Views:        views,
		AccessLogger: utils.NewRollingFileLogger(cfg, cfg.GinPath),
	})

	srv := utils.NewServer(":"+cfg.AppPort, r, utils.DefaultReadTimeout, utils.DefaultWriteTimeout)
	srv.OnShutdown(views.Stop)
	if rdb != nil {
		srv.OnShutdown(func() { _ = rdb.Close() })
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
