package main

import (
	"github.com/cppla/storyvault/config"
	"github.com/cppla/storyvault/models"
	"github.com/cppla/storyvault/repositories"
	"github.com/cppla/storyvault/routes"
	"github.com/cppla/storyvault/services"
	"github.com/cppla/storyvault/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(&models.Author{}, &models.Post{})
	store := repositories.NewStore(db)

	notifier := utils.NewMailNotifier(utils.MailConfigFrom(cfg))
	posts := services.NewPostService(store, services.NewTokenIssuer(), notifier, services.SystemClock{}, utils.Logger.Named("posts"))

	r := routes.SetupRouter(routes.Dependencies{Config: cfg, Posts: posts})

	utils.Sugar.Infof("Starting server on port %s (graceful), database driver %s", cfg.AppPort, cfg.DBDriver)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
