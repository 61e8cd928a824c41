package main

import (
	"flag"
	"log"
	"net/http"

	"go.uber.org/zap"

	"blog/internal/app"
	"blog/internal/db"
	"blog/internal/server"
)

func main() {
	configPath := flag.String("config", "blog.yaml", "path to config file (optional)")
	flag.Parse()

	cfg, err := app.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	var logger *zap.Logger
	if cfg.Development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}

	srv, err := server.New(database, cfg, logger)
	if err != nil {
		logger.Fatal("build server", zap.Error(err))
	}

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, srv); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}
