package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/database"
	"github.com/dmail-project/dmail-backend/internal/routes"
	"github.com/dmail-project/dmail-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, using environment")
	}

	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	configPath := os.Getenv("DMAIL_CONFIG")
	if configPath == "" {
		configPath = "config/config.json"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	if err := database.ConnectRedis(&cfg.Database); err != nil {
		logrus.WithError(err).Fatal("connect redis")
	}
	defer database.DisconnectRedis()

	services.InitWorkers(cfg.ServerWorkerNum)
	defer services.Workers.Shutdown()

	if err := services.InitOSS(&cfg.S3); err != nil {
		logrus.WithError(err).Fatal("init object store")
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	router := routes.New()

	logrus.WithField("addr", addr).Info("server listening")
	if cfg.TLS.Enable {
		err = http.ListenAndServeTLS(addr, cfg.TLS.CertChainFile, cfg.TLS.PrivateKeyFile, router)
	} else {
		err = http.ListenAndServe(addr, router)
	}
	logrus.WithError(err).Fatal("server stopped")
}
