package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/nlodi/formloom/app"
	"github.com/nlodi/formloom/config"
	"github.com/nlodi/formloom/database"
	"github.com/nlodi/formloom/files"
	"github.com/nlodi/formloom/httpx"
	"github.com/nlodi/formloom/log"
	"github.com/nlodi/formloom/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
		Signer:       files.NewSigner(cfg.UploadSecret, cfg.UploadTTL),
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
