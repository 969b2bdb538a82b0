package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/fleshka4/dex-aggregator/internal/app"
	httptransport "github.com/fleshka4/dex-aggregator/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	a, err := app.New(app.ConfigPath(), app.Options{})
	if err != nil {
		return errors.Wrap(err, "app.New")
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := httptransport.NewServer(a.Session, *a.Config, a.Log.Named("http"))
	if err = srv.ListenAndServe(ctx, a.Config.ListenAddr); err != nil {
		return errors.Wrap(err, "srv.ListenAndServe")
	}
	return nil
}
