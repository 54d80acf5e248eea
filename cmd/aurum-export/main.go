package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/phenrril/aurum/internal/app"
	"github.com/phenrril/aurum/internal/config"
)

func main() {
	cfg := config.Load()

	out := flag.String("o", "catalogo.xlsx", "archivo de salida")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "email del administrador")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "contraseña del administrador")
	flag.Parse()

	zerolog.SetGlobalLevel(cfg.LogLevel)
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if *email == "" || *password == "" {
		zlog.Fatal().Msg("faltan -email y -password (o ADMIN_EMAIL / ADMIN_PASSWORD)")
	}

	// la sesión de la CLI no se comparte con la tienda
	cfg.StorageDriver = config.StorageMemory
	cfg.RabbitURL = ""

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create app")
	}
	defer application.Close()

	u, err := application.SessionUC.Login(ctx, *email, *password)
	if err != nil {
		zlog.Fatal().Err(err).Msg("login")
	}
	if !u.IsAdmin() {
		zlog.Fatal().Str("email", u.Email).Msg("el usuario no es administrador")
	}

	f, err := os.Create(*out)
	if err != nil {
		zlog.Fatal().Err(err).Msg("crear archivo")
	}
	n, err := application.AdminUC.ExportCatalog(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(*out)
		zlog.Fatal().Err(err).Msg("exportar catálogo")
	}
	zlog.Info().Int("productos", n).Str("archivo", *out).Msg("catálogo exportado")
	_ = application.SessionUC.Logout(ctx)
}
