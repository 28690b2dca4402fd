package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/wordle/apps/round-server/internal/broadcast"
	"github.com/robalobadob/wordle/apps/round-server/internal/config"
	"github.com/robalobadob/wordle/apps/round-server/internal/engine"
	"github.com/robalobadob/wordle/apps/round-server/internal/httpserver"
	"github.com/robalobadob/wordle/apps/round-server/internal/notify"
	"github.com/robalobadob/wordle/apps/round-server/internal/protocol"
	"github.com/robalobadob/wordle/apps/round-server/internal/scheduler"
	"github.com/robalobadob/wordle/apps/round-server/internal/store"
	"github.com/robalobadob/wordle/apps/round-server/internal/translate"
	"github.com/robalobadob/wordle/apps/round-server/internal/words"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("bye")
}

func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	dict, err := words.Load(cfg.WordsFile)
	if err != nil {
		return err
	}
	log.Info().Int("words", dict.Len()).Int("length", dict.WordLength()).Msg("dictionary loaded")

	st, err := store.Open(ctx, cfg.StoreURL, cfg.StoreDriver)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := engine.Options{HashCost: cfg.BcryptCost}
	if cfg.TranslateURL != "" {
		opts.Translator = translate.New(cfg.TranslateURL, cfg.TranslateLangPair, cfg.TranslateTimeout)
	}
	eng := engine.New(dict, st, opts)
	if err := eng.Start(ctx); err != nil {
		return err
	}

	social, err := broadcast.New(cfg.SocialAddr)
	if err != nil {
		return err
	}
	defer social.Close()

	hub := notify.NewHub(cfg.NotifyBuffer)
	game := protocol.NewServer(protocol.NewHandler(eng, hub, social))
	web := httpserver.New(eng, hub, httpserver.Options{
		JWTSecret:    cfg.JWTSecret,
		JWTExpires:   cfg.JWTExpires,
		ClientOrigin: cfg.ClientOrigin,
	})
	rounds := scheduler.New(cfg.RoundDuration, eng.AdvanceRound)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return game.ListenAndServe(gctx, cfg.TCPAddr) })
	g.Go(func() error { return web.ListenAndServe(cfg.HTTPAddr) })
	rounds.Start(gctx)

	// Shutdown order: listeners, scheduler, connections, final snapshot.
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		_ = game.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := web.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		rounds.Stop()
		game.CloseConnections()
		return nil
	})

	err = g.Wait()
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ferr := eng.Flush(flushCtx); ferr != nil {
		log.Error().Err(ferr).Msg("final snapshot")
		err = errors.Join(err, ferr)
	}
	return err
}
