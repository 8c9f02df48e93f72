package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/walteh/vboxnet/cmd/vboxnet/commands"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))

	// Ctrl-C cancels the VBoxManage call in flight
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
		cancel()
	}()

	err := commands.RootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("vboxnet failed")
		os.Exit(1)
	}
}
