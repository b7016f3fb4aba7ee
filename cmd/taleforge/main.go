// Command taleforge runs the multiplayer narrative session server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/taleforge/taleforge/internal/auth"
	"github.com/taleforge/taleforge/internal/config"
	"github.com/taleforge/taleforge/internal/hub"
	"github.com/taleforge/taleforge/internal/llm"
	"github.com/taleforge/taleforge/internal/logger"
	"github.com/taleforge/taleforge/internal/server"
	"github.com/taleforge/taleforge/internal/story"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "taleforge:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.json", "path to config file")
	listenAddr := flag.String("listen", "", "override listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return err
	}

	users, err := auth.Open(cfg.UserDBPath)
	if err != nil {
		return err
	}
	defer users.Close()

	client, err := llm.NewHTTPClient(cfg.APIEndpoint, cfg.APIKey)
	if err != nil {
		return err
	}
	generator := llm.NewGenerator(client)

	// Model selection follows the config file live; other settings need a
	// restart.
	watcher, err := config.NewWatcher(*configPath, cfg)
	if err != nil {
		return err
	}
	defer watcher.Close()

	stories := story.NewStore(cfg.GameStatePath, generator, func() story.Models {
		models := watcher.Models()
		return story.Models{
			StoryContinuation: models.StoryContinuation,
			KeywordExtraction: models.KeywordExtraction,
		}
	})

	h := hub.New()
	srv := server.New(cfg.ListenAddr, cfg.MaxConnections, h, users, stories)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	var status *server.StatusServer
	if cfg.StatusAddr != "" {
		status = server.NewStatusServer(cfg.StatusAddr, h, stories)
		status.Start()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received %s, shutting down", sig)

	if status != nil {
		status.Stop()
	}
	srv.Stop()

	return nil
}
