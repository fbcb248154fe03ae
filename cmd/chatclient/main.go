package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"chat-client-app/internal/chat"
	"chat-client-app/internal/config"
	"chat-client-app/internal/logger"
	"chat-client-app/internal/storage"
	"chat-client-app/internal/transport"
)

func main() {
	configPath := flag.String("config", "chatclient.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init("")
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level)

	if cfg.Server.URL == "" || cfg.Server.Username == "" {
		logger.Error("server url and username are required")
		os.Exit(1)
	}

	var archive *storage.Archive
	if cfg.Storage.ArchivePath != "" {
		archive, err = storage.Open(cfg.Storage.ArchivePath)
		if err != nil {
			logger.Error("open archive", "path", cfg.Storage.ArchivePath, "error", err)
			os.Exit(1)
		}
		defer archive.Close()
	}

	client, err := transport.NewClient(cfg.Server.URL)
	if err != nil {
		logger.Error("create transport", "error", err)
		os.Exit(1)
	}

	manager := chat.NewManager(cfg.Server.Username, client, chat.Options{
		PageSize: cfg.Chat.PageSize,
		Archive:  archive,
	})
	defer manager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Start(ctx); err != nil {
		logger.Error("start chat manager", "error", err)
		os.Exit(1)
	}
	logger.Info("connected", "server", cfg.Server.URL, "user", cfg.Server.Username)

	<-ctx.Done()
	logger.Info("shutting down")
}
