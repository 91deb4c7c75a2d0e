package main

import (
	"fmt"
	"os"

	"github.com/park285/fengrid/internal/config"
	"github.com/park285/fengrid/internal/msgcat"
	"github.com/park285/fengrid/internal/obslog"
	"github.com/park285/fengrid/internal/service/boards"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	msgs   *msgcat.Catalog
}

// loadApp reads configuration and sets up logging and messages. tweak runs
// after config is loaded and before the logger is built.
func loadApp(cmd *cobra.Command, tweak func(*config.AppConfig)) (*app, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.AppConfig
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if tweak != nil {
		tweak(cfg)
	}

	logger, err := obslog.Init(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	msgs, err := msgcat.New(cfg.Locale, cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}
	return &app{cfg: cfg, logger: logger, msgs: msgs}, nil
}

func (a *app) newService() *boards.Service {
	bc := boards.Config{Strict: a.cfg.Strict}
	if a.cfg.GlyphDir != "" {
		bc.GlyphFS = os.DirFS(a.cfg.GlyphDir)
	}
	return boards.NewService(bc, a.msgs, a.logger)
}

func (a *app) close() {
	_ = a.logger.Sync()
}
