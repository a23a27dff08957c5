package main

import (
	"context"
	"fmt"

	"github.com/flyflypeng/xiaohongshu-skill/pkg/cookie"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/logger"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/session"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/storage"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/strategy"
	"github.com/flyflypeng/xiaohongshu-skill/pkg/xhs"
)

// clientFunc is a browser-backed command body; its result is printed as JSON
type clientFunc func(ctx context.Context, client *xhs.Client) (interface{}, error)

// withClient starts a browser session, runs fn and always closes the session,
// which persists cookies
func withClient(ctx context.Context, fn clientFunc) error {
	cfg := appConfig
	log := logger.GetLogger()

	store, err := cookie.NewStore(cfg.Cookies)
	if err != nil {
		return fmt.Errorf("failed to open cookie store: %w", err)
	}
	artifacts, err := storage.NewManager(cfg.Output.ArtifactDirectory)
	if err != nil {
		return fmt.Errorf("failed to prepare artifact directory: %w", err)
	}

	sess := session.New(cfg, store)
	defer func() {
		if err := sess.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser session")
		}
	}()

	if err := sess.Start(ctx); err != nil {
		return err
	}

	result, err := fn(ctx, xhs.New(sess, artifacts))
	if err != nil {
		return err
	}

	stats := sess.Stats()
	log.DebugWithFields("Session finished", map[string]interface{}{
		"navigations": stats.NavigateCount,
	})
	return emit(result)
}

// openLedger opens the strategy document named by the configuration
func openLedger() (*strategy.Ledger, error) {
	return strategy.Open(appConfig.Strategy.Path)
}
