package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/document"
	"github.com/dgnsrekt/recite/document/pdf"
	"github.com/dgnsrekt/recite/internal/position"
	"github.com/dgnsrekt/recite/reading"
	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/tts/engines"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// app holds the long-lived collaborators of a reading session.
type app struct {
	engine tts.Engine
	docs   *document.SessionCache
	store  *position.Store
}

func newApp(ctx context.Context, cfg tts.Config) (*app, error) {
	cacheDir, err := gap.NewScope(gap.User, "recite").CacheDir()
	if err != nil {
		return nil, fmt.Errorf("unable to find cache directory: %w", err)
	}

	storePath := viper.GetString("reading.positions")
	if storePath == "" {
		if storePath, err = position.DefaultPath(); err != nil {
			return nil, fmt.Errorf("unable to find data directory: %w", err)
		}
	}
	if storePath, err = homedir.Expand(storePath); err != nil {
		return nil, err
	}
	store, err := position.Open(storePath)
	if err != nil {
		return nil, err
	}

	engine, err := engines.New(ctx, cfg, engines.Options{CacheDir: cacheDir})
	if err != nil {
		return nil, fmt.Errorf("unable to start %s engine: %w", cfg.Engine, err)
	}

	return &app{
		engine: engine,
		docs:   document.NewSessionCache(pdf.New()),
		store:  store,
	}, nil
}

// controller builds a reading controller reporting to the given listeners.
func (a *app) controller(h reading.HighlightListener, p reading.PositionListener, e reading.ErrorListener) *reading.Controller {
	return reading.NewController(reading.Options{
		Engine:      a.engine,
		Documents:   a.docs,
		Store:       a.store,
		Step:        step,
		AutoAdvance: a.autoAdvance(),
		Watch:       viper.GetBool("reading.watch"),
		DownloadDir: downloadDir(),
		Highlight:   h,
		Position:    p,
		Errors:      e,
	})
}

func (a *app) autoAdvance() bool {
	return viper.GetBool("reading.auto_advance")
}

// forget drops the saved position of the document at locator.
func (a *app) forget(ctx context.Context, locator string) error {
	path, err := resolve(ctx, locator)
	if err != nil {
		return err
	}
	log.Debug("forgetting position", "path", path)
	return a.store.Clear(path)
}

func (a *app) Close() error {
	a.docs.Shutdown()
	err := a.engine.Close()
	if errors.Is(err, tts.ErrEngineClosed) {
		return nil
	}
	return err
}
