package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ggufchat/internal/httpapi"
	"ggufchat/internal/registry"
	"ggufchat/pkg/types"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr, cors, model string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the loopback HTTP bridge for a web front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				o.cfg.Addr = addr
			}
			if cors != "" {
				o.cfg.CORSOrigins = splitCSV(cors)
			}
			a, err := o.app()
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), model)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. 127.0.0.1:8080 (env GGUFCHAT_ADDR)")
	cmd.Flags().StringVar(&cors, "cors-origins", "", "Comma-separated origins allowed by CORS (env GGUFCHAT_CORS_ORIGINS)")
	cmd.Flags().StringVar(&model, "model", "", "Model to load at startup (file name or path)")
	return cmd
}

func (a *app) serve(ctx context.Context, preload string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpapi.SetLogger(a.log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetCORSOrigins(a.cfg.CORSOrigins)
	httpapi.SetChatTimeout(a.cfg.ChatTimeout())
	httpapi.SetDefaultLogLevel(a.cfg.LogLevel)

	if preload != "" {
		if _, err := a.mgr.Load(ctx, a.modelPath(preload), types.LoadParams{}); err != nil {
			a.log.Error().Err(err).Str("model", preload).Msg("preload failed")
		}
	}

	srv := &http.Server{
		Addr: a.cfg.Addr,
		Handler: httpapi.NewMux(httpapi.Deps{
			Models:   a.mgr,
			Chat:     a.chat,
			Sessions: a.store,
			State:    a.st,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", a.cfg.Addr).Str("models_dir", a.mgr.ModelsDir()).Msg("ggufchat listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := os.MkdirAll(a.mgr.ModelsDir(), 0o755); err != nil {
			a.log.Warn().Err(err).Msg("models dir not watched")
			return nil
		}
		err := registry.Watch(gctx, a.mgr.ModelsDir(), func() {
			models, err := a.mgr.ListAvailable()
			if err != nil {
				a.log.Warn().Err(err).Msg("rescan models")
				return
			}
			a.log.Info().Int("count", len(models)).Msg("models directory changed")
		})
		if err != nil {
			// The bridge still works without change notifications.
			a.log.Warn().Err(err).Msg("model watcher stopped")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		a.mgr.Unload()
		if err != nil {
			a.log.Error().Err(err).Msg("graceful shutdown")
		}
		return err
	})
	return g.Wait()
}
