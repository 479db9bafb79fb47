package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/persona/internal/config"
	"github.com/lazypower/persona/internal/metrics"
	"github.com/lazypower/persona/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(os.Stderr, metrics.New())
	if err != nil {
		return err
	}

	if err := a.eng.StartSession("http"); err != nil {
		a.log.Warn("start session failed", "err", err)
	}
	a.eng.StartDayTimer(a.cfg.Persona.DayInterval)

	srv := server.New(a.eng, VersionString(), server.Options{
		ChatPerSecond: a.cfg.RateLimit.ChatPerSecond,
		ChatBurst:     a.cfg.RateLimit.Burst,
	})
	addr := a.cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if configPath != "" {
		go func() {
			err := config.Watch(watchCtx, configPath, config.DefaultDebounce, a.log.Logger, func(c *config.Config) {
				a.log.SetLevel(c.Log.Level)
				a.log.Info("config reloaded", "log_level", c.Log.Level)
			})
			if err != nil {
				a.log.Warn("config watch stopped", "err", err)
			}
		}()
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "%s is listening on %s\n", a.eng.Name(), addr)
		fmt.Fprintf(os.Stderr, "  llm: %s\n", a.cfg.LLM.Provider)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	shutdownErr := httpServer.Shutdown(ctx)
	if err := a.saveAndClose(); err != nil {
		return err
	}
	return shutdownErr
}
