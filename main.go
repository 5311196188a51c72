package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/qrstudio/api"
	"github.com/openclaw/qrstudio/config"
	"github.com/openclaw/qrstudio/qr"
	"github.com/openclaw/qrstudio/session"
)

var version = "v0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "qrstudio",
		Short: "QR code generator with logo overlay and PNG export",
	}

	// --- serve command -------------------------------------------------------
	var configPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the QR studio web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	root.AddCommand(serveCmd)

	// --- generate command ----------------------------------------------------
	var gen generateOptions
	generateCmd := &cobra.Command{
		Use:   "generate [text]",
		Short: "Render a QR code and save it as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), gen, args[0])
		},
	}
	generateCmd.Flags().StringVarP(&gen.configPath, "config", "c", "config.yaml", "Path to config file")
	generateCmd.Flags().IntVar(&gen.size, "size", 0, "Symbol size in pixels (128-512, default from config)")
	generateCmd.Flags().StringVar(&gen.logo, "logo", "", "Logo image to place in the centre")
	generateCmd.Flags().IntVar(&gen.logoPercent, "logo-size", 0, "Logo size as percent of the symbol (20-35, default from config)")
	generateCmd.Flags().StringVarP(&gen.out, "out", "o", "", "Output directory (default from config)")
	root.AddCommand(generateCmd)

	// --- preview command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "preview [text]",
		Short: "Print a QR code in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return qr.WriteTerminal(os.Stdout, args[0])
		},
	})

	// --- status command ------------------------------------------------------
	var statusAddr string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(statusAddr)
		},
	}
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8580", "Server HTTP address")
	root.AddCommand(statusCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qrstudio %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// runServe is the main service entrypoint that wires all components together.
func runServe(configPath string) error {
	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Setup logger
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting qrstudio", "version", version, "port", cfg.Port,
		"generate_delay", cfg.GenerateDelay.Duration, "session_ttl", cfg.SessionTTL.Duration)

	// 3. Session registry
	sessions := session.NewRegistry(cfg.SessionTTL.Duration, session.Options{
		Delay:              cfg.GenerateDelay.Duration,
		DefaultSize:        cfg.DefaultSize,
		DefaultLogoPercent: cfg.DefaultLogoPercent,
		Log:                log,
	})

	// 4. Start HTTP server
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(&api.Server{
			Sessions:  sessions,
			Log:       log,
			Version:   version,
			StartTime: time.Now(),
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("studio is running", "url", fmt.Sprintf("http://localhost:%d/", cfg.Port))

	// 5. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}

type generateOptions struct {
	configPath  string
	size        int
	logo        string
	logoPercent int
	out         string
}

// runGenerate drives one session from input to saved PNG. A rejected logo is
// reported and the symbol is rendered without it.
func runGenerate(ctx context.Context, opts generateOptions, text string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.out != "" {
		cfg.OutputDir = opts.out
	}
	if err := cfg.EnsureOutputDir(); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}

	c := session.NewController(session.Options{
		DefaultSize:        cfg.DefaultSize,
		DefaultLogoPercent: cfg.DefaultLogoPercent,
		Log:                newLogger(cfg.LogLevel),
	})
	if opts.size != 0 {
		c.SetSize(opts.size)
	}
	if opts.logoPercent != 0 {
		c.SetLogoPercent(opts.logoPercent)
	}
	if opts.logo != "" {
		if err := attachLogoFile(ctx, c, opts.logo); err != nil {
			var verr *qr.ValidationError
			if !errors.As(err, &verr) {
				return err
			}
			fmt.Fprintln(os.Stderr, verr.Message)
		}
	}

	if err := c.Generate(ctx, text); err != nil {
		var verr *qr.ValidationError
		if errors.As(err, &verr) {
			return errors.New(verr.Message)
		}
		return fmt.Errorf("generate: %w", err)
	}

	saver := qr.DirSaver{Dir: cfg.OutputDir}
	art, err := c.DownloadTo(ctx, saver)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if art == nil {
		return nil
	}
	fmt.Println(saver.Path(art))
	return nil
}

func attachLogoFile(ctx context.Context, c *session.Controller, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open logo: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat logo: %w", err)
	}
	return c.AttachLogo(ctx, f, info.Size())
}

// runStatus queries the server's HTTP status endpoint.
func runStatus(addr string) error {
	resp, err := http.Get(addr + "/status")
	if err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	fmt.Println(string(body))
	return nil
}
