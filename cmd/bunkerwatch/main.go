package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/raffaelramalhorosa/bunker-status/internal/client"
	"github.com/raffaelramalhorosa/bunker-status/internal/config"
	"github.com/raffaelramalhorosa/bunker-status/internal/poller"
	"github.com/raffaelramalhorosa/bunker-status/internal/render"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (defaults to $BUNKER_CONFIG)")
		once       = flag.Bool("once", false, "fetch once, print and exit")
		format     = flag.String("format", "", "output format: table or json (default: table on a terminal)")
	)
	flag.Parse()

	// logs go to stderr so stdout stays parseable in json mode
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(logger, "config load failed", err)
	}
	if err := config.Validate(cfg); err != nil {
		fatal(logger, "config validation failed", err)
	}
	if *format == "" {
		*format = cfg.Watch.Format
	}

	out, err := render.New(os.Stdout, *format)
	if err != nil {
		fatal(logger, "renderer", err)
	}

	var src poller.Source = client.New(cfg.Watch.URL)
	if cfg.Watch.Source == "feed" {
		src = client.NewFeedSource(cfg.Watch.URL)
	}

	if *once {
		if err := runOnce(src, out); err != nil {
			fatal(logger, "fetch failed", err)
		}
		return
	}

	p, err := poller.New(src,
		poller.WithSchedule(poller.Schedule{Interval: cfg.Watch.Interval, Minute: cfg.Watch.Minute}),
		poller.WithCooldown(cfg.Server.Cooldown),
		poller.WithLogger(logger),
		poller.OnUpdate(func(v poller.View) {
			if err := out.Render(v); err != nil {
				logger.Error("render failed", "error", err)
			}
		}),
	)
	if err != nil {
		fatal(logger, "poller", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	defer p.Close()

	// Enter on stdin requests a manual refresh.
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) == "q" {
				cancel()
				return
			}
			if err := p.Refresh(ctx); err != nil && !errors.Is(err, poller.ErrClosed) {
				logger.Warn("manual refresh", "error", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Info("exiting", "summary", render.Summary(p.View()))
}

func runOnce(src poller.Source, out *render.Renderer) error {
	p, err := poller.New(src)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Refresh(context.Background()); err != nil {
		return err
	}
	return out.Render(p.View())
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "bunkerwatch: %s: %v\n", msg, err)
	os.Exit(1)
}
