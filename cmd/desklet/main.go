package main

import (
    "context"
    "flag"
    "fmt"
    "io"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/sirupsen/logrus"

    "yfquotes/internal/config"
    "yfquotes/internal/desklet"
    "yfquotes/internal/httpx"
    "yfquotes/internal/provider/yahoo"
    "yfquotes/internal/render"
)

func main() {
    var configPath string
    var clearScreen bool
    flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to settings file (.json or .yaml); watched for changes")
    flag.BoolVar(&clearScreen, "clear", true, "clear the terminal before each render")
    flag.Parse()

    cfg, err := config.Load(configPath)
    if err != nil { logrus.Fatalf("config: %v", err) }

    logger := logrus.New()
    logger.SetOutput(os.Stderr)
    if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil { logger.SetLevel(lvl) }

    httpClient := httpx.New(time.Duration(cfg.Source.RequestTimeoutSec) * time.Second)
    if cfg.Source.UserAgent != "" { httpClient.UserAgent = cfg.Source.UserAgent }
    client, err := yahoo.NewClient(
        yahoo.WithHTTPClient(httpClient),
        yahoo.WithBaseURL(cfg.Source.Endpoint),
        yahoo.WithLogger(logger),
    )
    if err != nil { logger.Fatalf("quote client: %v", err) }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    ctrl, err := desklet.New(client, cfg.Desklet,
        desklet.WithLogger(logger),
        desklet.WithPublisher(func(tree render.Tree) { draw(os.Stdout, tree, clearScreen, logger) }),
    )
    if err != nil { logger.Fatalf("desklet: %v", err) }
    defer ctrl.Close()

    if configPath != "" {
        go func() {
            err := config.Watch(ctx, configPath, logger, func(next config.Config) {
                if err := ctrl.Apply(ctx, next.Desklet); err != nil {
                    logger.WithError(err).Warn("applying settings")
                }
            })
            if err != nil { logger.WithError(err).Warn("settings watcher stopped") }
        }()
    }

    // a failed first cycle is logged by the controller and retried on the timer
    _ = ctrl.Start(ctx)
    <-ctx.Done()
}

func draw(w io.Writer, tree render.Tree, clearScreen bool, logger logrus.FieldLogger) {
    if clearScreen { fmt.Fprint(w, "\033[H\033[2J") }
    if err := render.WriteText(w, tree); err != nil {
        logger.WithError(err).Warn("drawing quotes")
    }
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
