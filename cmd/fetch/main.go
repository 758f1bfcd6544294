package main

import (
    "context"
    "encoding/json"
    "errors"
    "flag"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/sirupsen/logrus"

    "yfquotes/internal/config"
    "yfquotes/internal/httpx"
    "yfquotes/internal/provider"
    "yfquotes/internal/provider/yahoo"
    "yfquotes/internal/render"
)

func main() {
    var symbolsCSV string
    var configPath string
    var timeout int
    var table bool

    flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", ""), "comma-separated symbols (default: symbols from the settings file)")
    flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to settings file (optional, .json or .yaml)")
    flag.IntVar(&timeout, "timeout", 0, "request timeout seconds (default: from settings)")
    flag.BoolVar(&table, "table", false, "print the rendered table instead of JSON")
    flag.Parse()

    cfg, err := config.Load(configPath)
    if err != nil { logrus.Fatalf("config: %v", err) }
    if timeout > 0 { cfg.Source.RequestTimeoutSec = timeout }

    logger := logrus.New()
    logger.SetOutput(os.Stderr)
    if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil { logger.SetLevel(lvl) }

    symbols := cfg.Desklet.Symbols()
    if symbolsCSV != "" { symbols = strings.Split(symbolsCSV, ",") }

    httpClient := httpx.New(time.Duration(cfg.Source.RequestTimeoutSec) * time.Second)
    if cfg.Source.UserAgent != "" { httpClient.UserAgent = cfg.Source.UserAgent }
    client, err := yahoo.NewClient(
        yahoo.WithHTTPClient(httpClient),
        yahoo.WithBaseURL(cfg.Source.Endpoint),
        yahoo.WithLogger(logger),
    )
    if err != nil { logger.Fatalf("quote client: %v", err) }

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Source.RequestTimeoutSec+5)*time.Second)
    defer cancel()

    logger.WithField("url", client.QuoteURL(symbols)).Debug("fetching")
    res, err := client.Fetch(ctx, symbols)
    if err != nil {
        if errors.Is(err, provider.ErrDecode) {
            logger.Fatalf("cannot get stock quotes for symbols %s: %v", strings.Join(symbols, ","), err)
        }
        logger.Fatalf("fetch: %v", err)
    }
    logger.Infof("%s: %d quotes", client.Name(), len(res.Records))

    if table {
        tree := render.Render(res, cfg.Desklet.DisplayOptions(), time.Now())
        if err := render.WriteText(os.Stdout, tree); err != nil { logger.Fatalf("write: %v", err) }
        return
    }
    b, _ := json.MarshalIndent(res, "", "  ")
    fmt.Println(string(b))
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
