package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"

    "yfquotes/internal/render"
)

// Settings is the desklet settings snapshot as exposed to the user.
type Settings struct {
    // QuoteSymbols holds one symbol per line.
    QuoteSymbols            string  `json:"quoteSymbols" yaml:"quoteSymbols"`
    DelayMinutes            int     `json:"delayMinutes" yaml:"delayMinutes"`
    ShowLastUpdateTimestamp bool    `json:"showLastUpdateTimestamp" yaml:"showLastUpdateTimestamp"`
    ShowIcon                bool    `json:"showIcon" yaml:"showIcon"`
    ShowStockName           bool    `json:"showStockName" yaml:"showStockName"`
    ShowStockSymbol         bool    `json:"showStockSymbol" yaml:"showStockSymbol"`
    ShowStockPrice          bool    `json:"showStockPrice" yaml:"showStockPrice"`
    ShowCurrencyCode        bool    `json:"showCurrencyCode" yaml:"showCurrencyCode"`
    ShowStockPercentChange  bool    `json:"showStockPercentChange" yaml:"showStockPercentChange"`
    ShowTradeTime           bool    `json:"showTradeTime" yaml:"showTradeTime"`
    Width                   int     `json:"width" yaml:"width"`
    Height                  int     `json:"height" yaml:"height"`
    Transparency            float64 `json:"transparency" yaml:"transparency"`
}

type Source struct {
    Endpoint          string `json:"endpoint" yaml:"endpoint"`
    RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
    UserAgent         string `json:"user_agent" yaml:"user_agent"`
}

type Server struct {
    Port string `json:"port" yaml:"port"`
}

type Log struct {
    Level string `json:"level" yaml:"level"`
}

type Config struct {
    Desklet Settings `json:"desklet" yaml:"desklet"`
    Source  Source   `json:"source" yaml:"source"`
    Server  Server   `json:"server" yaml:"server"`
    Log     Log      `json:"log" yaml:"log"`
}

func Default() Config {
    return Config{
        Desklet: Settings{
            QuoteSymbols:            "AAPL\nMSFT\nGOOGL",
            DelayMinutes:            15,
            ShowLastUpdateTimestamp: true,
            ShowIcon:                true,
            ShowStockName:           true,
            ShowStockSymbol:         true,
            ShowStockPrice:          true,
            ShowCurrencyCode:        false,
            ShowStockPercentChange:  true,
            ShowTradeTime:           true,
            Width:                   450,
            Height:                  250,
            Transparency:            0.5,
        },
        Source: Source{
            Endpoint:          "https://query1.finance.yahoo.com/v7/finance/quote?symbols=",
            RequestTimeoutSec: 10,
        },
        Server: Server{Port: "8080"},
        Log:    Log{Level: "info"},
    }
}

// Load reads the config file at path. If path is empty it looks for
// settings.yaml, settings.yml and settings.json in the working directory; if none
// exists the defaults are used. A .env file is loaded first (without replacing
// variables already set), then environment variables override select fields.
func Load(path string) (Config, error) {
    cfg := Default()
    if err := loadDotEnv(); err != nil {
        return cfg, err
    }
    if path == "" {
        for _, candidate := range []string{"settings.yaml", "settings.yml", "settings.json"} {
            if _, err := os.Stat(candidate); err == nil {
                path = candidate
                break
            }
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := unmarshal(path, b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func unmarshal(path string, b []byte, cfg *Config) error {
    switch strings.ToLower(filepath.Ext(path)) {
    case ".yaml", ".yml":
        return yaml.Unmarshal(b, cfg)
    default:
        return json.Unmarshal(b, cfg)
    }
}

func loadDotEnv() error {
    name := os.Getenv("YFQ_ENV_FILE")
    if name == "" { name = ".env" }
    if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
        return fmt.Errorf("load %s: %w", name, err)
    }
    return nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("YFQ_SYMBOLS"); v != "" { cfg.Desklet.QuoteSymbols = strings.Join(splitCSV(v), "\n") }
    if v := os.Getenv("YFQ_DELAY_MINUTES"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Desklet.DelayMinutes = x }
    }
    if v := os.Getenv("YFQ_SHOW_CURRENCY"); v != "" { applyBool(v, &cfg.Desklet.ShowCurrencyCode) }
    if v := os.Getenv("YFQ_SHOW_LAST_UPDATE"); v != "" { applyBool(v, &cfg.Desklet.ShowLastUpdateTimestamp) }
    if v := os.Getenv("YFQ_WIDTH"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Desklet.Width = x }
    }
    if v := os.Getenv("YFQ_HEIGHT"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Desklet.Height = x }
    }
    if v := os.Getenv("YFQ_TRANSPARENCY"); v != "" {
        var x float64; if _, err := fmt.Sscanf(v, "%g", &x); err == nil { cfg.Desklet.Transparency = x }
    }
    if v := os.Getenv("YFQ_ENDPOINT"); v != "" { cfg.Source.Endpoint = v }
    if v := os.Getenv("YFQ_USER_AGENT"); v != "" { cfg.Source.UserAgent = v }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Source.RequestTimeoutSec = x }
    }
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = v }
}

func applyBool(v string, dst *bool) {
    switch strings.ToLower(v) {
    case "1","true","yes","y": *dst = true
    case "0","false","no","n": *dst = false
    }
}

// Validate rejects settings the update cycle cannot run with.
func (s Settings) Validate() error {
    var errs []error
    if s.DelayMinutes < 1 {
        errs = append(errs, fmt.Errorf("delayMinutes must be at least 1, got %d", s.DelayMinutes))
    }
    if s.Width <= 0 || s.Height <= 0 {
        errs = append(errs, fmt.Errorf("width and height must be positive, got %dx%d", s.Width, s.Height))
    }
    if s.Transparency < 0 || s.Transparency > 1 {
        errs = append(errs, fmt.Errorf("transparency must be within [0,1], got %g", s.Transparency))
    }
    return errors.Join(errs...)
}

// Symbols splits QuoteSymbols into one symbol per line. Blank lines and
// duplicates are passed through untouched.
func (s Settings) Symbols() []string {
    return SplitSymbols(s.QuoteSymbols)
}

// SplitSymbols splits multi-line symbol text on newlines only.
func SplitSymbols(text string) []string {
    return strings.Split(text, "\n")
}

// DisplayOptions is the immutable view the renderer works from.
func (s Settings) DisplayOptions() render.Options {
    return render.Options{
        ShowIcon:       s.ShowIcon,
        ShowName:       s.ShowStockName,
        ShowSymbol:     s.ShowStockSymbol,
        ShowPrice:      s.ShowStockPrice,
        ShowCurrency:   s.ShowCurrencyCode,
        ShowPercent:    s.ShowStockPercentChange,
        ShowTradeTime:  s.ShowTradeTime,
        ShowLastUpdate: s.ShowLastUpdateTimestamp,
        Width:          s.Width,
        Height:         s.Height,
        Transparency:   s.Transparency,
    }
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}
