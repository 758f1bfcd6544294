package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "io"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "sync"
    "syscall"
    "time"

    "github.com/sirupsen/logrus"

    "yfquotes/internal/config"
    "yfquotes/internal/desklet"
    "yfquotes/internal/httpx"
    "yfquotes/internal/provider"
    "yfquotes/internal/provider/yahoo"
    "yfquotes/internal/render"
)

func main() {
    cfgPath := os.Getenv("CONFIG_FILE")
    cfg, err := config.Load(cfgPath)
    if err != nil { logrus.Fatalf("config: %v", err) }
    logger := newLogger(cfg.Log.Level)

    src, err := newSource(cfg, logger)
    if err != nil { logger.Fatalf("quote client: %v", err) }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    ctrl, err := desklet.New(src, cfg.Desklet,
        desklet.WithLogger(logger),
        desklet.WithErrorHandler(func(err error) { logger.WithError(err).Warn("update cycle failed") }),
    )
    if err != nil { logger.Fatalf("desklet: %v", err) }
    defer ctrl.Close()
    go func() { _ = ctrl.Start(ctx) }()

    if cfgPath != "" {
        go func() {
            err := config.Watch(ctx, cfgPath, logger, func(next config.Config) {
                if err := ctrl.Apply(ctx, next.Desklet); err != nil {
                    logger.WithError(err).Warn("applying settings")
                }
            })
            if err != nil { logger.WithError(err).Warn("settings watcher stopped") }
        }()
    }

    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           newHandler(src, ctrl),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      20 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        logger.Infof("server listening on :%s", cfg.Server.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            logger.Fatalf("server: %v", err)
        }
    }()

    // graceful shutdown
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
}

func newLogger(level string) *logrus.Logger {
    logger := logrus.New()
    logger.SetFormatter(&logrus.JSONFormatter{})
    if lvl, err := logrus.ParseLevel(level); err == nil {
        logger.SetLevel(lvl)
    }
    return logger
}

func newSource(cfg config.Config, logger logrus.FieldLogger) (*yahoo.Client, error) {
    httpClient := httpx.New(time.Duration(cfg.Source.RequestTimeoutSec) * time.Second)
    if cfg.Source.UserAgent != "" { httpClient.UserAgent = cfg.Source.UserAgent }
    return yahoo.NewClient(
        yahoo.WithHTTPClient(httpClient),
        yahoo.WithBaseURL(cfg.Source.Endpoint),
        yahoo.WithLogger(logger),
    )
}

// treeSource is the part of the controller the HTTP layer reads from.
type treeSource interface {
    Tree() (render.Tree, bool)
}

func newHandler(src provider.Source, trees treeSource) http.Handler {
    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.HandleFunc("/api/quotes", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet {
            http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
            return
        }
        handleGetQuotes(w, r, src)
    })
    mux.HandleFunc("/api/render", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet {
            http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
            return
        }
        handleRender(w, trees)
    })
    return withJSONHeaders(withGzip(recoverPanic(mux)))
}

func handleGetQuotes(w http.ResponseWriter, r *http.Request, src provider.Source) {
    q := r.URL.Query()
    if !q.Has("symbols") {
        http.Error(w, "missing symbols query param", http.StatusBadRequest)
        return
    }
    // symbols go upstream as given, blanks and duplicates included
    symbols := strings.Split(q.Get("symbols"), ",")
    if len(symbols) > 1000 {
        http.Error(w, "too many symbols (max 1000)", http.StatusBadRequest)
        return
    }
    writeQuotes(w, r.Context(), src, symbols)
}

func writeQuotes(w http.ResponseWriter, rctx context.Context, src provider.Source, symbols []string) {
    ctx, cancel := context.WithTimeout(rctx, 15*time.Second)
    defer cancel()
    res, err := src.Fetch(ctx, symbols)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadGateway)
        return
    }
    writeJSON(w, res)
}

func handleRender(w http.ResponseWriter, trees treeSource) {
    tree, ok := trees.Tree()
    if !ok {
        http.Error(w, "no quotes rendered yet", http.StatusServiceUnavailable)
        return
    }
    writeJSON(w, tree)
}

func writeJSON(w http.ResponseWriter, v any) {
    w.WriteHeader(http.StatusOK)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // Basic CORS for browser usage; adjust as needed.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// recoverPanic turns a handler panic into a 500 and logs it.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                logrus.WithFields(logrus.Fields{"path": r.URL.Path, "panic": rec}).Error("handler panicked")
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
}
