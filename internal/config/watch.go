package config

import (
    "context"
    "fmt"
    "path/filepath"

    "github.com/fsnotify/fsnotify"
    "github.com/sirupsen/logrus"
)

// Watch reloads the config file whenever it is written or created, and passes
// each successfully loaded snapshot to fn. It blocks until ctx is done.
// The parent directory is watched so editors that replace the file are handled.
func Watch(ctx context.Context, path string, logger logrus.FieldLogger, fn func(Config)) error {
    abs, err := filepath.Abs(path)
    if err != nil { return fmt.Errorf("resolve %s: %w", path, err) }

    w, err := fsnotify.NewWatcher()
    if err != nil { return fmt.Errorf("create watcher: %w", err) }
    defer w.Close()

    if err := w.Add(filepath.Dir(abs)); err != nil {
        return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
    }

    const reloadOps = fsnotify.Write | fsnotify.Create
    for {
        select {
        case <-ctx.Done():
            return nil
        case ev, ok := <-w.Events:
            if !ok { return nil }
            if filepath.Clean(ev.Name) != abs || ev.Op&reloadOps == 0 { continue }
            cfg, err := Load(abs)
            if err != nil {
                logger.WithError(err).WithField("path", abs).Warn("reloading settings")
                continue
            }
            fn(cfg)
        case err, ok := <-w.Errors:
            if !ok { return nil }
            logger.WithError(err).Warn("settings watcher")
        }
    }
}
