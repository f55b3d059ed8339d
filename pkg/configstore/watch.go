package configstore

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/psaab/fgtconf/pkg/config"
)

// Watch monitors the backing file and replaces the active configuration
// each time it is written, then calls onChange (which may be nil) with the
// new configuration. It runs until ctx is cancelled.
//
// The parent directory is watched so that saves which rename a new file
// over the old one are seen. A file that fails to parse is logged and
// ignored; the previous configuration stays active.
func (s *Store) Watch(ctx context.Context, onChange func(*config.Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(s.filePath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	slog.Info("configstore: watching for changes", "path", s.filePath)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// a rename over the file arrives as Create
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := config.ParseFile(s.filePath)
			if err != nil {
				slog.Error("configstore: reload failed, keeping previous config",
					"path", s.filePath, "err", err)
				continue
			}
			if cfg.Equal(s.Active()) {
				continue
			}

			s.Replace(cfg, "reloaded from "+s.filePath)
			slog.Info("configstore: reloaded", "path", s.filePath)
			if onChange != nil {
				onChange(cfg)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("configstore: watcher error", "err", err)
		}
	}
}
