package cmd

import (
	"github.com/fsnotify/fsnotify"

	"svccore/pkg/logging"
)

// watchManifest watches path for writes and reapplies it into s on every
// change, until stop is closed.
func watchManifest(s *session, path string, vars map[string]any, stop <-chan struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.reapplyManifest(path, nil); err != nil {
				logging.Error("cli", err, "failed to reapply %s", path)
			} else {
				logging.Info("cli", "reapplied %s", path)
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.Error("cli", werr, "watcher error")
		}
	}
}
