package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/sym"
)

// RunFunc is one full pipeline execution
type RunFunc func(ctx context.Context) error

// Watch calls run each time path is written or created, after debounce of
// quiet time. Runs happen on the calling goroutine, so they never overlap.
// Run errors are logged and watching continues. Returns nil when ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, run RunFunc, log *zap.SugaredLogger) error {
	log = logger.OrNop(log)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create file watcher")
	}
	defer w.Close()

	// Watch the directory: editors and downloaders often replace the file
	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(target))
	}

	log.Infow("Watching source", logger.FieldPath, target, logger.FieldSymbol, sym.Pipeline)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnw("Watcher error", logger.FieldError, err.Error())

		case <-fire:
			fire = nil
			log.Infow("Source changed, running pipeline", logger.FieldPath, target)
			if err := run(ctx); err != nil {
				log.Errorw("Pipeline run failed",
					logger.FieldError, err.Error(),
					logger.FieldErrorKind, errors.Kind(err),
				)
			}
		}
	}
}
