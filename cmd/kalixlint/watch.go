package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/chasegan/kalixlint/pkg/async"
	"github.com/chasegan/kalixlint/pkg/linter"
	"github.com/chasegan/kalixlint/pkg/observability"
	"github.com/chasegan/kalixlint/pkg/validation"
)

// watchModels validates model files in dir as they change. Edits are fed
// through the debounced pipeline, so a burst of saves collapses into one
// validation of the final content.
func watchModels(ctx context.Context, dir string, orch *validation.Orchestrator, logger *observability.Logger, appLog *logrus.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, dir); err != nil {
		return err
	}
	orch.Linter().SetBaseDir(dir)
	validateExisting(ctx, dir, orch, logger, appLog)

	appLog.Infof("watching %s for model changes", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
				if err := watcher.Add(event.Name); err != nil {
					appLog.WithError(err).Warnf("cannot watch %s", event.Name)
				}
				continue
			}
			if filepath.Ext(event.Name) != ".ini" {
				continue
			}
			content, err := os.ReadFile(event.Name)
			if err != nil {
				appLog.WithError(err).Warnf("cannot read %s", event.Name)
				continue
			}
			if _, err := orch.PerformValidationWithDebounce(string(content), &watchReporter{path: event.Name, log: appLog}); err != nil {
				appLog.WithError(err).Warnf("cannot schedule validation of %s", event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			appLog.WithError(err).Warn("watcher error")
		}
	}
}

// validateExisting validates the model files already present when watching
// starts. Each file runs synchronously through the linter in its own
// background task; the debounced pipeline would collapse the scan into a
// single run of whichever file was submitted last.
func validateExisting(ctx context.Context, dir string, orch *validation.Orchestrator, logger *observability.Logger, appLog *logrus.Logger) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".ini" {
			return nil
		}
		async.SafeGo(ctx, logger, time.Minute, "initial validation of "+path, func(context.Context) error {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			reportResult(path, orch.Linter().Validate(string(content)), appLog)
			return nil
		})
		return nil
	})
}

// reportResult prints a file's diagnostics and logs a validation summary.
func reportResult(path string, result *linter.Result, log *logrus.Logger) {
	for _, d := range result.Diagnostics {
		fmt.Printf("%s:%d: %s: %s [%s]\n", path, d.Line, d.Severity, d.Message, d.Rule)
	}
	log.WithFields(logrus.Fields{
		"file":     path,
		"errors":   len(result.Errors()),
		"warnings": len(result.Warnings()),
	}).Info("validated")
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// watchReporter prints diagnostics for a watched file as validations
// complete. Cancelled runs are silent; a newer save is already queued.
type watchReporter struct {
	path string
	log  *logrus.Logger
}

func (r *watchReporter) OnValidationCompleted(requestID string, result *linter.Result) {
	reportResult(r.path, result, r.log)
}

func (r *watchReporter) OnValidationCancelled(requestID string) {
	r.log.WithField("file", r.path).Debug("validation superseded")
}

func (r *watchReporter) OnValidationError(requestID string, err error) {
	r.log.WithError(err).WithField("file", r.path).Error("validation failed")
}
