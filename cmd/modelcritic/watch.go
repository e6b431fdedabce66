package main

import (
	"context"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/dshills/modelcritic/internal/logger"
)

// skipDirs are never watched.
var skipDirs = map[string]bool{
	".git": true, "__pycache__": true, "node_modules": true, ".venv": true, "venv": true, "migrations": true,
}

var watchedExts = map[string]bool{".py": true, ".yaml": true, ".yml": true}

func newWatchCmd(load configLoader, stdout, stderr io.Writer) *cobra.Command {
	var flags auditFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the audit whenever model sources or manifests change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts, err := resolveAuditOptions(cfg, flags)
			if err != nil {
				return err
			}
			log := logger.New(cfg, "modelcritic", stderr)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, cfg.Watch.Debounce, stdout, log)
		},
	}
	addAuditFlags(cmd, &flags)
	return cmd
}

func runWatch(ctx context.Context, opts auditOptions, debounce time.Duration, stdout io.Writer, log hclog.Logger) error {
	roots := watchRoots(opts)
	if len(roots) == 0 {
		return codeError(exitUsage, "nothing to watch: add --source or --manifest")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return codeError(exitUnexpected, "starting watcher: %s", err)
	}
	defer w.Close()
	for _, root := range roots {
		if err := addRecursive(w, root); err != nil {
			return codeError(exitUsage, "watching %s: %s", root, err)
		}
	}

	var mu sync.Mutex
	run := func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if _, err := runAudit(ctx, opts, stdout, log); err != nil {
			log.Error("audit failed", "error", err)
		}
	}

	run()
	log.Info("watching for changes", "roots", roots, "debounce", debounce)
	watchLoop(ctx, w, debounce, log, run)
	log.Info("watch stopped")
	return nil
}

// watchLoop calls run once per burst of relevant events, debounce after the
// last one. Runs happen on the timer goroutine. It returns when ctx is done
// or the watcher is closed.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, log hclog.Logger, run func()) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addRecursive(w, ev.Name); err != nil {
						log.Warn("cannot watch new directory", "dir", ev.Name, "error", err)
					}
				}
			}
			if !relevant(ev) {
				continue
			}
			log.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.AfterFunc(debounce, run)
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return watchedExts[strings.ToLower(filepath.Ext(base))]
}

// addRecursive watches dir and every directory below it.
func addRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// watchRoots returns the directories holding the configured sources: every
// python root, and the static prefix of every manifest pattern.
func watchRoots(opts auditOptions) []string {
	seen := map[string]bool{}
	var roots []string
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			roots = append(roots, dir)
		}
	}
	for _, p := range opts.python {
		add(p.Root)
	}
	for _, pattern := range opts.manifests {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
		add(filepath.FromSlash(base))
	}
	return roots
}
