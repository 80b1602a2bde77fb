package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/spineworks/humgrid/humgrid"
)

// debounceWindow coalesces the burst of write events editors produce
// when saving a file.
const debounceWindow = 200 * time.Millisecond

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Revalidate files in a directory as they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(flagConfig)
			if err != nil {
				return err
			}
			dir := args[0]
			info, err := os.Stat(dir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}

			var opts []humgrid.ParserOption
			if cfg.Permissive() {
				opts = append(opts, humgrid.WithPermissiveMode())
			}
			parser := humgrid.NewParser(opts...)

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer watcher.Close()
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			log.Info().Str("dir", dir).Msg("watching")

			pending := make(map[string]bool)
			var timer *time.Timer
			var fire <-chan time.Time

			for {
				select {
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
						continue
					}
					if !watchable(cfg, ev.Name) {
						continue
					}
					pending[ev.Name] = true
					if timer == nil {
						timer = time.NewTimer(debounceWindow)
					} else {
						timer.Reset(debounceWindow)
					}
					fire = timer.C

				case <-fire:
					fire = nil
					for path := range pending {
						delete(pending, path)
						validateFile(parser, path) // errors already logged
					}

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Error().Err(err).Msg("watcher error")

				case s := <-sig:
					log.Info().Str("signal", s.String()).Msg("stopping")
					return nil
				}
			}
		},
	}
}

// watchable reports whether a changed path matches the configured
// include patterns, comparing against the path's base name so
// directory-relative patterns still apply.
func watchable(cfg Config, path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	for _, pat := range cfg.Include {
		if ok, _ := doublestar.Match(filepath.Base(pat), base); ok {
			return true
		}
	}
	return false
}
