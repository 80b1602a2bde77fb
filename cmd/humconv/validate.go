package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spineworks/humgrid/humgrid"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [globs...]",
		Short: "Check files for structural consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(flagConfig)
			if err != nil {
				return err
			}
			files, err := expandArgs(cfg, args)
			if err != nil {
				return err
			}

			var opts []humgrid.ParserOption
			if cfg.Permissive() {
				opts = append(opts, humgrid.WithPermissiveMode())
			}
			parser := humgrid.NewParser(opts...)

			failed := 0
			for _, path := range files {
				if err := validateFile(parser, path); err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(files))
			}
			log.Info().Int("files", len(files)).Msg("all files valid")
			return nil
		},
	}
}

func validateFile(parser *humgrid.Parser, path string) error {
	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("open failed")
		return err
	}
	defer f.Close()

	grids, results, err := parser.ParseAll(f)
	if err != nil {
		ev := log.Error().Err(err).Str("file", path)
		if len(results) > 0 {
			ev = ev.Str("session", results[len(results)-1].ID)
		}
		ev.Msg("validation failed")
		return err
	}

	rows := 0
	repaired := false
	for i, g := range grids {
		rows += g.RowCount()
		res := results[i]
		if res.Status == humgrid.StatusRepaired {
			repaired = true
		}
		for _, d := range res.Diagnostics {
			log.Warn().
				Str("file", path).
				Str("code", string(d.Code)).
				Int("line", d.Line).
				Msg(d.Message)
		}
	}
	ev := log.Info().Str("file", path).Int("documents", len(grids)).Int("rows", rows)
	if repaired {
		ev.Msg("valid after repairs")
	} else {
		ev.Msg("valid")
	}
	return nil
}
