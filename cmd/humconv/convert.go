package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spineworks/humgrid/humgrid"
)

func newConvertCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "convert [globs...]",
		Short: "Parse files and re-emit them in normalized form",
		Long: "Convert parses each input through the structural engine and\n" +
			"re-serializes it. With --permissive, recoverable defects (lone\n" +
			"merges, short data rows) are repaired in the output.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(flagConfig)
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Out
			}
			files, err := expandArgs(cfg, args)
			if err != nil {
				return err
			}
			if out != "" {
				if err := os.MkdirAll(out, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}

			var opts []humgrid.ParserOption
			if cfg.Permissive() {
				opts = append(opts, humgrid.WithPermissiveMode())
			}
			parser := humgrid.NewParser(opts...)

			for _, path := range files {
				if err := convertFile(parser, path, out); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default stdout)")
	return cmd
}

func convertFile(parser *humgrid.Parser, path, out string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	grids, results, err := parser.ParseAll(f)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for i, g := range grids {
		text, err := humgrid.SerializeGrid(g)
		if err != nil {
			return err
		}
		sb.WriteString(text)
		for _, d := range results[i].Diagnostics {
			log.Warn().
				Str("file", path).
				Str("code", string(d.Code)).
				Int("line", d.Line).
				Msg(d.Message)
		}
	}

	if out == "" {
		_, err := os.Stdout.WriteString(sb.String())
		return err
	}
	dst := filepath.Join(out, filepath.Base(path))
	if err := os.WriteFile(dst, []byte(sb.String()), 0o644); err != nil {
		return err
	}
	log.Info().Str("file", path).Str("out", dst).Int("documents", len(grids)).Msg("converted")
	return nil
}
