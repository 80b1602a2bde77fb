// Package main provides the humconv binary: validate, normalize, and
// watch Humdrum-format files using the humgrid structural engine.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	flagConfig     string
	flagPermissive bool
	flagQuiet      bool
)

func main() {
	root := &cobra.Command{
		Use:           "humconv",
		Short:         "Structural converter for Humdrum spine files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagQuiet {
				log = log.Level(zerolog.ErrorLevel)
			}
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to humconv.yaml")
	root.PersistentFlags().BoolVar(&flagPermissive, "permissive", false, "repair recoverable errors instead of failing")
	root.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "only log errors")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newConvertCmd())
	root.AddCommand(newWatchCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("humconv failed")
		os.Exit(1)
	}
}
