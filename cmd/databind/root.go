package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AnatoleLucet/databind/internal/config"
)

func newRootCommand(stdout io.Writer) *cobra.Command {
	cfg := config.Default()

	rc := &cobra.Command{
		Use:   "databind",
		Short: "Reactive data binding between observables living in event loop realms",
		Long: `databind keeps observable values, lists and sets in sync across realms,
single-goroutine event loops, and reruns side effects when what they read changes.

This binary runs scripted demonstrations of the library.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load(viper.New(), cmd.Flags())
		},
	}

	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")
	cfg.Flags(rc.PersistentFlags())

	rc.AddCommand(newDemoCommand(cfg, stdout))

	rc.SetOut(stdout)
	return rc
}
