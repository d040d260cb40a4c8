package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	logger := logrus.New()

	root := &cobra.Command{
		Use:          "checker",
		Short:        "checker",
		Long:         "checker finds unreachable and unremovable conditional-compilation blocks in a preprocessed C tree.",
		SilenceUsage: true,
	}

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "use debug log level")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
	}

	root.AddCommand(newCheckCmd(logger))
	root.AddCommand(newReportCmd(logger))
	root.AddCommand(newLocateCmd(logger))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
