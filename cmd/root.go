package cmd

import (
	"fmt"
	"os"

	"floppy/config"

	"github.com/spf13/cobra"
)

var (
	flagProfile    string
	flagFormat     string
	flagController string
	flagPort       string
	flagRetries    int
	flagOutput     string
	flagNoRollback bool
	flagTxnLog     string
)

var rootCmd = &cobra.Command{
	Use:   "floppy",
	Short: "Read, write, and inspect floppy disk images via USB floppy adapters",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "drive profile name (default: the catalog's configured default)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "", "container variant to use (d64, hfe, g64, scp, jv3, t64, vsf, sid, cvt)")
	rootCmd.PersistentFlags().StringVar(&flagController, "controller", "", "transport to use (greaseweazle, supercardpro, kryoflux); default tries each")
	rootCmd.PersistentFlags().StringVar(&flagPort, "port", "", "serial port to use; default enumerates all ports")
	rootCmd.PersistentFlags().IntVar(&flagRetries, "retries", 3, "per-track retry count on read/verify mismatch")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "", "image destination for read (default image.<format>); the other commands do not use it")
	writeCmd.Flags().BoolVar(&flagNoRollback, "no-rollback", false, "on a failed track write, leave already-written tracks as-is instead of restoring their prior flux")
	writeCmd.Flags().StringVar(&flagTxnLog, "log-path", "", "append a fsync-flushed recovery-log line per transaction event to this file")

	rootCmd.AddCommand(readCmd, writeCmd, copyCmd, infoCmd, verifyCmd)
}

func loadCatalog() (*config.Catalog, error) {
	cat, err := config.LoadDefault()
	if err != nil {
		return nil, newCLIError(ExitGenericError, err)
	}
	return cat, nil
}

// Execute runs the root command and exits the process with the code the
// failing (or succeeding) subcommand's error maps to.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "floppy:", err)
	}
	os.Exit(exitCodeOf(err))
}
