package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "asyncemail",
	Short: "Send email through an SMTP server",
	Long:  `A small command line tool that sends email through an SMTP server, synchronously or asynchronously.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func GetRoot() *cobra.Command {
	return rootCmd
}

// SetInfo overrides the name and descriptions of the root command
func SetInfo(use, short, long string) {
	rootCmd.Use = use
	rootCmd.Short = short
	rootCmd.Long = long
}
