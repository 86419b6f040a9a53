package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "startup-apply",
	Short:         "Backend de postulaciones de startups",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("warning: loading .env: %v", err)
		}
	},
}

func main() {
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newCreateAdminCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
