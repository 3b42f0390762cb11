// Command fluree is the CLI surface for a ledger branch: stage a
// transaction, commit the staged diff, inspect commit history, or
// initialize a fresh ledger alias.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{Use: "fluree"}
	rootCmd.PersistentFlags().String("alias", "", "ledger alias [required]")
	rootCmd.PersistentFlags().String("branch", "main", "ledger branch")
	rootCmd.PersistentFlags().String("storage", "", "blob storage scheme: memory, file or ipfs (overrides config)")
	rootCmd.PersistentFlags().String("db-path", "", "root directory for the file storage/naming backends")

	rootCmd.AddCommand(initLedgerCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
