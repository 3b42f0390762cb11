package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fluree/fluree-core/commitchain"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List a ledger branch's commits, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		alias, _ := cmd.Flags().GetString("alias")
		if alias == "" {
			return fmt.Errorf("fluree: --alias is required")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := logrus.StandardLogger()
		be, err := openBackends(cfg, log)
		if err != nil {
			return err
		}

		chain, err := commitchain.History(context.Background(), alias, commitchain.ReifyOptions{
			Store:            be.store,
			Naming:           be.naming,
			Log:              log,
			RequireSignature: cfg.Signing.RequireSignature,
		})
		if err != nil {
			return fmt.Errorf("fluree: history: %w", err)
		}
		for _, c := range chain {
			msg := c.Message
			if msg == "" {
				msg = "(no message)"
			}
			fmt.Printf("%s  t=%-4d  %s\n", c.ID, c.Data.T, msg)
		}
		return nil
	},
}
