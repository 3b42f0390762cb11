package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fluree/fluree-core/dbledger"
	"github.com/fluree/fluree-core/iri"
)

var initLedgerCmd = &cobra.Command{
	Use:   "init-ledger",
	Short: "Create an empty ledger ready for its first stage/commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		alias, _ := cmd.Flags().GetString("alias")
		branch, _ := cmd.Flags().GetString("branch")
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

		db, err := dbledger.Open(context.Background(), alias, branch, dbledger.Options{
			Store:  be.store,
			Naming: be.naming,
			Codec:  iri.NewCodec(),
			Log:    log,
		})
		if err != nil {
			return err
		}
		if db.Head != nil {
			return fmt.Errorf("fluree: ledger %q already has published commits", alias)
		}
		fmt.Printf("initialized ledger %q (branch %q)\n", alias, branch)
		return nil
	},
}
