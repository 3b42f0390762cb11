package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fluree/fluree-core/dbledger"
	"github.com/fluree/fluree-core/iri"
)

var commitCmd = &cobra.Command{
	Use:   "commit file...",
	Short: "Stage every listed document and fold them into a single commit",
	Long: "Commit stages each file's JSON-LD document in turn against the\n" +
		"same overlay, then packages everything staged -- across every file --\n" +
		"into one commit, unlike stage which always commits after a single\n" +
		"document.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alias, branch, author, message, err := commonFlags(cmd)
		if err != nil {
			return err
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

		ctx := context.Background()
		db, err := dbledger.Open(ctx, alias, branch, dbledger.Options{
			Store:  be.store,
			Naming: be.naming,
			Codec:  iri.NewCodec(),
			Log:    log,
			Fuel:   fuelFromConfig(cfg),
		})
		if err != nil {
			return err
		}

		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("fluree: read %s: %w", path, err)
			}
			var doc map[string]any
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("fluree: parse %s: %w", path, err)
			}
			if _, err := db.Stage(doc, dbledger.StageOptions{Author: author}); err != nil {
				return fmt.Errorf("fluree: stage %s: %w", path, err)
			}
		}

		commit, err := db.Commit(ctx, dbledger.CommitOptions{Message: message, Author: author})
		if err != nil {
			return fmt.Errorf("fluree: commit: %w", err)
		}
		fmt.Printf("committed %s at t=%d (%d documents)\n", commit.ID, commit.Data.T, len(args))
		return nil
	},
}

func init() {
	commitCmd.Flags().String("author", "", "did recorded as the transaction's author")
	commitCmd.Flags().String("message", "", "commit message")
}
