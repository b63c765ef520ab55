package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khbm0110/JUUUU/internal/content"
)

var (
	importFormat string
	importForce  bool
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the stored site document with a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		format, err := formatFor(path, importFormat)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		node, err := decodeDocument(raw, format)
		if err != nil {
			return err
		}
		site, err := siteFromDocument(node)
		if err != nil {
			return err
		}
		if problems := checkSite(site); len(problems) > 0 && !importForce {
			return fmt.Errorf("document has %d problem(s), use --force to import anyway:\n  %s", len(problems), strings.Join(problems, "\n  "))
		}

		backend, err := openBackend()
		if err != nil {
			return err
		}
		defer backend.Close()

		store, err := content.NewStore(backend, logger)
		if err != nil {
			return err
		}
		if err := store.ReplaceAll(context.Background(), site); err != nil {
			return err
		}
		logger.Info("site document imported", zap.String("file", path))
		fmt.Fprintf(cmd.ErrOrStderr(), "imported %s\n", path)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "json or yaml (defaults from the file extension)")
	importCmd.Flags().BoolVar(&importForce, "force", false, "import even when validation reports problems")
	rootCmd.AddCommand(importCmd)
}
