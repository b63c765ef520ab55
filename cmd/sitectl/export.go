package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/khbm0110/JUUUU/internal/content"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the stored site document, merged over the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatFor(exportOut, exportFormat)
		if err != nil {
			return err
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
		store.Load(context.Background())

		out, err := encodeDocument(store.Site(), format)
		if err != nil {
			return err
		}
		if exportOut == "" || exportOut == "-" {
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
		if err := os.WriteFile(exportOut, out, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "json or yaml (defaults from --out extension, else json)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (stdout when empty)")
	rootCmd.AddCommand(exportCmd)
}
