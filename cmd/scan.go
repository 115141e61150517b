package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var scanTextPath string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Build a purchase draft from receipt OCR text",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}

		raw, err := os.ReadFile(scanTextPath)
		if err != nil {
			return eris.Wrap(err, "read OCR text file")
		}

		engine, err := initEngine()
		if err != nil {
			return eris.Wrap(err, "init extraction engine")
		}

		draft := engine.BuildDraft(ctx, string(raw))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(draft)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanTextPath, "text", "", "path to OCR text file (required)")
	_ = scanCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(scanCmd)
}
