package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/returnguard/returnguard/internal/backup"
	"github.com/returnguard/returnguard/internal/store"
)

var (
	exportOutPath string
	exportXLSX    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all purchases to a backup file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		out, err := os.Create(exportOutPath)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer out.Close()

		if exportXLSX {
			items, err := st.ListPurchases(ctx, store.ListFilter{IncludeArchived: true})
			if err != nil {
				return eris.Wrap(err, "list purchases")
			}
			if err := backup.WriteXLSX(out, items); err != nil {
				return eris.Wrap(err, "write xlsx")
			}
			zap.L().Info("export complete",
				zap.String("path", exportOutPath),
				zap.Int("items", len(items)),
			)
			return nil
		}

		file, err := backup.Export(ctx, st, time.Now)
		if err != nil {
			return eris.Wrap(err, "export backup")
		}
		if err := backup.WriteJSON(out, file); err != nil {
			return eris.Wrap(err, "write backup")
		}

		zap.L().Info("export complete",
			zap.String("path", exportOutPath),
			zap.Int("items", len(file.Items)),
		)
		return nil
	},
}

var importPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a backup file, replacing all purchases",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}

		in, err := os.Open(importPath)
		if err != nil {
			return eris.Wrap(err, "open backup file")
		}
		defer in.Close()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		n, err := backup.Import(ctx, st, in)
		if err != nil {
			return eris.Wrap(err, "import backup")
		}

		zap.L().Info("import complete",
			zap.String("path", importPath),
			zap.Int("items", n),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutPath, "out", "returnguard-backup.json", "output file path")
	exportCmd.Flags().BoolVar(&exportXLSX, "xlsx", false, "write an XLSX report instead of JSON")
	importCmd.Flags().StringVar(&importPath, "file", "", "backup file to import (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
