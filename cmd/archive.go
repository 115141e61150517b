package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var archiveRestore bool

var archiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive or restore a purchase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		if err := st.SetArchived(ctx, args[0], !archiveRestore); err != nil {
			return eris.Wrap(err, "set archived")
		}

		zap.L().Info("purchase updated",
			zap.String("id", args[0]),
			zap.Bool("archived", !archiveRestore),
		)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a purchase permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		if err := st.DeletePurchase(ctx, args[0]); err != nil {
			return eris.Wrap(err, "delete purchase")
		}

		zap.L().Info("purchase deleted", zap.String("id", args[0]))
		return nil
	},
}

func init() {
	archiveCmd.Flags().BoolVar(&archiveRestore, "restore", false, "restore instead of archive")
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(deleteCmd)
}
