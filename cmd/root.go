package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/returnguard/returnguard/internal/config"
	"github.com/returnguard/returnguard/internal/extract"
	"github.com/returnguard/returnguard/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "returnguard",
	Short: "Purchase return-deadline tracker",
	Long:  "Turns receipt OCR text into structured purchase drafts, tracks return and warranty windows, and reminds before deadlines pass.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

func initEngine() (*extract.Engine, error) {
	var opts []extract.Option
	if cfg.Extract.MerchantsPath != "" {
		merchants, err := extract.LoadMerchants(cfg.Extract.MerchantsPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, extract.WithMerchants(merchants))
	}
	return extract.NewEngine(opts...), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
