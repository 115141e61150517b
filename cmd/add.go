package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/returnguard/returnguard/internal/extract"
	"github.com/returnguard/returnguard/internal/model"
)

var (
	addProduct        string
	addMerchant       string
	addDate           string
	addPrice          string
	addReturnDays     int
	addWarrantyMonths int
	addNotes          string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a purchase",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cli"); err != nil {
			return err
		}

		date, err := time.Parse("2006-01-02", addDate)
		if err != nil {
			return eris.Wrap(err, "parse --date (expected YYYY-MM-DD)")
		}
		if addReturnDays < 0 || addWarrantyMonths < 0 {
			return eris.New("--return-days and --warranty-months must be >= 0")
		}

		p := &model.Purchase{
			ProductName:    addProduct,
			Merchant:       addMerchant,
			PurchaseDay:    model.EpochDay(date),
			ReturnDays:     addReturnDays,
			WarrantyMonths: addWarrantyMonths,
			Notes:          addNotes,
		}
		if addPrice != "" {
			cents, ok := extract.ParseCents(addPrice)
			if !ok {
				return eris.Errorf("invalid --price %q", addPrice)
			}
			p.PriceCents = &cents
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		if err := st.CreatePurchase(ctx, p); err != nil {
			return eris.Wrap(err, "create purchase")
		}

		zap.L().Info("purchase saved",
			zap.String("id", p.ID),
			zap.String("product", p.ProductName),
			zap.String("return_due", model.DayToTime(p.ReturnDueDay()).Format("2006-01-02")),
		)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addProduct, "product", "", "product name (required)")
	addCmd.Flags().StringVar(&addMerchant, "merchant", "", "merchant name")
	addCmd.Flags().StringVar(&addDate, "date", "", "purchase date YYYY-MM-DD (required)")
	addCmd.Flags().StringVar(&addPrice, "price", "", "price, e.g. 199,90")
	addCmd.Flags().IntVar(&addReturnDays, "return-days", model.DefaultReturnDays, "return window in days")
	addCmd.Flags().IntVar(&addWarrantyMonths, "warranty-months", model.DefaultWarrantyMonths, "warranty in months")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "free-form notes")
	_ = addCmd.MarkFlagRequired("product")
	_ = addCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(addCmd)
}
