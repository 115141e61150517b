package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/returnguard/returnguard/internal/model"
	"github.com/returnguard/returnguard/internal/store"
)

var (
	listArchived bool
	listMerchant string
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved purchases",
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

		items, err := st.ListPurchases(ctx, store.ListFilter{
			IncludeArchived: listArchived,
			Merchant:        listMerchant,
			Limit:           listLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list purchases")
		}

		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPRODUKT\tHAENDLER\tKAUFDATUM\tRUECKGABE\tPREIS")
		for _, p := range items {
			due := model.DayToTime(p.ReturnDueDay()).Format("2006-01-02")
			if p.ReturnDays == 0 {
				due = "-"
			} else if left := p.DaysLeft(now); left >= 0 {
				due = fmt.Sprintf("%s (%dd)", due, left)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				p.ID,
				p.ProductName,
				p.Merchant,
				p.PurchaseDate().Format("2006-01-02"),
				due,
				p.PriceLabel(),
			)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVar(&listArchived, "archived", false, "include archived purchases")
	listCmd.Flags().StringVar(&listMerchant, "merchant", "", "filter by exact merchant name")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "limit number of rows (0 = all)")
	rootCmd.AddCommand(listCmd)
}
