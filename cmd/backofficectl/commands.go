package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	appbilling "github.com/transportops/backoffice/internal/application/billing"
	appfleet "github.com/transportops/backoffice/internal/application/fleet"
	"github.com/transportops/backoffice/internal/domain/billing"
	"github.com/transportops/backoffice/internal/domain/shared"
)

func (c *cli) numberCmd() *cobra.Command {
	number := &cobra.Command{Use: "number", Short: "Document numbering"}

	var kind string
	next := &cobra.Command{
		Use:   "next",
		Short: "Show the number the next invoice or bill would get",
		Example: `  backofficectl number next
  backofficectl number next --kind bill`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k := billing.DocumentKind(kind)
			if !k.IsValid() {
				return fmt.Errorf("--kind must be invoice or bill, got %q", kind)
			}
			return c.withBackend(cmd.Context(), func(b *backend) error {
				res, err := b.numbers.Preview(cmd.Context(), k)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), res, func(tw *tabwriter.Writer) {
					row(tw, "KIND", "PREFIX", "NEXT")
					row(tw, res.Kind, res.Prefix, res.Number)
				})
			})
		},
	}
	next.Flags().StringVar(&kind, "kind", string(billing.DocumentInvoice), "Document kind: invoice or bill")
	number.AddCommand(next)
	return number
}

// statusResult is the output of status resolve
type statusResult struct {
	Total         string `json:"total"`
	Paid          string `json:"paid"`
	PaymentStatus string `json:"payment_status"`
	billing.Overdue
}

func (c *cli) statusCmd() *cobra.Command {
	status := &cobra.Command{Use: "status", Short: "Payment status rules"}

	var total, paid, due, today string
	resolve := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the payment status of a total and a paid amount",
		Example: `  backofficectl status resolve --total 4500 --paid 1500
  backofficectl status resolve --total 4500 --paid 0 --due 2026-02-04 --today 2026-02-10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := decimal.NewFromString(total)
			if err != nil {
				return fmt.Errorf("invalid --total %q", total)
			}
			p, err := decimal.NewFromString(paid)
			if err != nil {
				return fmt.Errorf("invalid --paid %q", paid)
			}
			res := statusResult{
				Total:         t.StringFixed(2),
				Paid:          p.StringFixed(2),
				PaymentStatus: string(billing.ResolvePaymentStatus(t, p)),
			}
			if due != "" {
				dueDate, err := shared.ParseCalendarDate(due)
				if err != nil {
					return fmt.Errorf("invalid --due: %w", err)
				}
				asOf := shared.CalendarDate(time.Now(), time.UTC)
				if today != "" {
					if asOf, err = shared.ParseCalendarDate(today); err != nil {
						return fmt.Errorf("invalid --today: %w", err)
					}
				}
				res.Overdue = billing.ComputeOverdue(&dueDate, asOf, billing.PaymentStatus(res.PaymentStatus))
			}
			return c.print(cmd.OutOrStdout(), res, func(tw *tabwriter.Writer) {
				row(tw, "TOTAL", "PAID", "STATUS", "OVERDUE_DAYS")
				row(tw, res.Total, res.Paid, res.PaymentStatus, res.OverdueDays)
			})
		},
	}
	resolve.Flags().StringVar(&total, "total", "0", "Document total")
	resolve.Flags().StringVar(&paid, "paid", "0", "Amount paid so far")
	resolve.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD) to compute lateness")
	resolve.Flags().StringVar(&today, "today", "", "Evaluate lateness as of this date (default: today)")
	status.AddCommand(resolve)
	return status
}

func (c *cli) invoiceCmd() *cobra.Command {
	invoice := &cobra.Command{Use: "invoice", Short: "Invoice reports"}

	var limit int
	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "List unpaid invoices past their due date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 || limit > 100 {
				return fmt.Errorf("--limit must be between 1 and 100")
			}
			return c.withBackend(cmd.Context(), func(b *backend) error {
				invoices, total, err := b.invoices.List(cmd.Context(), appbilling.InvoiceListFilter{
					Overdue:  true,
					PageSize: limit,
					OrderBy:  "date",
					OrderDir: "asc",
				})
				if err != nil {
					return err
				}
				err = c.print(cmd.OutOrStdout(), invoices, func(tw *tabwriter.Writer) {
					row(tw, "NUMBER", "DATE", "DUE", "PENDING", "STATUS", "DAYS_OVERDUE")
					for _, inv := range invoices {
						due := "-"
						if inv.DueDate != nil {
							due = *inv.DueDate
						}
						row(tw, inv.InvoiceNumber, inv.Date, due, inv.PendingAmount.StringFixed(2), inv.PaymentStatus, inv.OverdueDays)
					}
				})
				if err == nil && !c.asJSON && total > int64(len(invoices)) {
					fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d overdue invoices\n", len(invoices), total)
				}
				return err
			})
		},
	}
	overdue.Flags().IntVar(&limit, "limit", 50, "Maximum invoices to list (1-100)")
	invoice.AddCommand(overdue)
	return invoice
}

func (c *cli) driversCmd() *cobra.Command {
	drivers := &cobra.Command{Use: "drivers", Short: "Driver compliance"}

	var days int
	expiring := &cobra.Command{
		Use:   "expiring",
		Short: "List active drivers whose license expired or expires soon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 0 || days > 365 {
				return fmt.Errorf("--days must be between 0 and 365")
			}
			return c.withBackend(cmd.Context(), func(b *backend) error {
				list, err := b.drivers.ExpiringLicenses(cmd.Context(), days)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), list, func(tw *tabwriter.Writer) {
					row(tw, "NAME", "LICENSE", "EXPIRY", "DAYS_LEFT", "EXPIRED")
					for _, d := range list {
						row(tw, d.Name, d.LicenseNumber, d.LicenseExpiry, d.DaysRemaining, d.Expired)
					}
				})
			})
		},
	}
	expiring.Flags().IntVar(&days, "days", appfleet.DefaultLicenseWarningDays, "Warning window in days")
	drivers.AddCommand(expiring)
	return drivers
}
