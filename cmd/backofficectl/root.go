package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/transportops/backoffice/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// cli carries state shared by all subcommands
type cli struct {
	open     backendFactory
	logLevel string
	asJSON   bool
	log      *zap.Logger
}

func newRootCmd(open backendFactory) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "backofficectl",
		Short: "Operator CLI for the transport back office",
		Long: `backofficectl inspects the back-office database: the next document
numbers, overdue invoices and drivers whose license is about to expire.

Database settings are read the same way as the server: BACKOFFICE_* environment
variables, a .env file, then config.toml.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(logger.Config{Level: c.logLevel, Format: "console", Output: "stderr"})
			if err != nil {
				return err
			}
			c.log = log
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "Print JSON instead of a table")

	root.AddCommand(
		c.numberCmd(),
		c.statusCmd(),
		c.invoiceCmd(),
		c.driversCmd(),
	)
	return root
}

// withBackend opens the backend for one command run
func (c *cli) withBackend(ctx context.Context, fn func(*backend) error) error {
	b, err := c.open(ctx, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			c.log.Warn("failed to close database", zap.Error(err))
		}
	}()
	return fn(b)
}

// print writes v as JSON, or calls table with a tabwriter
func (c *cli) print(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	if c.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func row(tw *tabwriter.Writer, cols ...any) {
	for i, col := range cols {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
}
