// brightctl is the operational CLI: it runs the reconciliation sweep and
// payment resync directly against the database, without going through the
// HTTP API. Intended for cron jobs and one-off operator use.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brightbooks/backend/internal/database"
	"github.com/brightbooks/backend/internal/models"
	"github.com/brightbooks/backend/internal/services"
	"github.com/brightbooks/backend/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "brightctl",
	Short: "Operational CLI for the BrightBooks backend",
	Long: `brightctl runs maintenance tasks against the BrightBooks database:
the recurring-invoice reconciliation sweep, on-demand payment resync, and
database migrations. Database connection settings come from the same
environment variables the server uses.`,
	SilenceUsage: true,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Materialize due recurring invoices and reconcile statuses",
	Example: `  # Sweep every organization
  brightctl reconcile

  # Restrict to one organization
  brightctl reconcile --org 6f1e...`,
	RunE: runReconcile,
}

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Recompute invoice statuses from recorded payments",
	RunE:  runResync,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return database.Migrate(logger)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(resyncCmd)
	rootCmd.AddCommand(migrateCmd)

	reconcileCmd.Flags().String("org", "", "Organization ID to restrict the sweep to")
	resyncCmd.Flags().String("org", "", "Organization ID to resync (required)")
	resyncCmd.MarkFlagRequired("org")
}

func connect() (*sql.DB, *store.Postgres, *zap.Logger, error) {
	viper.AutomaticEnv()
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.InitDB(logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return db, store.NewPostgres(db), logger, nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	db, st, logger, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()
	defer logger.Sync()

	var orgID *string
	if org, _ := cmd.Flags().GetString("org"); org != "" {
		orgID = &org
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	schedule := services.NewScheduleService(st, logger)
	job := services.NewReconcileJob(st, schedule, logger)
	summary := job.Run(ctx, orgID)

	fmt.Printf("processed=%d created=%d reconciled=%d errors=%d\n",
		summary.Processed, summary.Created, summary.Reconciled, len(summary.Errors))
	for _, e := range summary.Errors {
		fmt.Fprintln(os.Stderr, "  "+e)
	}
	if len(summary.Errors) > 0 {
		return fmt.Errorf("%d template(s) failed", len(summary.Errors))
	}
	return nil
}

func runResync(cmd *cobra.Command, args []string) error {
	db, st, logger, err := connect()
	if err != nil {
		return err
	}
	defer db.Close()
	defer logger.Sync()

	org, _ := cmd.Flags().GetString("org")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	invoices, err := st.ListInvoices(ctx, org)
	if err != nil {
		return fmt.Errorf("load invoices: %w", err)
	}
	payments, err := st.ListPayments(ctx, org)
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}

	rollup, err := services.Aggregate(invoices, payments)
	if err != nil {
		return err
	}

	now := time.Now()
	updated := 0
	for i := range invoices {
		inv := &invoices[i]
		if !inv.Status.Billable() {
			continue
		}
		next := services.Reconcile(inv, rollup.PerInvoice[inv.ID], now)
		if next == inv.Status {
			continue
		}
		var paidAt *time.Time
		if next == models.InvoiceStatusPaid {
			paidAt = &now
		}
		if err := st.UpdateInvoiceStatus(ctx, org, inv.ID, next, paidAt); err != nil {
			return fmt.Errorf("update invoice %s: %w", inv.ID, err)
		}
		updated++
	}

	fmt.Printf("invoiced=%d paid=%d balance=%d updated=%d\n",
		rollup.TotalInvoiced, rollup.TotalPaid, rollup.BalanceDue, updated)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
