/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the worktime server, and hosts the admin
  commands that run against the same store without HTTP.

COMMANDS:
  serve       Run the HTTP API (default when no command is given)
  reconcile   Rebuild every allowance from the request rows once
  provision   Create an employee's allowance

STARTUP SEQUENCE (serve):
  1. Load configuration (.env, environment, flags)
  2. Open the store (memory, SQLite or Google Sheets)
  3. Reconcile allowances once so planned absences that came due are
     taken, then on RECONCILE_INTERVAL when the scheduler is on
  4. Start the HTTP server with graceful shutdown

GLOBAL FLAGS:
  --port     HTTP server port (overrides PORT)
  --store    memory, sqlite or gsheets (overrides STORE_BACKEND)
  --db       SQLite database path (overrides SQLITE_PATH)
  --admin    Admin employee id (overrides ADMIN_ID)

EXAMPLES:
  # Run with a file database
  ./server serve --db=./data/worktime.db

  # Run against a spreadsheet
  STORE_BACKEND=gsheets SPREADSHEET_ID=... GOOGLE_CREDENTIALS=key.json ./server

  # Give E1 a 25 day allowance
  ./server provision --employee E1 --hours 200

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warp/worktime/absence"
	"github.com/warp/worktime/calendar"
	"github.com/warp/worktime/clocking"
	"github.com/warp/worktime/config"
	"github.com/warp/worktime/sheet"
	"github.com/warp/worktime/store/gsheets"
	"github.com/warp/worktime/store/sqlite"

	// Zone data for hosts without /usr/share/zoneinfo.
	_ "time/tzdata"
)

var cfg *config.Config

var flags struct {
	port    int
	store   string
	dbPath  string
	adminID string
}

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Absence and clocking tracker",
	Long: `Tracks yearly absence allowances, absence requests and daily clock cards.
Data lives in a spreadsheet-shaped store: in memory, SQLite or Google Sheets.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = config.Load()
		applyFlags(cmd, cfg)
		cfg.ConfigureLogging()
		return cfg.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flags.port, "port", 8080, "HTTP server port")
	pf.StringVar(&flags.store, "store", config.BackendSQLite, "store backend: memory, sqlite or gsheets")
	pf.StringVar(&flags.dbPath, "db", "worktime.db", "SQLite database path (\":memory:\" for in-memory)")
	pf.StringVar(&flags.adminID, "admin", "ADMIN", "employee id with the admin role")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(provisionCmd)
}

// applyFlags overrides the environment with flags given on the command line.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("port") {
		c.Port = flags.port
	}
	if fs.Changed("store") {
		c.StoreBackend = flags.store
	}
	if fs.Changed("db") {
		c.SQLitePath = flags.dbPath
	}
	if fs.Changed("admin") {
		c.AdminID = flags.adminID
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// =============================================================================
// WIRING
// =============================================================================

// app holds the services every command needs.
type app struct {
	clock     calendar.Clock
	store     sheet.Store
	absences  *absence.Service
	clockings *clocking.Ledger
	close     func() error
}

func newApp(ctx context.Context, c *config.Config) (*app, error) {
	clock, err := calendar.NewSystemClock(c.Timezone)
	if err != nil {
		return nil, err
	}
	store, closeFn, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}
	return &app{
		clock:     clock,
		store:     store,
		absences:  absence.NewService(store, clock),
		clockings: clocking.NewLedger(store, clock),
		close:     closeFn,
	}, nil
}

func openStore(ctx context.Context, c *config.Config) (sheet.Store, func() error, error) {
	noop := func() error { return nil }
	log := logrus.WithField("backend", c.StoreBackend)

	switch c.StoreBackend {
	case config.BackendMemory:
		log.Warn("using in-memory store, data is lost on exit")
		return sheet.NewMemory(), noop, nil

	case config.BackendSQLite:
		s, err := sqlite.New(c.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.WithField("path", c.SQLitePath).Info("store opened")
		return s, s.Close, nil

	case config.BackendGSheets:
		s, err := gsheets.New(ctx, gsheets.Config{
			SpreadsheetID:   c.SpreadsheetID,
			CredentialsFile: c.CredentialsFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to spreadsheet: %w", err)
		}
		log.WithField("spreadsheet_id", c.SpreadsheetID).Info("store opened")
		return s, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
}
