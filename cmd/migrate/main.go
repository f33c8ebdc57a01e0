package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"hourlysheet/internal/config"
	"hourlysheet/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	statusOnly := flag.Bool("status", false, "Only report which migrations are applied")
	flag.Usage = func() {
		log.Printf("Usage: migrate [-status] [driver dsn]")
		log.Printf("Without arguments the ledger database from LEDGER_DRIVER / LEDGER_DSN is used.")
	}
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	driver, dsn := "", ""
	switch flag.NArg() {
	case 0:
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		driver, dsn = cfg.Ledger.Driver, cfg.Ledger.DSN
	case 2:
		driver, dsn = flag.Arg(0), flag.Arg(1)
	default:
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		log.Fatalf("Failed to connect to %s database: %v", driver, err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	if !*statusOnly {
		log.Printf("Migrating %s ledger to %s", driver, runner.Version())
		if err := runner.Run(ctx, db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	status, err := runner.Status(ctx, db)
	if err != nil {
		log.Fatalf("Failed to read migration status: %v", err)
	}
	for _, s := range status {
		state := "pending"
		switch {
		case s.Modified:
			state = "MODIFIED"
		case s.Applied:
			state = "applied"
		}
		log.Printf("  %-28s %s", s.Version, state)
	}
}
