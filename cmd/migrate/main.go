package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"taskhub.org/internal/config"
	"taskhub.org/internal/migrate"
	"taskhub.org/internal/store/sqlstore"
	"taskhub.org/migrations"
)

func main() {
	log.SetFlags(0)
	var (
		driver = flag.String("driver", envOr("TASKHUB_DB_DRIVER", "pgx"), "database/sql driver: pgx or sqlite3")
		dsn    = flag.String("dsn", os.Getenv("TASKHUB_DB_DSN"), "database DSN")
		table  = flag.String("table", "", "override the bookkeeping table name")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or TASKHUB_DB_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|status|pending]")
	}

	files, err := migrations.For(*driver)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := sqlstore.Open(config.DatabaseConfig{Driver: *driver, DSN: *dsn, MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), files, migrate.WithTable(*table))

	switch flag.Arg(0) {
	case "up":
		var ran []string
		ran, err = mgr.Up(ctx)
		for _, name := range ran {
			fmt.Println("applied", name)
		}
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if err == nil {
			fmt.Println("rolled back", name)
		}
	case "status", "pending":
		var names []string
		if flag.Arg(0) == "status" {
			names, err = mgr.Status(ctx)
		} else {
			names, err = mgr.Pending(ctx)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
