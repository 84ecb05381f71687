//go:build ignore
// +build ignore

package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"course-eligibility-engine/internal/config"
	"course-eligibility-engine/internal/services/database"
)

func main() {
	fmt.Println("=== Database Initialization Script ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	databaseURL := cfg.DatabaseURL()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	dbName, adminURL, err := adminTarget(databaseURL)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	// First connect to default 'postgres' database to create our database
	fmt.Println("📡 Connecting to PostgreSQL server...")
	adminConn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		fmt.Printf("❌ Failed to connect to PostgreSQL: %v\n", err)
		os.Exit(1)
	}

	var exists bool
	err = adminConn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	if err != nil {
		fmt.Printf("❌ Failed to check database existence: %v\n", err)
		adminConn.Close(ctx)
		os.Exit(1)
	}

	if !exists {
		fmt.Printf("📦 Creating '%s' database...\n", dbName)
		if _, err := adminConn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
			fmt.Printf("❌ Failed to create database: %v\n", err)
			adminConn.Close(ctx)
			os.Exit(1)
		}
		fmt.Printf("✅ Database '%s' created!\n", dbName)
	} else {
		fmt.Printf("✅ Database '%s' already exists\n", dbName)
	}
	adminConn.Close(ctx)

	fmt.Printf("📡 Connecting to %s database...\n", dbName)
	db, err := database.NewFromURL(ctx, databaseURL)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("🚀 Applying schema...")
	if err := db.EnsureSchema(ctx); err != nil {
		fmt.Printf("❌ Failed to apply schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Schema applied")
	fmt.Println()

	fmt.Println("🔍 Verifying database setup...")
	counts, failed := db.TableCounts(ctx)
	for _, table := range database.Tables {
		if err, ok := failed[table]; ok {
			fmt.Printf("   ⚠️  %s: %v\n", table, err)
			continue
		}
		fmt.Printf("   📦 %-20s %d rows\n", table, counts[table])
	}

	fmt.Println()
	fmt.Println("🎉 Database initialization completed successfully!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Import the catalog: go run ./cmd/coursectl import --data ./data")
	fmt.Println("  2. Test the connections: go run scripts/test_connection.go")
}

// adminTarget returns the database name in databaseURL and the same URL
// pointed at the 'postgres' maintenance database.
func adminTarget(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", "", fmt.Errorf("database URL has no database name")
	}
	u.Path = "/postgres"
	return name, u.String(), nil
}
