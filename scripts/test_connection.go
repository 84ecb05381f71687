//go:build ignore
// +build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"course-eligibility-engine/internal/config"
	"course-eligibility-engine/internal/services/cache"
	"course-eligibility-engine/internal/services/database"
	s3service "course-eligibility-engine/internal/services/s3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🔍 Testing Connections...")
	fmt.Println()

	// Test 1: Check environment variables
	fmt.Println("1️⃣  Checking Environment Variables:")
	checkEnvVar("CATALOG_SOURCE")
	checkEnvVar("AWS_REGION")
	checkEnvVar("S3_BUCKET")
	checkEnvVar("DATABASE_URL")
	checkEnvVar("REDIS_URL")
	checkEnvVar("SES_SENDER_EMAIL")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	// Test 2: Database connection
	fmt.Println("2️⃣  Testing Database Connection:")
	testDatabaseConnection(ctx, cfg)
	fmt.Println()

	// Test 3: Cache connection
	fmt.Println("3️⃣  Testing Cache Connection:")
	testCacheConnection(ctx, cfg)
	fmt.Println()

	// Test 4: Catalog bucket
	fmt.Println("4️⃣  Testing Catalog Bucket:")
	testBucket(ctx, cfg)
	fmt.Println()

	fmt.Println("✅ Connection tests complete!")
}

func checkEnvVar(name string) {
	value := os.Getenv(name)
	if value == "" {
		fmt.Printf("   ❌ %s: NOT SET\n", name)
		return
	}
	// Mask sensitive values
	masked := value
	if len(value) > 12 && (name == "DATABASE_URL" || name == "REDIS_URL") {
		masked = value[:8] + "..." + value[len(value)-4:]
	}
	fmt.Printf("   ✅ %s: %s\n", name, masked)
}

func testDatabaseConnection(ctx context.Context, cfg *config.Config) {
	if !cfg.DatabaseConfigured() {
		fmt.Println("   ⏭️  Database not configured, skipping")
		return
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		fmt.Printf("   ❌ Database connection failed: %v\n", err)
		return
	}
	defer db.Close()
	fmt.Println("   ✅ Database connection successful!")

	counts, failed := db.TableCounts(ctx)
	fmt.Printf("   📊 Tables found: %d/%d\n", len(counts), len(database.Tables))
	for table, err := range failed {
		fmt.Printf("   ⚠️  %s: %v\n", table, err)
	}
}

func testCacheConnection(ctx context.Context, cfg *config.Config) {
	if cfg.RedisURL == "" {
		fmt.Println("   ⏭️  REDIS_URL not set, skipping")
		return
	}

	c, err := cache.New(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		fmt.Printf("   ❌ Cache connection failed: %v\n", err)
		return
	}
	defer c.Close()
	fmt.Println("   ✅ Cache connection successful!")
}

func testBucket(ctx context.Context, cfg *config.Config) {
	if cfg.S3Bucket == "" {
		fmt.Println("   ⏭️  S3_BUCKET not set, skipping")
		return
	}

	svc, err := s3service.NewService(ctx, cfg)
	if err != nil {
		fmt.Printf("   ❌ %v\n", err)
		return
	}

	keys, err := svc.ListKeys(ctx, cfg.S3CatalogPrefix)
	if err != nil {
		fmt.Printf("   ❌ Listing %s failed: %v\n", cfg.S3CatalogPrefix, err)
		return
	}
	fmt.Printf("   ✅ %d objects under s3://%s/%s\n", len(keys), svc.Bucket(), cfg.S3CatalogPrefix)
}
