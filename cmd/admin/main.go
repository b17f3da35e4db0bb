// Command admin provides maintenance utilities for the engagement data.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"retouchly/internal/cache"
	"retouchly/internal/config"
	"retouchly/internal/database"
	"retouchly/internal/featureflags"
	"retouchly/internal/repository"
	"retouchly/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin reconcile-likes   - Recompute like_count from the likes table")
	fmt.Println("  admin bump-feed         - Invalidate every cached feed page")
	fmt.Println("  admin flags [user_id]   - Show feature flag state")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	ctx := context.Background()

	switch os.Args[1] {
	case "reconcile-likes":
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		svc := service.NewActivityService(repository.NewActivityRepository(db), repository.NewUserRepository(db), cache.New(cache.Connect(cfg.RedisURL)))
		fixed, err := svc.ReconcileLikeCounts(ctx)
		if err != nil {
			log.Fatalf("Reconcile failed: %v", err)
		}
		fmt.Printf("Reconciled like counts: %d activities corrected\n", fixed)

	case "bump-feed":
		rdb := cache.Connect(cfg.RedisURL)
		if rdb == nil {
			log.Fatal("Redis unavailable")
		}
		c := cache.New(rdb)
		c.BumpFeedVersion(ctx)
		fmt.Printf("Feed version is now %d\n", c.FeedVersion(ctx))

	case "flags":
		var viewer uint
		if len(os.Args) > 2 {
			id, err := strconv.ParseUint(os.Args[2], 10, 32)
			if err != nil {
				log.Fatalf("Invalid user id %q", os.Args[2])
			}
			viewer = uint(id)
		}
		flags := featureflags.NewManager(cfg.FeatureFlags)
		state := flags.Snapshot(viewer)
		for _, name := range flags.Names() {
			fmt.Printf("%-20s %t\n", name, state[name])
		}

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}
