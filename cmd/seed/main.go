// Command seed fills a development database with demo activities.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"retouchly/internal/config"
	"retouchly/internal/database"
	"retouchly/internal/seed"
)

func main() {
	preset := flag.String("preset", "demo", "Seed preset ("+strings.Join(seed.PresetNames(), ", ")+")")
	clean := flag.Bool("clean", true, "Remove existing activities, likes and seeded users first")
	randSeed := flag.Int64("rand", 0, "Fixed random seed for reproducible data (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	p, err := seed.LoadPreset(*preset)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, *randSeed)
	if *clean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Apply(ctx, p)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users, %d activities (%d public), %d likes, %d downloads",
		sum.Users, sum.Activities, sum.Public, sum.Likes, sum.Downloads)
}
