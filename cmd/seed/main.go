// Command main runs the database seeder for Toolshelf.
package main

import (
	"flag"
	"log"

	"toolshelf/internal/config"
	"toolshelf/internal/database"
	"toolshelf/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numTools := flag.Int("tools", 120, "Number of tools to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d tools, clean=%v\n", *numUsers, *numTools, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if err := s.Seed(seed.Options{
		NumUsers:    *numUsers,
		NumTools:    *numTools,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}
