// Command main runs the demo-data seeder for the Senyo portal.
package main

import (
	"flag"
	"log"

	"senyo/internal/config"
	"senyo/internal/database"
	"senyo/internal/seed"
)

func main() {
	numClients := flag.Int("clients", 10, "Number of client accounts to create")
	numRequests := flag.Int("requests", 40, "Number of service requests to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Log what would be created without writing")
	fast := flag.Bool("fast", false, "Skip bcrypt hashing for faster dev seeding")
	flag.Parse()

	log.Println("Senyo demo seeder")
	log.Printf("Target: %d clients, %d requests, clean=%v", *numClients, *numRequests, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = seed.Demo(db, seed.Options{
		NumClients:  *numClients,
		NumRequests: *numRequests,
		ShouldClean: *shouldClean && !*dryRun,
		Factory: seed.SeedOptions{
			DryRun:     *dryRun,
			SkipBcrypt: *fast,
		},
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("All done. Demo clients sign in with the password %q.", seed.DemoPassword)
}
