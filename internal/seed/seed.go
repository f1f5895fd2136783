package seed

import (
	"errors"
	"fmt"
	"log"

	"senyo/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configure a full demo seeding run.
type Options struct {
	NumClients  int
	NumRequests int
	ShouldClean bool
	Factory     SeedOptions
}

// wellKnownClients are stable demo accounts so a dev environment always has
// predictable logins alongside the generated ones.
var wellKnownClients = []struct {
	slug string
	name string
}{
	{"amara", "Amara Mensah"},
	{"kofi", "Kofi Boateng"},
	{"demo", "Demo Client"},
}

// Demo populates the database with demo clients and requests.
func Demo(db *gorm.DB, opts Options) error {
	log.Printf("Seeding %d clients and %d requests...", opts.NumClients, opts.NumRequests)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	factory := NewFactory(db, opts.Factory)

	clients, err := createClients(db, factory, opts.NumClients)
	if err != nil {
		return fmt.Errorf("failed to create clients: %w", err)
	}
	log.Printf("%d demo clients created", len(clients))

	if len(clients) == 0 {
		return nil
	}

	created := 0
	batch := make([]*models.Request, 0, 100)
	for i := 0; i < opts.NumRequests; i++ {
		owner := clients[factory.rng.Intn(len(clients))]
		batch = append(batch, factory.BuildRequest(owner))
		if len(batch) == cap(batch) {
			if err := factory.CreateRequestsBatch(batch); err != nil {
				return fmt.Errorf("failed to create requests: %w", err)
			}
			created += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := factory.CreateRequestsBatch(batch); err != nil {
			return fmt.Errorf("failed to create requests: %w", err)
		}
		created += len(batch)
	}
	log.Printf("%d demo requests created", created)

	log.Println("Database seeding completed")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("Clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE requests, client_profiles, users RESTART IDENTITY CASCADE;`).Error
	}
	for _, table := range []string{"requests", "client_profiles", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func createClients(db *gorm.DB, factory *Factory, count int) ([]*models.User, error) {
	clients := make([]*models.User, 0, count)

	// Always include the stable accounts when there is room for them.
	if count >= len(wellKnownClients) {
		for _, known := range wellKnownClients {
			known := known
			client, err := factory.CreateClient(func(u *models.User) {
				u.DisplayName = known.name
				u.Email = demoEmail(known.slug)
			})
			if err != nil {
				// Likely already seeded; fetch the existing row instead.
				var existing models.User
				if ferr := db.Where("email = ?", demoEmail(known.slug)).First(&existing).Error; ferr == nil {
					clients = append(clients, &existing)
				}
				continue
			}
			clients = append(clients, client)
		}
	}

	for i := len(clients); i < count; i++ {
		client, err := factory.CreateClient()
		if err != nil {
			log.Printf("failed to create client %d: %v", i, err)
			continue
		}
		clients = append(clients, client)

		if i > 0 && i%100 == 0 {
			log.Printf("created %d clients...", i)
		}
	}

	return clients, nil
}

// EnsureOperator guarantees an account with the given email exists so it can
// sign in to the admin portal (authorization itself still comes from the
// allow-list). Existing accounts keep their password.
func EnsureOperator(db *gorm.DB, email, displayName, password string) error {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash operator password: %w", err)
	}
	return db.Create(&models.User{
		DisplayName: displayName,
		Email:       email,
		Password:    string(hashed),
	}).Error
}
