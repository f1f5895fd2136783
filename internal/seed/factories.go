// Package seed provides helpers to create demo data for the portal
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"senyo/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedOptions tune factory behavior.
type SeedOptions struct {
	// DryRun logs what would be created without touching the database.
	DryRun bool
	// SkipBcrypt stores a plain placeholder password for fast dev seeding.
	SkipBcrypt bool
	// MaxDays spreads created_at timestamps over this many days back.
	MaxDays int
}

// DemoPassword is the shared password for every seeded client account.
const DemoPassword = "password123"

var requestTypes = []string{"web", "branding", "seo", "copywriting", "maintenance"}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts SeedOptions
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:     db,
		opts:   opts,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		nextID: 1000,
	}
}

// CreateClient persists a client identity together with its profile
// document. Optional overrides may modify the generated user before saving.
func (f *Factory) CreateClient(overrides ...func(*models.User)) (*models.User, error) {
	name := gofakeit.Name()
	user := &models.User{
		DisplayName: name,
		Email:       gofakeit.Email(),
	}

	if f.opts.SkipBcrypt {
		user.Password = DemoPassword
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateClient: %s <%s>", user.DisplayName, user.Email)
		return user, nil
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.ClientProfile{
			UserID:      user.ID,
			DisplayName: user.DisplayName,
			Email:       user.Email,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// BuildRequest constructs a request struct for the given owner without
// persisting it. Useful for batching.
func (f *Factory) BuildRequest(owner *models.User, overrides ...func(*models.Request)) *models.Request {
	req := &models.Request{
		OwnerID:     owner.ID,
		OwnerName:   owner.DisplayName,
		OwnerEmail:  owner.Email,
		Title:       gofakeit.Sentence(5),
		Description: gofakeit.Paragraph(1, 3, 8, "\n"),
		RequestType: requestTypes[f.rng.Intn(len(requestTypes))],
		Priority:    f.randomPriority(),
		Status:      f.randomStatus(),
	}

	// realistic created_at spread
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	req.CreatedAt = time.Now().
		Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	if req.Status != models.RequestStatusPending {
		req.AdminNotes = gofakeit.Sentence(10)
	}

	for _, override := range overrides {
		override(req)
	}
	return req
}

// CreateRequest persists a generated request for the given owner.
func (f *Factory) CreateRequest(owner *models.User, overrides ...func(*models.Request)) (*models.Request, error) {
	req := f.BuildRequest(owner, overrides...)

	if f.opts.DryRun {
		f.nextID++
		req.ID = f.nextID
		log.Printf("[dry-run] CreateRequest: owner=%d status=%s title=%q", req.OwnerID, req.Status, req.Title)
		return req, nil
	}

	if err := f.db.Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// CreateRequestsBatch persists multiple requests in a single DB call.
func (f *Factory) CreateRequestsBatch(requests []*models.Request) error {
	if f.opts.DryRun {
		for _, r := range requests {
			f.nextID++
			r.ID = f.nextID
		}
		log.Printf("[dry-run] CreateRequestsBatch: %d requests (no DB write)", len(requests))
		return nil
	}
	return f.db.Create(&requests).Error
}

func (f *Factory) randomPriority() models.RequestPriority {
	switch f.rng.Intn(3) {
	case 0:
		return models.RequestPriorityLow
	case 1:
		return models.RequestPriorityHigh
	default:
		return models.RequestPriorityMedium
	}
}

// randomStatus skews toward pending so a seeded dashboard resembles a live
// inbox rather than a finished archive.
func (f *Factory) randomStatus() models.RequestStatus {
	switch n := f.rng.Intn(10); {
	case n < 4:
		return models.RequestStatusPending
	case n < 6:
		return models.RequestStatusAccepted
	case n < 8:
		return models.RequestStatusInProgress
	case n < 9:
		return models.RequestStatusCompleted
	default:
		return models.RequestStatusRejected
	}
}

func demoEmail(slug string) string {
	return fmt.Sprintf("%s@demo.senyo.local", slug)
}
