// Package main provides operator management utilities for the Senyo portal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"senyo/internal/allowlist"
	"senyo/internal/config"
	"senyo/internal/database"
	"senyo/internal/models"
	"senyo/internal/repository"
	"senyo/internal/service"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin create-operator <email> <password>  - Create an operator account")
		fmt.Println("  go run ./cmd/admin provision <name> <email> <password> - Provision a client")
		fmt.Println("  go run ./cmd/admin disable <email>                     - Disable an account")
		fmt.Println("  go run ./cmd/admin enable <email>                      - Re-enable an account")
		fmt.Println("  go run ./cmd/admin check-allowlist <email>             - Test the operator allow-list")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch command := os.Args[1]; command {
	case "create-operator":
		requireArgs(4, "create-operator <email> <password>")
		createOperator(db, os.Args[2], os.Args[3])

	case "provision":
		requireArgs(5, "provision <name> <email> <password>")
		provisionClient(db, os.Args[2], os.Args[3], os.Args[4])

	case "disable":
		requireArgs(3, "disable <email>")
		setDisabled(db, os.Args[2], true)

	case "enable":
		requireArgs(3, "enable <email>")
		setDisabled(db, os.Args[2], false)

	case "check-allowlist":
		requireArgs(3, "check-allowlist <email>")
		checkAllowlist(cfg, os.Args[2])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func requireArgs(n int, usage string) {
	if len(os.Args) < n {
		fmt.Printf("Usage: go run ./cmd/admin %s\n", usage)
		os.Exit(1)
	}
}

func createOperator(db *gorm.DB, email, password string) {
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewClientProfileRepository(db)
	svc := service.NewClientService(userRepo, profileRepo)

	// An operator is just an account; authority comes from the allow-list.
	profile, err := svc.Provision(context.Background(), service.ProvisionInput{
		DisplayName: "Operator",
		Email:       email,
		Password:    password,
	})
	if err != nil {
		log.Fatalf("Failed to create operator account: %v", err)
	}

	// Operators do not need a client profile; remove the one provisioning made.
	if err := profileRepo.Delete(context.Background(), profile.UserID); err != nil {
		log.Printf("warning: could not remove operator's client profile: %v", err)
	}

	fmt.Printf("Operator account created for %s (user ID %d).\n", email, profile.UserID)
	fmt.Println("Remember to add this email to the operator allow-list.")
}

func provisionClient(db *gorm.DB, name, email, password string) {
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewClientProfileRepository(db)
	svc := service.NewClientService(userRepo, profileRepo)

	profile, err := svc.Provision(context.Background(), service.ProvisionInput{
		DisplayName: name,
		Email:       email,
		Password:    password,
	})
	if err != nil {
		log.Fatalf("Failed to provision client: %v", err)
	}
	fmt.Printf("Client %s provisioned (user ID %d).\n", profile.Email, profile.UserID)
}

func setDisabled(db *gorm.DB, email string, disabled bool) {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("No account with email %s\n", email)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	if err := db.Model(&user).Update("disabled", disabled).Error; err != nil {
		log.Fatalf("Failed to update account: %v", err)
	}
	if disabled {
		fmt.Printf("Account %s disabled.\n", email)
	} else {
		fmt.Printf("Account %s re-enabled.\n", email)
	}
}

func checkAllowlist(cfg *config.Config, email string) {
	var (
		list *allowlist.List
		err  error
	)
	if cfg.AdminAllowlistFile != "" {
		list, err = allowlist.LoadFile(cfg.AdminAllowlistFile)
		if err != nil {
			log.Fatalf("Failed to load allow-list file: %v", err)
		}
	} else {
		list = allowlist.Parse(cfg.AdminEmails)
	}

	if list.Allows(email) {
		fmt.Printf("%s IS on the operator allow-list.\n", email)
	} else {
		fmt.Printf("%s is NOT on the operator allow-list.\n", email)
	}
}
