package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"legalflow/config"
	"legalflow/db"
	"legalflow/models"
	"legalflow/services"
	"legalflow/tenant"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

func main() {
	officeID := flag.String("office", "", "office id; empty creates a superuser")
	role := flag.String("role", models.RoleAdmin, "role inside the office")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	config.ConfigureLogging(cfg)

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	reader := bufio.NewReader(os.Stdin)

	// Get user details
	fmt.Println("=== Create New User ===")
	fmt.Println()

	fmt.Print("Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	// Get password securely
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read password")
	}
	fmt.Println() // New line after password input

	in := services.UserInput{
		OfficeID:    *officeID,
		Name:        name,
		Email:       email,
		Password:    string(passwordBytes),
		Role:        *role,
		IsSuperuser: *officeID == "",
	}
	if name == "" || email == "" {
		log.Fatal().Msg("Name and email are required")
	}

	user, err := services.CreateUser(db.DB, tenant.Unrestricted(), in)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Println()
	fmt.Println("✓ User created successfully!")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  Email: %s\n", user.Email)
	if user.IsSuperuser {
		fmt.Println("  Superuser: yes")
	} else {
		fmt.Printf("  Office: %s (%s)\n", *user.OfficeID, user.Role)
	}
	fmt.Println()
	fmt.Printf("Obtain a token with POST %s/api/auth/token\n", cfg.AppURL)
}
