package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/waveground/backend/internal/database"
	"github.com/waveground/backend/internal/models"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Parse command-line flags
	username := flag.String("username", "", "Username for the admin account")
	password := flag.String("password", "", "Password for the admin account")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Println("Usage: go run cmd/create-admin/main.go -username=mod -password=...")
		return
	}
	if len(*password) < 12 {
		log.Fatal("❌ Password must be at least 12 characters")
	}

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	var existing models.AdminUser
	err := database.DB.Where("username = ?", *username).First(&existing).Error
	if err == nil {
		fmt.Printf("⚠️  Admin %s already exists\n", *username)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("❌ Database error: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	admin := models.AdminUser{
		Username:     *username,
		PasswordHash: string(hash),
	}
	if err := database.DB.Create(&admin).Error; err != nil {
		log.Fatalf("❌ Failed to create admin: %v", err)
	}

	fmt.Printf("✅ Admin %s created. Enable 2FA via /api/v1/admin/2fa/setup after first login.\n", *username)
}
