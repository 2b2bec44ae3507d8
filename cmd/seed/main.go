package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/liherfashion/inventory-admin/config"
	"github.com/liherfashion/inventory-admin/internal/app/model"
	"github.com/liherfashion/inventory-admin/internal/app/repository"
	"github.com/liherfashion/inventory-admin/internal/app/service"
	"github.com/liherfashion/inventory-admin/internal/db"
	"github.com/liherfashion/inventory-admin/pkg/logger"
	"github.com/liherfashion/inventory-admin/pkg/util"
)

func main() {
	catalogFile := flag.String("catalog", "", "xlsx workbook with Sizes, Colors and Categories sheets")
	adminEmail := flag.String("admin-email", "", "create an admin user with this email")
	adminPassword := flag.String("admin-password", "", "password for the admin user")
	printToken := flag.Bool("token", false, "print an access token for the admin user")
	flag.Parse()

	if *catalogFile == "" && *adminEmail == "" {
		fmt.Fprintln(os.Stderr, "Usage: go run cmd/seed/main.go [-catalog catalog.xlsx] [-admin-email e -admin-password p [-token]]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "warn", Format: "console", EnableColor: true})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	database := db.GetDB()
	catalog := service.NewCatalogService(repository.NewCatalogRepository(database))

	if *catalogFile != "" {
		importCatalog(*catalogFile, service.NewExportService(repository.NewVariantRepository(database), catalog))
	}

	if *adminEmail != "" {
		hasher, err := util.NewPasswordHasher(cfg.Password.BcryptCost)
		if err != nil {
			log.Fatal("Invalid password hashing cost:", err)
		}
		users := service.NewUserService(repository.NewUserRepository(database), hasher)
		user := createAdmin(users, *adminEmail, *adminPassword)
		if *printToken {
			token, claims, err := util.GenerateAccessToken(user.ID, user.Email, string(user.Role), cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
			if err != nil {
				log.Fatal("Failed to issue token:", err)
			}
			fmt.Printf("Access token (expires %s):\n%s\n", claims.ExpiresAt.Time.Format("2006-01-02 15:04"), token)
		}
	}
}

func importCatalog(path string, exporter service.ExportService) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal("Failed to open workbook:", err)
	}
	defer f.Close()

	fmt.Printf("Reading XLSX file: %s\n", path)
	result, err := exporter.ImportCatalog(f)
	if err != nil {
		log.Fatal("Failed to import catalog:", err)
	}

	fmt.Println("\n=== Catalog import ===")
	fmt.Printf("Sizes:      %d\n", result.Sizes)
	fmt.Printf("Colors:     %d\n", result.Colors)
	fmt.Printf("Categories: %d\n", result.Categories)
	fmt.Printf("Skipped (already present): %d\n", result.Skipped)
}

func createAdmin(users service.UserService, email, password string) *model.User {
	user, err := users.CreateUser(service.UserInput{
		Email:    email,
		Password: password,
		Role:     model.RoleAdmin,
		Sections: model.AllSections,
	})
	if errors.Is(err, service.ErrEmailAlreadyExists) {
		fmt.Printf("User %s already exists, skipping\n", email)
		existing, total, listErr := users.ListUsers(service.UserListOptions{Search: email, Limit: 1})
		if listErr != nil || total == 0 {
			log.Fatal("Failed to load existing user:", listErr)
		}
		return &existing[0]
	}
	if err != nil {
		log.Fatal("Failed to create admin:", err)
	}

	fmt.Printf("Created admin user %s (id %d)\n", user.Email, user.ID)
	return user
}
