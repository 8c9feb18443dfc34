package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/database"
	"github.com/fluentpath/detprep-backend/internal/logger"
	"github.com/fluentpath/detprep-backend/internal/model"
	"github.com/fluentpath/detprep-backend/internal/repository"
	"github.com/fluentpath/detprep-backend/internal/service"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg, nil, userRepo)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Learner Account ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Target score (optional)
	fmt.Print("Enter Target Score 10-160 (default 0 = none): ")
	targetStr, _ := reader.ReadString('\n')
	targetStr = strings.TrimSpace(targetStr)
	target := 0
	if targetStr != "" {
		t, err := strconv.Atoi(targetStr)
		if err != nil || t < 10 || t > 160 {
			fmt.Println("Error: Target score must be a number between 10 and 160")
			return
		}
		target = t
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	user, err := authService.Register(ctx, &model.RegisterRequest{
		Email:       email,
		Name:        name,
		Password:    password,
		TargetScore: target,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! Learner '%s' (%s) created with ID: %d\n", user.Name, user.Email, user.ID)
}
