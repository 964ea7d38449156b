package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/yigit/seatallot/internal/bootstrap"
	"github.com/yigit/seatallot/internal/pkg/auth"
	"github.com/yigit/seatallot/internal/pkg/logger"
	"github.com/yigit/seatallot/internal/server"
)

// @title Seat Allotment API
// @version 1.0
// @description Round-based seat allocation with applicant LOCK/FLOAT decisions

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	var configPath string
	var hashPassword bool

	flagSet := pflag.NewFlagSet("seatallot", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", bootstrap.DefaultConfigPath, "path to the YAML config file")
	flagSet.BoolVar(&hashPassword, "hash-password", false, "read an admin password from stdin, print its bcrypt hash and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if hashPassword {
		if err := printPasswordHash(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	srv, err := server.NewServer(configPath)
	if err != nil {
		// Error details are logged within NewServer's setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}

// printPasswordHash produces a value for ADMIN_PASSWORD_HASH
func printPasswordHash() error {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read password: %w", err)
	}
	hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
