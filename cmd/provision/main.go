// Command provision registers a device for an existing user and prints its
// access key. The key is not stored in plaintext and cannot be shown again.
//
//	provision -owner a1b2c3d4 -name "North pier" -emoji 🌊 [-location "North beach"]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/nextgendevs/ng-backend/internal/auth"
	"github.com/nextgendevs/ng-backend/internal/config"
	"github.com/nextgendevs/ng-backend/internal/database"
	"github.com/nextgendevs/ng-backend/internal/logging"
	"github.com/nextgendevs/ng-backend/internal/metrics"
	"github.com/nextgendevs/ng-backend/internal/services"
	"github.com/nextgendevs/ng-backend/pkg/utils"
)

type options struct {
	owner    string
	name     string
	emoji    string
	location *string
}

func parseArgs(args []string, output io.Writer) (options, error) {
	var (
		opts     options
		location string
	)

	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.owner, "owner", "", "user id of the device owner (required)")
	fs.StringVar(&opts.name, "name", "", "device name, unique per owner (required)")
	fs.StringVar(&opts.emoji, "emoji", "🌊", "device emoji")
	fs.StringVar(&location, "location", "", "human readable location used by the nearest lookup")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.owner == "" || opts.name == "" {
		fs.Usage()
		return options{}, errors.New("-owner and -name are required")
	}
	if location != "" {
		opts.location = &location
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "provision:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := database.OpenPostgres(ctx, cfg.PostgresURI, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	users := database.NewUserRepository(db)
	if _, err := users.GetByID(ctx, opts.owner); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("user %s does not exist", opts.owner)
		}
		return err
	}

	key, err := utils.ParseEncryptionKey(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	cipher, err := utils.NewCipher(key)
	if err != nil {
		return err
	}

	svc := services.NewDeviceService(database.NewDeviceRepository(db), cipher, auth.NewSigner(cfg.JWTSecret), nil, metrics.New(), logger)
	device, accessKey, err := svc.Provision(ctx, opts.owner, opts.name, opts.emoji, opts.location)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "deviceId:  %s\naccessKey: %s\n", device.DeviceID, accessKey)
	return nil
}
