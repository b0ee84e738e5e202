package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/uniken-public/codelab-go/internal/config"
	"github.com/uniken-public/codelab-go/internal/database"
	"github.com/uniken-public/codelab-go/internal/logging"
	"github.com/uniken-public/codelab-go/internal/sdk"
	"github.com/uniken-public/codelab-go/internal/sdk/sim"
	"github.com/uniken-public/codelab-go/internal/tui"
	"github.com/uniken-public/codelab-go/internal/tui/screens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// First run: write the effective defaults so there is a file to edit.
	if _, err := os.Stat(config.Path()); os.IsNotExist(err) {
		if err := config.Save(cfg); err != nil {
			log.Fatalf("write starter config: %v", err)
		}
	}

	logger, err := logging.New(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	client := sdk.NewClient()
	engine := sim.New(
		sim.Config{
			DemoUser:            cfg.Engine.DemoUser,
			UserAttempts:        cfg.Engine.UserAttempts,
			ActivationAttempts:  cfg.Engine.ActivationAttempts,
			ActivationTTL:       time.Duration(cfg.Engine.ActivationTTLMin) * time.Minute,
			PasswordAttempts:    cfg.Engine.PasswordAttempts,
			Cooldown:            time.Duration(cfg.Engine.CooldownSeconds) * time.Second,
			PasswordTTL:         time.Duration(cfg.Engine.PasswordTTLDays) * 24 * time.Hour,
			SessionTTL:          time.Duration(cfg.Engine.SessionTTLMin) * time.Minute,
			MinPasswordDistance: cfg.Engine.MinPasswordDistance,
			SeedNotifications:   cfg.Engine.SeedNotifications,
			SimulateThreats:     cfg.Engine.SimulateThreats,
		},
		client,
		db,
		logger.Named("sim"),
	)
	if err := engine.Start(); err != nil {
		log.Fatalf("engine: %v", err)
	}
	defer engine.Close()
	client.Bind(engine)

	bridge := tui.NewBridge(client)
	bridge.Profile = sdk.ConnectionProfile{
		Host:      cfg.Profile.Host,
		Port:      cfg.Profile.Port,
		ProfileID: cfg.Profile.ProfileID,
	}
	bridge.InitTimeout = time.Duration(cfg.UI.InitTimeoutSeconds) * time.Second

	p := tea.NewProgram(
		tui.NewModel(bridge, screens.NewSplash(bridge)),
		tea.WithAltScreen(),
	)
	bridge.Bind(p.Send)

	logger.Info("starting", zap.String("profile", cfg.Profile.ProfileID))
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
	client.Teardown()
}
