package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"inkwell/app/config"
	"inkwell/app/repositories"
)

// badgerConfig loads the configuration for the maintenance commands, which
// only apply to the embedded store.
func (c *CLI) badgerConfig() (*config.Config, bool) {
	cfg, ok := c.config()
	if !ok {
		return nil, false
	}
	if cfg.Store != config.StoreBadger {
		c.failf("Error: database maintenance needs %sSTORE=%s (configured: %s)\n", config.Prefix, config.StoreBadger, cfg.Store)
		return nil, false
	}
	return cfg, true
}

// initDB creates a new empty database
func (c *CLI) initDB(args []string) int {
	cfg, ok := c.badgerConfig()
	if !ok {
		return 1
	}
	if _, err := os.Stat(cfg.BadgerDir); err == nil {
		c.warnf("Database already exists. Use 'clean' first if you want to reinitialize.\n")
		return 0
	}

	db, err := repositories.OpenBadger(cfg.BadgerDir)
	if err != nil {
		c.failf("Failed to initialize database: %v\n", err)
		return 1
	}
	defer db.Close()

	c.okf("Database initialized successfully at %s\n", cfg.BadgerDir)
	return 0
}

// clean removes the database
func (c *CLI) clean(args []string) int {
	_, yes := hasFlag(args, "--yes", "-y")
	cfg, ok := c.badgerConfig()
	if !ok {
		return 1
	}
	if _, err := os.Stat(cfg.BadgerDir); os.IsNotExist(err) {
		fmt.Fprintln(c.out, "Database is already clean (does not exist)")
		return 0
	}

	if !yes && !c.confirm("Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Fprintln(c.out, "Operation cancelled")
		return 0
	}
	if err := os.RemoveAll(cfg.BadgerDir); err != nil {
		c.failf("Failed to clean database: %v\n", err)
		return 1
	}
	c.okf("Database cleaned successfully\n")
	return 0
}

// backup writes a full backup, by default to backups/ next to the database.
func (c *CLI) backup(args []string) int {
	cfg, ok := c.badgerConfig()
	if !ok {
		return 1
	}
	if _, err := os.Stat(cfg.BadgerDir); os.IsNotExist(err) {
		fmt.Fprintln(c.out, "No database exists to backup")
		return 0
	}

	backupFile := filepath.Join(filepath.Dir(filepath.Clean(cfg.BadgerDir)), "backups",
		fmt.Sprintf("backup_%d.db", c.now().Unix()))
	if len(args) > 0 {
		backupFile = args[0]
	}
	if err := os.MkdirAll(filepath.Dir(backupFile), 0o755); err != nil {
		c.failf("Failed to create backup directory: %v\n", err)
		return 1
	}

	db, err := repositories.OpenBadger(cfg.BadgerDir)
	if err != nil {
		c.failf("Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	f, err := os.Create(backupFile)
	if err != nil {
		c.failf("Failed to create backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		c.failf("Failed to backup database: %v\n", err)
		return 1
	}
	c.okf("Database backed up successfully to %s\n", backupFile)
	return 0
}

// restore replaces the database with the contents of a backup
func (c *CLI) restore(args []string) int {
	args, yes := hasFlag(args, "--yes", "-y")
	if len(args) < 1 {
		c.failf("Error: backup file path required for restore\n")
		return 1
	}
	backupFile := args[0]

	cfg, ok := c.badgerConfig()
	if !ok {
		return 1
	}
	if _, err := os.Stat(backupFile); os.IsNotExist(err) {
		c.failf("Backup file does not exist: %s\n", backupFile)
		return 1
	}

	if _, err := os.Stat(cfg.BadgerDir); err == nil {
		if !yes && !c.confirm("Existing database found. Do you want to replace it?") {
			fmt.Fprintln(c.out, "Operation cancelled")
			return 0
		}
		if err := os.RemoveAll(cfg.BadgerDir); err != nil {
			c.failf("Failed to remove existing database: %v\n", err)
			return 1
		}
	}

	db, err := repositories.OpenBadger(cfg.BadgerDir)
	if err != nil {
		c.failf("Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		c.failf("Failed to open backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if err := db.Load(f, 4); err != nil {
		c.failf("Failed to restore database: %v\n", err)
		return 1
	}
	c.okf("Database restored successfully\n")
	return 0
}
