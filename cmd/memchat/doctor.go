package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"memchat/internal/config"
	"memchat/internal/domain"
	"memchat/internal/provider"
	"memchat/internal/storage"
)

const doctorScratchKey = "memchat-doctor-scratch"

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your memchat installation",
		Long: `Verifies that memchat's configuration, model credential, session storage
and reference table are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("memchat doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				failed++
				fmt.Printf("\nRun 'memchat init' to create a default configuration.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return fmt.Errorf("%d check(s) failed", failed)
			}
			printPass("Config validation", fmt.Sprintf("variant %s, provider %s", cfg.General.Variant, cfg.Provider.Name))
			passed++

			// 3. Model credential
			switch status, detail := checkProvider(cfg); status {
			case checkPass:
				printPass("Provider", detail)
				passed++
			case checkWarn:
				printWarn("Credential", detail)
				warned++
			default:
				printFail("Provider", detail)
				failed++
			}

			// 4. Session storage round-trip
			if err := checkStorage(cfg.Storage); err != nil {
				printFail("Session storage", err.Error())
				failed++
			} else {
				printPass("Session storage", storageDetail(cfg.Storage))
				passed++
			}

			// 5. Reference table
			if cfg.Telecom.ReferencesFile != "" || cfg.General.Variant == config.VariantTelecom {
				refs, err := loadReferences(cfg)
				if err != nil {
					printFail("Reference table", err.Error())
					failed++
				} else {
					printPass("Reference table", fmt.Sprintf("%d categories", len(refs.Categories)))
					passed++
				}
			}

			// 6. Metrics port
			if cfg.Metrics.Enabled {
				if err := checkAddr(cfg.Metrics.Addr); err != nil {
					printWarn("Metrics addr", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Addr, err))
					warned++
				} else {
					printPass("Metrics addr", cfg.Metrics.Addr+" available")
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running memchat.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nmemchat should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! memchat is ready to run.\n")
			}
			return nil
		},
	}
}

type checkStatus int

const (
	checkPass checkStatus = iota
	checkWarn
	checkFail
)

// checkProvider builds the provider with the same key resolution chat uses.
func checkProvider(cfg *config.Config) (checkStatus, string) {
	resolved := *cfg
	applyCredential(&resolved, "")
	p, err := provider.NewFromConfig(resolved.Provider, time.Second, logger)
	if err != nil {
		return checkFail, err.Error()
	}
	if !p.HasCredential() {
		return checkWarn, "no API key configured; set " + credentialEnv + " or pass --api-key to chat"
	}
	return checkPass, fmt.Sprintf("%s (%s)", p.Name(), resolved.Provider.Model)
}

// checkStorage writes, reads back and deletes a scratch blob.
func checkStorage(cfg config.StorageConfig) error {
	blobs, err := storage.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer blobs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return roundTrip(ctx, blobs)
}

func roundTrip(ctx context.Context, blobs domain.BlobStore) error {
	want := []byte(`[]`)
	if err := blobs.Put(ctx, doctorScratchKey, want); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	got, found, err := blobs.Get(ctx, doctorScratchKey)
	if err != nil {
		return fmt.Errorf("not readable: %w", err)
	}
	if !found || string(got) != string(want) {
		return fmt.Errorf("read back %q, want %q", got, want)
	}
	if err := blobs.Delete(ctx, doctorScratchKey); err != nil {
		return fmt.Errorf("cannot remove scratch blob: %w", err)
	}
	return nil
}

func storageDetail(cfg config.StorageConfig) string {
	switch cfg.Backend {
	case config.BackendSQLite:
		return "sqlite " + cfg.DBPath
	case config.BackendRedis:
		return "redis " + cfg.Redis.Addr
	default:
		return "file " + cfg.Dir
	}
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
