package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"memchat/internal/agent"
	"memchat/internal/channel"
	"memchat/internal/config"
	"memchat/internal/memory"
	"memchat/internal/metrics"
	"memchat/internal/provider"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
	logLevel   string
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	agent.SetVersion(version)

	root := &cobra.Command{
		Use:     "memchat",
		Short:   "memchat: chat front-end with per-user memory",
		Long:    "memchat sends your messages to a hosted language model together with recent history and what it remembers about you.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.memchat/config.json)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override general.logLevel (debug, info, warn, error)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(sessionsCmd())
	root.AddCommand(showCmd())
	root.AddCommand(referencesCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
			cfg := config.Defaults()
			cfg.Provider.APIKey = config.APIKeyPlaceholder
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			fmt.Printf("Config written to %s\nSet GEMINI_API_KEY or edit provider.apiKey, then run: memchat chat --user <name>\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return config.ExpandPath(configPath)
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file, falling back to defaults when it does
// not exist. An invalid file is an error.
func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if _, statErr := os.Stat(cfgPath); errors.Is(statErr, os.ErrNotExist) {
			logger.Warn("config not found, using defaults", "path", cfgPath)
			cfg = config.Defaults()
		} else {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.General.LogLevel = logLevel
	}
	logger = newLogger(cfg.General, os.Stderr)
	return cfg, nil
}

type chatOptions struct {
	user    string
	session string
	apiKey  string
	variant string
}

func chatCmd() *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(opts)
		},
	}
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "user id (required)")
	cmd.Flags().StringVarP(&opts.session, "session", "s", "", "resume a saved session id")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "model API key (default: provider.apiKey or $GEMINI_API_KEY)")
	cmd.Flags().StringVar(&opts.variant, "variant", "", "general or telecom (default: general.variant)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runChat(opts chatOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCredential(cfg, opts.apiKey)
	if opts.variant != "" {
		cfg.General.Variant = opts.variant
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	// Graceful shutdown on signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		srv := serveMetrics(cfg.Metrics, m)
		defer shutdownMetrics(srv)
	}

	blobs, sessions, err := openSessions(cfg)
	if err != nil {
		return err
	}
	defer blobs.Close()

	refs, err := loadReferences(cfg)
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.General.ModelTimeoutSeconds) * time.Second
	prov, err := provider.NewFromConfig(cfg.Provider, timeout, logger)
	if err != nil {
		return err
	}

	conv, err := agent.NewConversation(agent.ConversationConfig{
		UserID:        opts.user,
		SessionID:     opts.session,
		Variant:       cfg.General.Variant,
		Provider:      prov,
		Generation:    cfg.Provider.GenerationConfig(),
		Sessions:      sessions,
		Ledger:        memory.NewLedger(memory.LedgerConfig{MaxEntries: cfg.General.MemoryCap, Logger: logger}),
		References:    refs,
		Locks:         agent.NewUserLocks(),
		HistoryWindow: cfg.General.HistoryWindow,
		MemoryWindow:  cfg.General.MemoryWindow,
		ModelTimeout:  timeout,
		Metrics:       m,
		Logger:        logger,
	})
	if errors.Is(err, agent.ErrMissingCredential) {
		return fmt.Errorf("%w: pass --api-key, set GEMINI_API_KEY, or set provider.apiKey in %s", err, resolveConfigPath())
	}
	if err != nil {
		return err
	}

	if opts.session != "" {
		if err := conv.Load(ctx, opts.session); err != nil {
			return err
		}
	}

	cli := channel.NewCLI(channel.CLIConfig{
		Conversation: conv,
		Logger:       logger,
		Spinner:      isTerminal(os.Stdout),
	})
	return cli.Start(ctx)
}

func sessionsCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List a user's saved sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			blobs, sessions, err := openSessions(cfg)
			if err != nil {
				return err
			}
			defer blobs.Close()

			ids, err := sessions.ListSessions(cmd.Context(), user)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("No saved sessions.")
				return nil
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func showCmd() *cobra.Command {
	var user, sessionID string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a saved transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			blobs, sessions, err := openSessions(cfg)
			if err != nil {
				return err
			}
			defer blobs.Close()

			msgs, err := sessions.Load(cmd.Context(), user, sessionID)
			if err != nil {
				return err
			}
			return writeTranscript(os.Stdout, sessionID, msgs, asJSON)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id (required)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored JSON")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func referencesCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "references",
		Short: "Print the telecom reference table as YAML",
		Long:  "Prints the active reference table. The output can be edited and set as telecom.referencesFile.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if file != "" {
				cfg.Telecom.ReferencesFile = config.ExpandPath(file)
			}
			refs, err := loadReferences(cfg)
			if err != nil {
				return err
			}
			data, err := refs.Marshal()
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "reference file to load instead of telecom.referencesFile")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, err := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
