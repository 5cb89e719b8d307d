package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fintrack/internal/chat"
	"fintrack/internal/chatlog"
	"fintrack/internal/config"
	"fintrack/internal/datadir"
	"fintrack/internal/gateway"
	"fintrack/internal/maintenance"
	internalssh "fintrack/internal/ssh"
	"fintrack/internal/version"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	cfgFile string
	verbose bool
	port    int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fintrack",
	Short: "fintrack - answers personal finance questions from a reference document",
	Long: `fintrack indexes a reference document of financial advice and answers
questions grounded in it, refusing when the document does not cover them.

It can run as an HTTP/WebSocket server, answer a single question from the
command line, or open a terminal chat client against a running server.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// serveCmd represents the server command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fintrack server",
	Long: `Start the HTTP server. The reference document is indexed in the
background; /ready reports 200 once questions can be answered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "fintrack %s\n", version.Full())
		buildInfo := version.GetBuildInfo()

		if buildInfo.GitCommit != "unknown" {
			fmt.Fprintf(out, "Git commit: %s\n", buildInfo.GitCommit)
		}
		if version.GitTag != "" {
			fmt.Fprintf(out, "Git tag: %s\n", version.GitTag)
		}
		if buildInfo.GitDirty {
			fmt.Fprintf(out, "Git status: dirty (uncommitted changes)\n")
		}
		if buildInfo.BuildDate != "unknown" {
			fmt.Fprintf(out, "Build date: %s\n", buildInfo.BuildDate)
		}
		fmt.Fprintf(out, "Go version: %s\n", buildInfo.GoVersion)

		return nil
	},
}

func init() {
	cobra.OnInitialize(initLogging)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.json", "config file path (.json, .yaml or .yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chunksCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(chatlogCmd)
	rootCmd.AddCommand(sshKeysCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogging() {
	if verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("Verbose logging enabled")
	}
}

// loadConfig resolves the data directory, loads .env files from it and
// then reads the config file so ${ENV_VAR} placeholders can be expanded.
func loadConfig() (*config.Config, *datadir.DataDir, error) {
	dd, err := datadir.New("")
	if err != nil {
		log.Printf("WARNING: Could not resolve data directory: %v", err)
	} else if err := datadir.LoadEnv(dd.Root()); err != nil {
		log.Printf("WARNING: Failed to load .env files: %v", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// A data_dir in the config file takes effect once the config is known.
	if cfg.DataDir != "" {
		dd, err = datadir.New(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
	}
	return cfg, dd, nil
}

// openChatLog opens the configured chat log, placing relative sqlite
// paths under the data directory.
func openChatLog(cfg *config.Config, dd *datadir.DataDir) (chatlog.Store, error) {
	logCfg := cfg.ChatLog
	if !logCfg.Enabled {
		return nil, nil
	}
	dsn, err := chatLogDSN(logCfg, dd)
	if err != nil {
		return nil, err
	}
	logCfg.DSN = dsn
	return chatlog.Open(logCfg)
}

func chatLogDSN(cfg config.ChatLogConfig, dd *datadir.DataDir) (string, error) {
	if cfg.Driver == "postgres" || dd == nil {
		return cfg.DSN, nil
	}
	if err := dd.EnsureDirs(); err != nil {
		return "", err
	}
	return dd.DatabasePath(cfg.DSN), nil
}

func runServer(cmd *cobra.Command) error {
	cfg, dd, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}

	store, err := openChatLog(cfg, dd)
	if err != nil {
		return fmt.Errorf("failed to open chat log: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := chat.New(ctx, cfg, store)
	if err != nil {
		return fmt.Errorf("failed to create chat service: %w", err)
	}

	scheduler, err := maintenance.ForChatLog(cfg.ChatLog, store, log.Default())
	if err != nil {
		return fmt.Errorf("failed to create maintenance scheduler: %w", err)
	}

	gw := gateway.New(cfg, svc, scheduler)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.SSH.Enabled {
		if dd == nil {
			return fmt.Errorf("ssh server needs a data directory for its keys")
		}
		sshCfg := internalssh.ResolvePaths(cfg.SSH, dd)
		server, err := internalssh.NewServer(internalssh.Config{
			ListenAddr:         sshCfg.ListenAddr,
			HostKeyPath:        sshCfg.HostKeyPath,
			AuthorizedKeysPath: sshCfg.AuthorizedKeysPath,
			Asker:              svc,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := internalssh.Run(ctx, server); err != nil {
				return fmt.Errorf("ssh server failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		log.Printf("Starting fintrack %s on port %d", version.Full(), cfg.Port)
		if err := gw.Start(ctx); err != nil {
			return fmt.Errorf("gateway failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("Server stopped gracefully")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
