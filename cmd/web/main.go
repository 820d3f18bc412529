package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/de-tools/access-atlas/pkg/store/duckdb"
	duckdbfindings "github.com/de-tools/access-atlas/pkg/store/duckdb/findings"

	"github.com/de-tools/access-atlas/pkg/server"
	"github.com/de-tools/access-atlas/pkg/server/metrics"
	"github.com/de-tools/access-atlas/pkg/services/registry"
	"github.com/de-tools/access-atlas/pkg/services/review"
	"github.com/de-tools/access-atlas/pkg/services/source"
	"github.com/de-tools/access-atlas/pkg/services/source/awsiam"
	"github.com/de-tools/access-atlas/pkg/services/source/databricks"
	"github.com/de-tools/access-atlas/pkg/services/source/file"
	"github.com/de-tools/access-atlas/pkg/services/source/snowflake"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	profilesPath string
	configPath   string
	rulesPath    string
	addr         string
	dbPath       string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Access Atlas",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&profilesPath, "profiles", "p", registry.DefaultPath(),
		"Path to the connection profiles file (default is $HOME/.access-atlas/profiles.ini)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to the review configuration file")
	rootCmd.Flags().StringVar(&rulesPath, "rules", "",
		"Path to a custom factor rules file")
	rootCmd.Flags().StringVar(&addr, "addr", ":8080",
		"Address to listen on")
	rootCmd.Flags().StringVar(&dbPath, "db", "access-atlas.db",
		"Path to the DuckDB file holding run history")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	profiles, err := registry.NewProfileRegistry(profilesPath)
	if err != nil {
		return fmt.Errorf("failed to load profiles from %s: %w", profilesPath, err)
	}

	cfg, err := review.LoadConfig(configPath)
	if err != nil {
		return err
	}

	factors, err := review.NewRegistry(review.BuiltinFactors()...)
	if err != nil {
		return err
	}
	if rulesPath != "" {
		rules, err := review.LoadRules(rulesPath)
		if err != nil {
			return err
		}
		if err := rules.Register(factors); err != nil {
			return err
		}
	}

	sources := source.NewRegistry()
	factories := map[string]source.Factory{
		awsiam.Platform:     awsiam.Factory,
		databricks.Platform: databricks.Factory,
		snowflake.Platform:  snowflake.Factory,
		file.Platform:       file.Factory,
	}
	for platform, factory := range factories {
		if err := sources.Register(platform, factory); err != nil {
			return fmt.Errorf("failed to register platform %s: %w", platform, err)
		}
	}

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: dbPath})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}

	history, err := duckdbfindings.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create findings store: %w", err)
	}

	auditor := review.NewAuditor(profiles, sources, review.NewService(factors), cfg, history)

	logger.Info().Msgf("Profiles found at `%s` successfully loaded.", profilesPath)
	configured, _ := profiles.GetProfiles()
	for _, profile := range configured {
		logger.Info().Msgf("Name: `%s`, Platform: `%s`", profile.Name, profile.Platform)
	}

	serverAddr := addr
	if host, port := os.Getenv("SERVER_HOST"), os.Getenv("SERVER_PORT"); host != "" && port != "" {
		serverAddr = net.JoinHostPort(host, port)
	}

	logger.Info().Msgf("starting server on %s", serverAddr)

	api := server.NewWebAPI(server.Config{
		Addr:            serverAddr,
		ShutdownTimeout: 10 * time.Second,
		Dependencies: server.Dependencies{
			Auditor: auditor,
			History: history,
			Metrics: metrics.New(),
			Logger:  logger,
		},
	})

	return api.Start()
}
