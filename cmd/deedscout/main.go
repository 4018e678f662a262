package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/biddeed/deedscout/config"
	"github.com/biddeed/deedscout/internal/server"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "deedscout",
		Short: "Foreclosure auction research service",
	}
	root.AddCommand(serveCMD(), discoverCMD(), migrateCMD())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return server.Run(cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config/config.json)")
	return cmd
}

func discoverCMD() *cobra.Command {
	var cfgPath string
	var sources []string
	cmd := &cobra.Command{
		Use:   "discover <parcel-id>",
		Short: "Run lien discovery for one parcel and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			s, err := server.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			defer s.Store.Close()

			report := s.Discover(cmd.Context(), args[0], sources)
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config/config.json)")
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "sources to query (default all registered)")
	return cmd
}

func migrateCMD() *cobra.Command {
	var cfgPath, dir, direction string
	var steps int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return server.Migrate(dir, cfg.Storage.Postgres.DSN, direction, steps)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config/config.json)")
	cmd.Flags().StringVar(&dir, "dir", "file://migrations", "migrations source")
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return cmd
}
