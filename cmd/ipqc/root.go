package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/solarqc/ipqc-audit/pkg/catalog"
)

// app carries the resolved configuration for one command invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "ipqc",
		Short: "CLI for IPQC audit checklists",
		Long: `ipqc works with in-process quality control checklists for solar module lines.

The catalog and classify commands run offline against the embedded catalog or
a catalog file. The session, journal and health commands talk to an
ipqc-server.

Flags can also be set in $HOME/.ipqc.yaml or as IPQC_* environment variables
(IPQC_SERVER, IPQC_OUTPUT, IPQC_OPERATOR, IPQC_STATION, IPQC_CATALOG_PATH).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default $HOME/.ipqc.yaml)")
	pf.String("server", "http://localhost:8080", "ipqc-server URL")
	pf.StringP("output", "o", "table", "Output format: table, json, yaml")
	pf.String("operator", "", "Operator name sent with session requests")
	pf.String("station", "", "Station name sent with session requests")
	pf.String("catalog", "", "Catalog file for offline commands (default: embedded catalog)")

	for _, key := range []string{"server", "output", "operator", "station", "catalog"} {
		_ = a.v.BindPFlag(key, pf.Lookup(key))
	}
	_ = a.v.BindEnv("catalog", "IPQC_CATALOG_PATH")

	root.AddCommand(
		newCatalogCmd(a),
		newClassifyCmd(a),
		newSessionCmd(a),
		newJournalCmd(a),
		newHealthCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	a.v.SetEnvPrefix("IPQC")
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		a.v.AddConfigPath(home)
		a.v.SetConfigName(".ipqc")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && a.cfgFile == "" {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func (a *app) format() string {
	return a.v.GetString("output")
}

func (a *app) structured() bool {
	f := a.format()
	return f == "json" || f == "yaml"
}

func (a *app) client() *ipqcClient {
	return &ipqcClient{
		baseURL:  a.v.GetString("server"),
		operator: a.v.GetString("operator"),
		station:  a.v.GetString("station"),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// loadCatalog opens the catalog file named by --catalog, or the embedded
// catalog.
func (a *app) loadCatalog() (*catalog.Catalog, error) {
	cfg := catalog.DefaultCatalogConfig()
	cfg.Path = a.v.GetString("catalog")
	return cfg.Open()
}
