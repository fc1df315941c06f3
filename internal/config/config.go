// Package config loads n50osm's runtime configuration through viper,
// following the same config-file-plus-env-prefix-plus-flag-binding layout
// as the teacher pack's watercolormap CLI
// (internal/cmd/root.go initConfig).
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/n50osm/n50osm/internal/transport"
)

// Categories are the seven published N50 data categories (spec.md §6,
// original_source/n50osm.py data_categories).
var Categories = []string{
	"AdministrativeOmrader",
	"Arealdekke",
	"BygningerOgAnlegg",
	"Hoyde",
	"Restriksjonsomrader",
	"Samferdsel",
	"Stedsnavn",
}

// EnvPrefix is the environment-variable prefix viper binds against
// (N50OSM_LOG_LEVEL, N50OSM_KOMMUNEINFO_BASE_URL, ...).
const EnvPrefix = "N50OSM"

// Config is the resolved runtime configuration.
type Config struct {
	LogLevel string
	Transport transport.Config
}

// Default returns the configuration baked in before any config file or
// environment override is applied, pointing at the services spec.md §6
// names.
func Default() Config {
	return Config{
		LogLevel: "info",
		Transport: transport.Config{
			KommuneinfoBaseURL: "https://ws.geonorge.no",
			N50BaseURL:         "https://nedlasting.geonorge.no/geonorge",
			BuildingTypesURL:   "https://raw.githubusercontent.com/osmno/n50osm/main/building_types.csv",
			SSRNamesBaseURL:    "https://osmno.github.io",
			NVELakesBaseURL:    "https://nve.geodataonline.no/arcgis/rest/services",
			ElevationBaseURL:   "https://ws.geonorge.no",
			RequestTimeout:     30 * time.Second,
		},
	}
}

// Load reads n50osm.yaml (if present) and environment overrides into a
// Config seeded from Default(), mirroring watercolormap's
// viper.SetEnvPrefix/AutomaticEnv/ReadInConfig sequence.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")
	v.SetConfigName("n50osm")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
	}

	if v.IsSet("log-level") {
		cfg.LogLevel = v.GetString("log-level")
	}
	if v.IsSet("kommuneinfo-base-url") {
		cfg.Transport.KommuneinfoBaseURL = v.GetString("kommuneinfo-base-url")
	}
	if v.IsSet("n50-base-url") {
		cfg.Transport.N50BaseURL = v.GetString("n50-base-url")
	}
	if v.IsSet("building-types-url") {
		cfg.Transport.BuildingTypesURL = v.GetString("building-types-url")
	}
	if v.IsSet("ssr-names-base-url") {
		cfg.Transport.SSRNamesBaseURL = v.GetString("ssr-names-base-url")
	}
	if v.IsSet("nve-lakes-base-url") {
		cfg.Transport.NVELakesBaseURL = v.GetString("nve-lakes-base-url")
	}
	if v.IsSet("elevation-base-url") {
		cfg.Transport.ElevationBaseURL = v.GetString("elevation-base-url")
	}
	return cfg, nil
}

// MatchCategory prefix-matches a query against the known categories,
// case-insensitively, per spec.md §6 "<category> (prefix-match against
// the seven known categories)".
func MatchCategory(query string) (string, bool) {
	q := toLower(query)
	for _, c := range Categories {
		if len(q) <= len(c) && toLower(c[:len(q)]) == q {
			return c, true
		}
	}
	return "", false
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
