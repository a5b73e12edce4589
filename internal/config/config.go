package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("specbridge version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server          ServerConfig   `mapstructure:"server"`
	Logging         LoggingConfig  `mapstructure:"logging"`
	Convert         ConvertConfig  `mapstructure:"convert"`
	Generate        GenerateConfig `mapstructure:"generate"`
	SpecFile        string         `mapstructure:"spec_file"`
	AdjustmentsFile string         `mapstructure:"adjustments_file"`
}

// ConvertConfig drives the parsing façade.
type ConvertConfig struct {
	// Format skips detection when set (openapi|asyncapi|graphql|grpc|postman|insomnia|har).
	Format            string   `mapstructure:"format"`
	GroupBy           string   `mapstructure:"group_by"` // tags|paths|none
	Naming            string   `mapstructure:"naming"`   // snake_case|camelCase
	NamePrefix        string   `mapstructure:"name_prefix"`
	IncludeExamples   bool     `mapstructure:"include_examples"`
	ResolveRefs       bool     `mapstructure:"resolve_refs"`
	IncludeDeprecated bool     `mapstructure:"include_deprecated"`
	Tags              []string `mapstructure:"tags"`
	Methods           []string `mapstructure:"methods"`
	PathGlobs         []string `mapstructure:"path_globs"`
}

// GenerateConfig drives the code-generation backend.
type GenerateConfig struct {
	Target        string `mapstructure:"target"` // typescript|javascript
	OutputDir     string `mapstructure:"output_dir"`
	BaseURL       string `mapstructure:"base_url"`
	AuthType      string `mapstructure:"auth_type"`
	AuthEnvVar    string `mapstructure:"auth_env_var"`
	Pagination    bool   `mapstructure:"pagination"`
	PaginationCap int    `mapstructure:"pagination_cap"`
	Retry         bool   `mapstructure:"retry"`
	CacheTTL      int    `mapstructure:"cache_ttl"`
	Validation    bool   `mapstructure:"validation"`
}

type ServerMode string

const (
	ServerModeSSE   ServerMode = "sse"
	ServerModeSTDIO ServerMode = "stdio"
	ServerModeHTTP  ServerMode = "http"
)

type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	Host    string     `mapstructure:"host"`
	Timeout string     `mapstructure:"timeout"`
	Mode    ServerMode `mapstructure:"mode"`
	Name    string     `mapstructure:"name"`
	Version string     `mapstructure:"version"`
	BaseURL string     `mapstructure:"base_url"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("mode", string(ServerModeSTDIO), "Server mode (stdio|sse|http)")
	pflag.String("spec-file", "", "Path to the API specification file")
	pflag.String("adjustments-file", "", "Path to the adjustments file")
	// Note: no pflag.Parse() here as it's called in main.go
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("SPECBRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	setDefaults()

	// Load ./config.yaml first
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AddConfigPath("/etc/specbridge")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Loading additional config files
	if _, err := os.Stat("/config/config.yaml"); err == nil {
		viper.SetConfigFile("/config/config.yaml")
		// Merge /config/config.yaml (overrides overlapping keys)
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	// Set server mode from flag
	if mode := viper.GetString("mode"); mode != "" {
		switch ServerMode(mode) {
		case ServerModeSSE, ServerModeSTDIO, ServerModeHTTP:
			config.Server.Mode = ServerMode(mode)
		}
	}

	// Set spec file from flag or environment
	if specFile := viper.GetString("spec-file"); specFile != "" {
		config.SpecFile = specFile
	}

	if config.SpecFile == "" {
		return nil, fmt.Errorf("spec file is required, please adjust the config or pass --spec-file or SPECBRIDGE_SPEC_FILE environment variable")
	}

	// Set adjustments file from flag or environment
	if adjustmentsFile := viper.GetString("adjustments-file"); adjustmentsFile != "" {
		config.AdjustmentsFile = adjustmentsFile
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.name", "specbridge")
	viper.SetDefault("server.version", "0.1.0")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("convert.group_by", "tags")
	viper.SetDefault("convert.naming", "snake_case")
	viper.SetDefault("convert.include_examples", true)
	viper.SetDefault("convert.resolve_refs", true)
	viper.SetDefault("generate.target", "typescript")
	viper.SetDefault("generate.output_dir", "generated")
	viper.SetDefault("generate.pagination_cap", 10)
	viper.SetDefault("generate.retry", true)
	viper.SetDefault("generate.validation", true)
}
