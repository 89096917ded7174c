package cmd

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/talent-scout/internal/ai/admission"
	"github.com/spigell/talent-scout/internal/ai/retry"
	"github.com/spigell/talent-scout/internal/dom"
	"github.com/spigell/talent-scout/internal/page"
	"github.com/spigell/talent-scout/internal/server"
)

const (
	app = "talent-scout"
	bin = "scout"
)

type Config struct {
	Page   page.Config       `mapstructure:"page"`
	Sites  []dom.SiteProfile `mapstructure:"sites"`
	AI     *AIConfig         `mapstructure:"ai"`
	Server server.Config     `mapstructure:"server"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	MinGap   time.Duration `mapstructure:"min-gap"`
	Retry    *RetryConfig  `mapstructure:"retry"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type RetryConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	BaseDelay time.Duration `mapstructure:"base-delay"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          bin,
		Short:        "scout maps candidate profile pages and drafts outreach with an AI assistant",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "SCOUT_API_KEY_FILE"); err != nil {
		log.Fatalf("binding SCOUT_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}

	viper.SetDefault("page.loader", page.ModeAuto)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.min-gap", admission.MinGap)
	viper.SetDefault("ai.retry.attempts", retry.DefaultAttempts)
	viper.SetDefault("ai.retry.base-delay", retry.DefaultBaseDelay)
	viper.SetDefault("ai.gemini.api-key-file", defaultKeyFile())
	viper.SetDefault("server.addr", server.DefaultAddr)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is talent-scout.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// initConfig reads the config file. Only an explicitly requested file is
// mandatory; without one the defaults and environment are used.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}
	if len(config.Sites) == 0 {
		config.Sites = dom.DefaultSites
	}

	return config, nil
}

// defaultKeyFile is where `scout key set` stores the API key.
func defaultKeyFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, app, "api-key")
}
