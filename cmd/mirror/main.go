package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/b1naryth1ef/mirror"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "config"
	envPrefix      = "MIRROR"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

// configKeys are bound to MIRROR_* variables so that nested keys can be set
// from the environment, e.g. MIRROR_CREDENTIALS_PASSWORD.
var configKeys = []string{
	"server_root",
	"client_root",
	"sync_mode",
	"ignore",
	"credentials.host",
	"credentials.port",
	"credentials.username",
	"credentials.password",
	"credentials.key_path",
	"credentials.key_passphrase",
	"credentials.known_hosts",
	"credentials.use_ssh_config",
}

var rootCmd = &cobra.Command{
	Use:           "mirror",
	Short:         "Keep a local directory and a remote SFTP directory in sync",
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd.Flags())
		return loadEnv(cmd.Flags())
	},
}

func init() {
	addConfigFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newSyncCmd(),
		newGetCmd(),
		newPutCmd(),
		newListCmd(),
		newPruneCmd(),
		newServeCmd(),
		newConfigCmd(),
	)
}

func addConfigFlags(flags *flag.FlagSet) {
	flags.SortFlags = false
	flags.StringP("config", "c", "", "config file (default ~/.config/mirror/config.yml or ~/.mirror/config.yml)")
	flags.String("env-file", ".env", "dotenv file loaded before the config")
	flags.String("server-root", "", "remote directory to sync")
	flags.String("client-root", "", "local directory to sync")
	flags.String("host", "", "SFTP host")
	flags.IntP("port", "p", 0, "SFTP port (default 22)")
	flags.StringP("user", "u", "", "SFTP username")
	flags.StringP("identity", "i", "", "private key file")
	flags.String("mode", "", "sync mode: bidirectional or client-to-server")
	flags.BoolP("verbose", "v", false, "log debug output")
}

func setupLogging(flags *flag.FlagSet) {
	level := slog.LevelInfo
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
}

func loadEnv(flags *flag.FlagSet) error {
	envFile, _ := flags.GetString("env-file")
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

// loadConfig merges the config file, MIRROR_* variables and flags, in
// increasing order of precedence, and validates the result.
func loadConfig(flags *flag.FlagSet) (*mirror.Config, error) {
	v := viper.New()

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "mirror"))
		v.AddConfigPath(filepath.Join(home, ".mirror"))
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		v.BindEnv(key)
	}

	v.BindPFlag("server_root", flags.Lookup("server-root"))
	v.BindPFlag("client_root", flags.Lookup("client-root"))
	v.BindPFlag("sync_mode", flags.Lookup("mode"))
	v.BindPFlag("credentials.host", flags.Lookup("host"))
	v.BindPFlag("credentials.port", flags.Lookup("port"))
	v.BindPFlag("credentials.username", flags.Lookup("user"))
	v.BindPFlag("credentials.key_path", flags.Lookup("identity"))

	var cfg mirror.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		os.Exit(1)
	}
}
