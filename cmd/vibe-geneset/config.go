package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-geneset/internal/consensus"
	"github.com/inodb/vibe-geneset/internal/idmap"
	"github.com/inodb/vibe-geneset/internal/mac"
	"github.com/inodb/vibe-geneset/internal/merge"
	runcfg "github.com/inodb/vibe-geneset/internal/run"
)

const configFileName = ".vibe-geneset.yaml"

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("mygene.url", idmap.DefaultMyGeneURL)
	viper.SetDefault("mygene.species", idmap.DefaultSpecies)
	viper.SetDefault("mygene.batch_size", idmap.DefaultBatchSize)
	viper.SetDefault("mygene.timeout", idmap.DefaultTimeout)
	viper.SetDefault("bootstrap.samples", mac.DefaultSamples)
	viper.SetDefault("bootstrap.workers", 0)
	viper.SetDefault("merge.mode", merge.ModeIntersection.String())
	viper.SetDefault("consensus.min_sources", consensus.DefaultMinSources)
	viper.SetDefault("cache.path", "~/.vibe-geneset/cache.duckdb")
	viper.SetDefault("progress.path", "")
}

// initConfig loads .env, the config file and VIBE_GENESET_* variables, then
// builds the logger.
func initConfig(cmd *cobra.Command) error {
	dotenvErr := godotenv.Load()

	setDefaults()
	viper.SetEnvPrefix("VIBE_GENESET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(strings.TrimSuffix(configFileName, ".yaml"))
		viper.SetConfigType("yaml")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	l, err := newLogger(viper.GetString("log.level"))
	if err != nil {
		return &usageError{err}
	}
	logger = l

	if dotenvErr != nil {
		logger.Debug("no .env found, using local environment")
	}
	if f := viper.ConfigFileUsed(); f != "" {
		logger.Debug("using config file", zap.String("path", f))
	}
	return nil
}

// newLogger builds a development logger on stderr without stack traces.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("Jan _2 15:04:05.000")
	encoderConfig.StacktraceKey = ""
	config.EncoderConfig = encoderConfig

	return config.Build()
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// loadRunConfig converts the merged settings into a run.Config. An unset
// bootstrap.seed is replaced by a time-based seed, which is logged so the
// run can be repeated.
func loadRunConfig() (runcfg.Config, error) {
	mode, err := merge.ParseMode(viper.GetString("merge.mode"))
	if err != nil {
		return runcfg.Config{}, &usageError{err}
	}

	seed := viper.GetUint64("bootstrap.seed")
	if !viper.IsSet("bootstrap.seed") {
		seed = uint64(time.Now().UnixNano())
	}

	return runcfg.Config{
		MyGene: idmap.MyGeneConfig{
			URL:       viper.GetString("mygene.url"),
			Species:   viper.GetString("mygene.species"),
			BatchSize: viper.GetInt("mygene.batch_size"),
			Timeout:   viper.GetDuration("mygene.timeout"),
		},
		Offline:      viper.GetBool("offline"),
		MappingFile:  viper.GetString("mapping.file"),
		Samples:      viper.GetInt("bootstrap.samples"),
		Seed:         seed,
		Workers:      viper.GetInt("bootstrap.workers"),
		MergeMode:    mode,
		MinSources:   viper.GetInt("consensus.min_sources"),
		CachePath:    expandHome(viper.GetString("cache.path")),
		ProgressPath: expandHome(viper.GetString("progress.path")),
	}, nil
}

// openRun loads the settings and opens the run context of one invocation.
func openRun() (*runcfg.Context, error) {
	cfg, err := loadRunConfig()
	if err != nil {
		return nil, err
	}
	return runcfg.Open(cfg, logger)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-geneset configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/" + configFileName + ".",
		Example: `  vibe-geneset config                             # show all config
  vibe-geneset config set bootstrap.samples 10000 # more bootstrap samples
  vibe-geneset config get merge.mode              # get a value`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# Config file: %s\n", f)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "# No config file. Defaults shown; config file: ~/%s\n", configFileName)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	// Parse boolean-like values
	switch value {
	case "true", "yes", "on":
		viper.Set(key, true)
	case "false", "no", "off":
		viper.Set(key, false)
	default:
		viper.Set(key, value)
	}

	// Ensure config file exists
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configFileName)
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}
