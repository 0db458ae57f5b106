package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	buildVersion      = "unknown"
	buildDate         = "unknown"
	envPrefix         = "TRIERUN"
	defaultConfigName = ".trierun"
)

type Options struct {
	ConfigFile   string         `json:"-" yaml:"-"`
	LogLevel     string         `json:"logLevel" yaml:"logLevel"`
	Workers      int            `json:"workers" yaml:"workers"`
	WordsFile    string         `json:"wordsFile,omitempty" yaml:"wordsFile,omitempty"`
	FakeCount    int            `json:"fakeCount,omitempty" yaml:"fakeCount,omitempty"`
	Seed         int64          `json:"seed" yaml:"seed"`
	Output       string         `json:"output" yaml:"output"`
	RootCapacity int            `json:"rootCapacity" yaml:"rootCapacity"`
	NodeCapacity int            `json:"nodeCapacity" yaml:"nodeCapacity"`
	Dump         bool           `json:"dump,omitempty" yaml:"dump,omitempty"`
	Metrics      MetricsOptions `json:"metrics" yaml:"metrics"`
}

type MetricsOptions struct {
	Address string `json:"address" yaml:"address"`
	Port    int    `json:"port" yaml:"port"`
}

func newRootCmd() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:           "trierun",
		Short:         "Load words concurrently into a prefix tree and query it",
		Version:       fmt.Sprintf("%s (%s)", buildVersion, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", fmt.Sprintf("config file (default is $HOME/%s)", defaultConfigName))
	flags.StringVar(&opts.LogLevel, "log-level", "error", "Log level: trace, debug, info, warning, error")
	flags.IntVar(&opts.Workers, "workers", 4, "Number of goroutines inserting words")
	flags.StringVar(&opts.WordsFile, "words-file", "", "File of whitespace separated words")
	flags.IntVar(&opts.FakeCount, "fake-count", 0, "Number of random words to generate (when no words file is given)")
	flags.Int64Var(&opts.Seed, "seed", 1234567890, "Seed of the word generator and of the shuffle")
	flags.StringVarP(&opts.Output, "output", "o", "text", "Output format: text, json, yaml")
	flags.IntVar(&opts.RootCapacity, "root-capacity", 8, "Initial capacity of the root array")
	flags.IntVar(&opts.NodeCapacity, "node-capacity", 13, "Initial capacity of every children array")
	flags.StringVar(&opts.Metrics.Address, "metrics.address", "0.0.0.0", "Prometheus server address")
	flags.IntVar(&opts.Metrics.Port, "metrics.port", 0, "Prometheus server port; when set, metrics are served until interrupted (default: disabled)")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newFindCmd(opts),
		newDocsCmd(),
	)

	return rootCmd
}

// initConfig layers the config file and TRIERUN_* variables under the flags.
func initConfig(cmd *cobra.Command, opts *Options) error {
	v := viper.New()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		// a missing home directory only means there is no default config
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(defaultConfigName)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cfgErr := v.ReadInConfig()

	if err := bindFlags(cmd, v); err != nil {
		return err
	}

	initLogger(opts.LogLevel)

	if cfgErr != nil {
		var notFound viper.ConfigFileNotFoundError

		if opts.ConfigFile != "" || !errors.As(cfgErr, &notFound) {
			return errors.Wrap(cfgErr, "read config")
		}

		log.Debug("no config file found")
	}

	log.WithField("file", v.ConfigFileUsed()).Debug("config loaded")

	return nil
}

func initLogger(level string) {
	ll, err := log.ParseLevel(level)
	if err != nil {
		ll = log.ErrorLevel
	}
	log.SetLevel(ll)
	log.SetFormatter(&log.TextFormatter{DisableColors: false, FullTimestamp: true, PadLevelText: true, DisableQuote: true})
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		val := v.Get(f.Name)
		switch val.(type) {
		case bool, uint, string, int32, int16, int8, int, uint32, uint64, int64, float64, float32:
			bindErr = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val))
		default:
			var jsonNew = jsoniter.ConfigCompatibleWithStandardLibrary
			b, err := jsonNew.Marshal(&val)
			if err != nil {
				bindErr = errors.Wrapf(err, "can't parse flag %s into json with value %v", f.Name, val)
				return
			}
			bindErr = cmd.Flags().Set(f.Name, string(b))
		}

		if bindErr != nil {
			bindErr = errors.Wrapf(bindErr, "flag %s", f.Name)
		}
	})

	return bindErr
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
