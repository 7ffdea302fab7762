package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-i2p/linksgo/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
)

var cfgFile string
var debug bool
var c *config.Conf = &config.Conf{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "linksgo",
	Short: "Turn translation vendor archives into editor link reports",
	Long: `linksgo reads translated-content archives delivered by a translation vendor,
converts every structured-content entry into the editor URL of its translated
page, and writes one hierarchical HTML report per locale.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Only the running command's flags are bound so that commands sharing
		// a key (statsfile, samaddr, i2p) do not overwrite each other.
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return errors.Errorf("binding flags: %w", err)
		}
		logger := newLogger(cmd, debug)
		cmd.Flags().Visit(func(f *pflag.Flag) {
			logger.Debug().Str("flag", f.Name).Str("value", f.Value.String()).Msg("flag set")
		})
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.linksgo.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func newLogger(cmd *cobra.Command, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().
		Timestamp().
		Str("cmd", cmd.Name()).
		Logger()
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".linksgo" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".linksgo")
	}

	viper.SetEnvPrefix("linksgo")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Variable names used by existing deployments.
	cobra.CheckErr(viper.BindEnv("aemhost", "LINKSGO_AEMHOST", "AEM_HOST"))
	cobra.CheckErr(viper.BindEnv("sourcelang", "LINKSGO_SOURCELANG", "SOURCE_LANG"))
	cobra.CheckErr(viper.BindEnv("template", "LINKSGO_TEMPLATE", "TEMPLATE_FILE"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
