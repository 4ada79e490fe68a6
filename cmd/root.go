package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/praetorian-inc/approles/internal/logs"
	"github.com/praetorian-inc/approles/internal/message"
)

var (
	cfgFile   string
	configErr error
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:               "approles",
	Short:             "approles exports Entra ID app role assignments from Microsoft Graph.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		message.Error("%s", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.approles.yaml)")
	flags.String("tenant-id", "", "Entra ID tenant to authenticate against (default: the credential's home tenant)")
	flags.StringP("output", "o", defaults.Output, "directory reports are written to")
	flags.StringP("format", "f", defaults.Format, "report format: csv, json, md, console or neo4j")
	flags.Int32("page-size", defaults.PageSize, "page size hint sent to Graph ($top)")
	flags.Int("menu-page-size", defaults.MenuPageSize, "entries per page in the selection menu")
	flags.Duration("timeout", defaults.Timeout, "per-request timeout")
	flags.Float64("rps", defaults.RequestsPerSecond, "maximum Graph requests per second")
	flags.Uint64("retries", defaults.Retries, "retries of throttled or failed Graph requests")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-file", "", "write JSON logs to this file instead of stderr")
	flags.BoolP("quiet", "q", false, "only print warnings and errors")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("non-interactive", false, "never prompt; take the first match when several service principals match")
	flags.String("neo4j-uri", defaults.Neo4j.URI, "Neo4j connection URI for --format neo4j")
	flags.String("neo4j-user", defaults.Neo4j.Username, "Neo4j username")
	flags.String("neo4j-password", "", "Neo4j password (prefer APPROLES_NEO4J_PASSWORD)")

	cobra.CheckErr(viper.BindPFlags(flags))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".approles" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".approles")
	}

	viper.SetEnvPrefix("APPROLES")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	configErr = readConfig(viper.GetViper(), cfgFile != "")
}

// readConfig tolerates a missing default config file. An explicit --config
// path must exist and every config file found must parse.
func readConfig(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) && !explicit {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

func setup(cmd *cobra.Command, args []string) error {
	if configErr != nil {
		return configErr
	}

	level, err := logs.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}

	if path := viper.GetString("log-file"); path != "" {
		_, closer, err := logs.FileLogger(path, level)
		if err != nil {
			return err
		}
		logCloser = closer
	} else {
		logs.ConsoleLogger(level)
	}

	message.SetQuiet(viper.GetBool("quiet"))
	message.ConfigureColor(viper.GetBool("no-color"))

	if used := viper.ConfigFileUsed(); used != "" {
		slog.Debug("Using config file", "path", used)
	}
	return nil
}
