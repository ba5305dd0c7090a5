// Command cdbmsctl talks to a CDBMS server: raw commands, an interactive
// shell and an append benchmark.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dan-strohschein/cdbms-driver/client"
)

var (
	cfgFile string
	v       = client.NewViper()
)

var rootCmd = &cobra.Command{
	Use:           "cdbmsctl",
	Short:         "CDBMS command line client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("address", "127.0.0.1:7777", "server host:port")
	pf.StringP("username", "u", "", "login user")
	pf.StringP("password", "p", "", "login password")
	pf.Duration("dial-timeout", 5*time.Second, "connection timeout")
	pf.Duration("drain-window", 50*time.Microsecond, "stale byte drain window before each command")
	pf.Duration("command-timeout", 0, "per-command timeout (0 waits forever)")
	pf.String("log-level", "WARN", "DEBUG, INFO, WARN or ERROR")
	pf.Bool("debug", false, "log raw commands and print verbose errors")
	pf.Bool("tls", false, "wrap the connection in TLS")
	pf.Bool("tls-skip-verify", false, "skip server certificate checks")

	for key, flag := range map[string]string{
		"address":         "address",
		"username":        "username",
		"password":        "password",
		"dial_timeout":    "dial-timeout",
		"drain_window":    "drain-window",
		"command_timeout": "command-timeout",
		"log_level":       "log-level",
		"debug":           "debug",
		"tls.enabled":     "tls",
		"tls.skip_verify": "tls-skip-verify",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(execCmd, shellCmd, benchCmd, versionCmd)
}

// loadOptions merges flags, CDBMS_* variables and the config file.
func loadOptions() (client.ClientOptions, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return client.ClientOptions{}, errors.Wrapf(err, "read config %s", cfgFile)
		}
	}
	opts, err := client.OptionsFromViper(v)
	if err != nil {
		return client.ClientOptions{}, err
	}
	opts.Logger = client.NewLogger(opts.LogLevel, os.Stderr)
	return opts, nil
}

// openClient builds and opens a client from the merged options.
func openClient(ctx context.Context) (*client.Client, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}
	c, err := client.NewClient(&opts)
	if err != nil {
		return nil, err
	}
	if err := c.Open(ctx); err != nil {
		return nil, errors.Wrapf(err, "open %s", opts.Address)
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(client.FormatError(err, v.GetBool("debug")))
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cdbmsctl %s\n", client.Version)
	},
}
