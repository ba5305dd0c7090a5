package client

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by LoadOptions,
// e.g. CDBMS_ADDRESS or CDBMS_TLS_ENABLED.
const EnvPrefix = "CDBMS"

// NewViper returns a viper instance preloaded with option defaults and bound
// to CDBMS_* environment variables.
func NewViper() *viper.Viper {
	d := DefaultOptions()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("address", d.Address)
	v.SetDefault("username", d.Username)
	v.SetDefault("password", d.Password)
	v.SetDefault("dial_timeout", d.DialTimeout)
	v.SetDefault("drain_window", d.DrainWindow)
	v.SetDefault("buffer_size", d.BufferSize)
	v.SetDefault("command_timeout", d.CommandTimeout)
	v.SetDefault("debug", d.DebugMode)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("tls.enabled", d.TLSEnabled)
	v.SetDefault("tls.skip_verify", d.TLSInsecureSkipVerify)
	v.SetDefault("tls.cert_file", d.TLSCertFile)
	v.SetDefault("tls.key_file", d.TLSKeyFile)
	return v
}

// LoadOptions reads options from an optional config file (YAML, JSON or
// TOML, chosen by extension) and CDBMS_* environment variables. Environment
// variables win over the file.
func LoadOptions(path string) (ClientOptions, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return ClientOptions{}, errors.Wrapf(err, "read config %s", path)
		}
	}
	return OptionsFromViper(v)
}

// OptionsFromViper converts viper settings into ClientOptions.
func OptionsFromViper(v *viper.Viper) (ClientOptions, error) {
	opts := DefaultOptions()
	opts.Address = v.GetString("address")
	opts.Username = v.GetString("username")
	opts.Password = v.GetString("password")
	opts.DialTimeout = v.GetDuration("dial_timeout")
	opts.DrainWindow = v.GetDuration("drain_window")
	opts.BufferSize = v.GetInt("buffer_size")
	opts.CommandTimeout = v.GetDuration("command_timeout")
	opts.DebugMode = v.GetBool("debug")
	opts.LogLevel = v.GetString("log_level")
	opts.TLSEnabled = v.GetBool("tls.enabled")
	opts.TLSInsecureSkipVerify = v.GetBool("tls.skip_verify")
	opts.TLSCertFile = v.GetString("tls.cert_file")
	opts.TLSKeyFile = v.GetString("tls.key_file")

	if opts.Address == "" {
		return ClientOptions{}, errors.New("address is required")
	}
	if opts.BufferSize <= 0 {
		return ClientOptions{}, errors.Errorf("buffer_size must be positive, got %d", opts.BufferSize)
	}
	if (opts.TLSCertFile == "") != (opts.TLSKeyFile == "") {
		return ClientOptions{}, errors.New("tls.cert_file and tls.key_file must be set together")
	}
	return opts, nil
}
