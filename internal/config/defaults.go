package config

import "github.com/spf13/viper"

// setDefaults sets the default value for every configuration key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("timeout", 10)

	v.SetDefault("rpc.host", "127.0.0.1")

	v.SetDefault("bin.path", "")
	v.SetDefault("bin.version", "")

	v.SetDefault("home.keep", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
}
