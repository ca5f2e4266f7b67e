package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/penny-vault/pv-indices/cmd"

	"github.com/spf13/viper"
)

func configureViper() {
	cmd.RegisterDefaults()

	viper.SetEnvPrefix("PVI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// read config file
	viper.SetConfigName("pvindices")
	viper.SetConfigType("toml")
	viper.AddConfigPath("/etc/pv-indices/")
	viper.AddConfigPath("$HOME/.config/pv-indices")
	viper.AddConfigPath(".")

	err := viper.ReadInConfig() // Find and read the config file
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
}

func main() {
	configureViper()
	cmd.Execute()
}
