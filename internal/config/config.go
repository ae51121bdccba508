package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime settings for the deposit engine. Values come from
// config.yaml in the working directory, overridable via DEPOSITENGINE_*
// environment variables (dots become underscores, e.g.
// DEPOSITENGINE_SERVER_PORT).
type Config struct {
	ServerPort        int
	DatabasePath      string
	PollInterval      time.Duration
	CycleTimeout      time.Duration
	BankClientTimeout time.Duration
	DepositCodePrefix string
	CronSecret        string
}

func Load() Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.path", "depositengine.db")
	viper.SetDefault("poller.interval", "5m")
	viper.SetDefault("poller.cycle_timeout", "2m")
	viper.SetDefault("bank.client_timeout", "30s")
	viper.SetDefault("deposit.code_prefix", "NAP")
	viper.SetDefault("cron.secret", "")

	viper.SetEnvPrefix("DEPOSITENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("[config] no config file found, using defaults: %v", err)
	}

	return Config{
		ServerPort:        viper.GetInt("server.port"),
		DatabasePath:      viper.GetString("database.path"),
		PollInterval:      viper.GetDuration("poller.interval"),
		CycleTimeout:      viper.GetDuration("poller.cycle_timeout"),
		BankClientTimeout: viper.GetDuration("bank.client_timeout"),
		DepositCodePrefix: viper.GetString("deposit.code_prefix"),
		CronSecret:        viper.GetString("cron.secret"),
	}
}
