package config

import (
	"github.com/spf13/viper"
	"sync"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("webhook_secret", "WEBHOOK_SECRET")
		viper.BindEnv("listen_port", "LISTEN_PORT")
		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("database_path", "DATABASE_PATH")
		viper.BindEnv("default_exchange", "DEFAULT_EXCHANGE")
		viper.BindEnv("check_interval_minutes", "CHECK_INTERVAL_MINUTES")
		viper.BindEnv("run_timeout_seconds", "RUN_TIMEOUT_SECONDS")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("listen_port", 8080)
		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("database_path", "data/bot.db")
		viper.SetDefault("default_exchange", "binance")
		viper.SetDefault("check_interval_minutes", 5)
		viper.SetDefault("run_timeout_seconds", 60)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}
