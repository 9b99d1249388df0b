package main

import (
	"fmt"
	"strings"
	"time"

	"TG_rewards_bot/internal/storage"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Storage   storage.Config  `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Rewards   RewardsConfig   `yaml:"rewards"`
	Broadcast BroadcastConfig `yaml:"broadcast"`

	LogLevel string `yaml:"logLevel"`
}

type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	AdminID  int64  `yaml:"adminId"`
	Debug    bool   `yaml:"debug"`
}

type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	AdminToken string `yaml:"adminToken"`
}

type RewardsConfig struct {
	DailyBonusPoints    int      `yaml:"dailyBonusPoints"`
	ReferralBonusPoints int      `yaml:"referralBonusPoints"`
	ChannelJoinPoints   int      `yaml:"channelJoinPoints"`
	MinWithdrawPoints   int      `yaml:"minWithdrawPoints"`
	Currency            string   `yaml:"currency"`
	EarnLinks           []string `yaml:"earnLinks"`
}

type BroadcastConfig struct {
	IntervalMinutes int  `yaml:"intervalMinutes"`
	ActiveOnly      bool `yaml:"activeOnly"`
}

func (c *BroadcastConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is not set")
	}
	if cfg.Telegram.AdminID == 0 {
		return nil, fmt.Errorf("admin user id is not set")
	}

	return &cfg, nil
}
