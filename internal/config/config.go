package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "America/New_York"

	configPathEnv         = "INTEL_SCANNER_CONFIG"
	databasePathEnv       = "DATABASE_PATH"
	anthropicAPIKeyEnv    = "ANTHROPIC_API_KEY"
	anthropicModelEnv     = "ANTHROPIC_MODEL"
	slackTokenEnv         = "SLACK_BOT_TOKEN"
	slackLeadershipEnv    = "SLACK_CHANNEL_LEADERSHIP"
	slackAlertsEnv        = "SLACK_CHANNEL_ALERTS"
	relevanceThresholdEnv = "RELEVANCE_THRESHOLD"
	maxDailyItemsEnv      = "MAX_DAILY_ITEMS"
	timezoneEnv           = "TIMEZONE"
	logLevelEnv           = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	LLM       LLMConfig       `yaml:"llm"`
	Slack     SlackConfig     `yaml:"slack"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
	Feeds     []FeedConfig    `yaml:"feeds"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines the four recurring triggers and their timezone.
type SchedulerConfig struct {
	Timezone          string         `yaml:"timezone"`
	PipelineCron      string         `yaml:"pipelineCron"`
	ReminderCron      string         `yaml:"reminderCron"`
	DailyDigestCron   string         `yaml:"dailyDigestCron"`
	WeeklySummaryCron string         `yaml:"weeklySummaryCron"`
	location          *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LLMConfig defines how to contact the Anthropic messages API.
type LLMConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"apiKey"`
	MaxTokens int    `yaml:"maxTokens"`
}

// SlackConfig wires the bot token and target channels.
type SlackConfig struct {
	BotToken          string `yaml:"botToken"`
	LeadershipChannel string `yaml:"leadershipChannel"`
	AlertsChannel     string `yaml:"alertsChannel"`
}

// PipelineConfig tunes collection and filtering behavior.
type PipelineConfig struct {
	HoursBack           int `yaml:"hoursBack"`
	SimilarityThreshold int `yaml:"similarityThreshold"`
	RelevanceThreshold  int `yaml:"relevanceThreshold"`
	MaxDailyItems       int `yaml:"maxDailyItems"`
	ClassifyLimit       int `yaml:"classifyLimit"`
}

// LoggingConfig selects the console log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// FeedConfig describes a single RSS/Atom source.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads .env, YAML configuration (if present), and environment overrides.
func Load() Config {
	_ = gotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(anthropicAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(anthropicModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(slackTokenEnv); v != "" {
		c.Slack.BotToken = v
	}
	if v := os.Getenv(slackLeadershipEnv); v != "" {
		c.Slack.LeadershipChannel = v
	}
	if v := os.Getenv(slackAlertsEnv); v != "" {
		c.Slack.AlertsChannel = v
	}

	if v := os.Getenv(relevanceThresholdEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.RelevanceThreshold = n
		}
	}
	if v := os.Getenv(maxDailyItemsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.MaxDailyItems = n
		}
	}

	if v := os.Getenv(timezoneEnv); v != "" {
		c.Scheduler.Timezone = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.PipelineCron != "" {
		base.Scheduler.PipelineCron = override.Scheduler.PipelineCron
	}
	if override.Scheduler.ReminderCron != "" {
		base.Scheduler.ReminderCron = override.Scheduler.ReminderCron
	}
	if override.Scheduler.DailyDigestCron != "" {
		base.Scheduler.DailyDigestCron = override.Scheduler.DailyDigestCron
	}
	if override.Scheduler.WeeklySummaryCron != "" {
		base.Scheduler.WeeklySummaryCron = override.Scheduler.WeeklySummaryCron
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.MaxTokens > 0 {
		base.LLM.MaxTokens = override.LLM.MaxTokens
	}

	if override.Slack.BotToken != "" {
		base.Slack.BotToken = override.Slack.BotToken
	}
	if override.Slack.LeadershipChannel != "" {
		base.Slack.LeadershipChannel = override.Slack.LeadershipChannel
	}
	if override.Slack.AlertsChannel != "" {
		base.Slack.AlertsChannel = override.Slack.AlertsChannel
	}

	if override.Pipeline.HoursBack > 0 {
		base.Pipeline.HoursBack = override.Pipeline.HoursBack
	}
	if override.Pipeline.SimilarityThreshold > 0 {
		base.Pipeline.SimilarityThreshold = override.Pipeline.SimilarityThreshold
	}
	if override.Pipeline.RelevanceThreshold > 0 {
		base.Pipeline.RelevanceThreshold = override.Pipeline.RelevanceThreshold
	}
	if override.Pipeline.MaxDailyItems > 0 {
		base.Pipeline.MaxDailyItems = override.Pipeline.MaxDailyItems
	}
	if override.Pipeline.ClassifyLimit > 0 {
		base.Pipeline.ClassifyLimit = override.Pipeline.ClassifyLimit
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Path: "data/intel.db"},
		Scheduler: SchedulerConfig{
			Timezone:          defaultTimezone,
			PipelineCron:      "0 6 * * *",
			ReminderCron:      "30 7 * * *",
			DailyDigestCron:   "0 8 * * 1-5",
			WeeklySummaryCron: "0 16 * * 5",
			location:          tz,
		},
		LLM: LLMConfig{
			Endpoint:  "https://api.anthropic.com/v1/messages",
			Model:     "claude-3-haiku-20240307",
			APIKey:    "",
			MaxTokens: 1000,
		},
		Slack: SlackConfig{
			BotToken:          "",
			LeadershipChannel: "product-competitor-intel-slt",
			AlertsChannel:     "competitor-intel-alerts",
		},
		Pipeline: PipelineConfig{
			HoursBack:           24,
			SimilarityThreshold: 85,
			RelevanceThreshold:  3,
			MaxDailyItems:       5,
			ClassifyLimit:       50,
		},
		Logging: LoggingConfig{Level: "info"},
		Feeds: []FeedConfig{
			{Name: "adexchanger", URL: "https://www.adexchanger.com/feed/"},
			{Name: "digiday", URL: "https://digiday.com/feed/"},
			{Name: "adage", URL: "https://adage.com/rss"},
			{Name: "adweek", URL: "https://www.adweek.com/category/artificial-intelligence/feed/"},
		},
	}
}
