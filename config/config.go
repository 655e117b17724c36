package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	defaultConfigFilePath = "./barinv_config.json"
	defaultSeedFilePath   = "data/seed_inventory.csv"
	defaultPort           = "8080"
)

// Config は設定ファイルと環境変数をまとめたものです。
// json タグのない項目は環境変数からのみ設定され、ファイルには保存されません。
type Config struct {
	SeedFilePath     string `json:"seedFilePath"`
	SeedEncoding     string `json:"seedEncoding"`
	ExportFolderPath string `json:"exportFolderPath"`
	BrowserPath      string `json:"browserPath"`

	DatabaseURL string `json:"-"`
	SkipSeed    bool   `json:"-"`
	Port        string `json:"-"`
	RedisURL    string `json:"-"`
	OpenBrowser bool   `json:"-"`
}

var (
	cfg Config
	mu  sync.RWMutex
)

func configFilePath() string {
	if p := os.Getenv("BARINV_CONFIG"); p != "" {
		return p
	}
	return defaultConfigFilePath
}

// LoadConfig reads the settings file (if any), applies the environment on top
// and stores the result for GetConfig. A file that cannot be read or parsed is
// reported, but the returned config still carries the environment and defaults.
func LoadConfig() (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	tempCfg, err := readConfigFile()
	if err != nil {
		// ファイルが壊れていても環境変数とデフォルトは適用する
		tempCfg = Config{}
	}

	applyEnv(&tempCfg)
	applyDefaults(&tempCfg)
	cfg = tempCfg
	return cfg, err
}

func readConfigFile() (Config, error) {
	var c Config
	file, err := os.ReadFile(configFilePath())
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(file, &c); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", configFilePath(), err)
	}
	return c, nil
}

// SaveConfig persists the file-backed settings. Environment-only values of the
// running process are kept.
func SaveConfig(newCfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	newCfg.DatabaseURL = cfg.DatabaseURL
	newCfg.SkipSeed = cfg.SkipSeed
	newCfg.Port = cfg.Port
	newCfg.RedisURL = cfg.RedisURL
	newCfg.OpenBrowser = cfg.OpenBrowser
	applyDefaults(&newCfg)

	file, err := json.MarshalIndent(newCfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(configFilePath(), file, 0644); err != nil {
		return err
	}
	cfg = newCfg
	return nil
}

func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

func applyEnv(c *Config) {
	c.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	c.SkipSeed = IsTruthy(os.Getenv("SKIP_SEED"))
	c.Port = strings.TrimSpace(os.Getenv("PORT"))
	c.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	c.OpenBrowser = IsTruthy(os.Getenv("OPEN_BROWSER"))
	if p := strings.TrimSpace(os.Getenv("SEED_FILE")); p != "" {
		c.SeedFilePath = p
	}
}

func applyDefaults(c *Config) {
	if c.SeedFilePath == "" {
		c.SeedFilePath = defaultSeedFilePath
	}
	if c.Port == "" {
		c.Port = defaultPort
	}
}

// IsTruthy reports whether an environment value switches a flag on.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}
