package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存 client、mock API 及外部相依的執行設定。
type Config struct {
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	DB       DBConfig       `yaml:"db"`
	Notifier NotifierConfig `yaml:"notifier"`
	MockAPI  MockAPIConfig  `yaml:"mock_api"`
}

// APIConfig 為 storefront client 的設定。
type APIConfig struct {
	BaseURL         string          `yaml:"base_url"`
	Timeout         time.Duration   `yaml:"timeout"`
	AccessTokenTTL  time.Duration   `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration   `yaml:"refresh_token_ttl"`
	Endpoints       EndpointsConfig `yaml:"endpoints"`
}

type EndpointsConfig struct {
	Login        string `yaml:"login"`
	Register     string `yaml:"register"`
	Logout       string `yaml:"logout"`
	RefreshToken string `yaml:"refresh_token"`
}

// StorageDriver 決定 session 憑證保存位置。
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StorageFile     StorageDriver = "file"
	StoragePostgres StorageDriver = "postgres"
)

type StorageConfig struct {
	Driver    StorageDriver `yaml:"driver"`
	FilePath  string        `yaml:"file_path"`
	Namespace string        `yaml:"namespace"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

type NotifierConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// MockAPIConfig 為本機 mock 後端設定。
type MockAPIConfig struct {
	Addr       string        `yaml:"addr"`
	Secret     string        `yaml:"secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	Seed       bool          `yaml:"seed"`
}

// LoadFromFile 從 YAML 組態檔載入設定，檔案不存在時只套用預設值與環境變數。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 檢查無法以預設值補上的設定。
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageFile, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == StoragePostgres && c.DB.DSN == "" {
		return fmt.Errorf("storage driver postgres requires db.dsn")
	}
	if c.Notifier.Telegram.Enabled && (c.Notifier.Telegram.Token == "" || c.Notifier.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram notifier requires token and chat_id")
	}
	return nil
}

func applyDefaults(cfg Config) Config {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:4000/"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if cfg.API.Endpoints.Login == "" {
		cfg.API.Endpoints.Login = "login"
	}
	if cfg.API.Endpoints.Register == "" {
		cfg.API.Endpoints.Register = "register"
	}
	if cfg.API.Endpoints.Logout == "" {
		cfg.API.Endpoints.Logout = "logout"
	}
	if cfg.API.Endpoints.RefreshToken == "" {
		cfg.API.Endpoints.RefreshToken = "refresh-access-token"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageFile
	}
	if cfg.Storage.FilePath == "" {
		cfg.Storage.FilePath = defaultStoragePath()
	}
	if cfg.Storage.Namespace == "" {
		cfg.Storage.Namespace = "default"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.MockAPI.Addr == "" {
		cfg.MockAPI.Addr = ":4000"
	}
	if cfg.MockAPI.Secret == "" {
		cfg.MockAPI.Secret = "dev-secret-change-me"
	}
	if cfg.MockAPI.TokenTTL == 0 {
		cfg.MockAPI.TokenTTL = time.Hour
	}
	if cfg.MockAPI.RefreshTTL == 0 {
		cfg.MockAPI.RefreshTTL = 24 * time.Hour * 30
	}
	return cfg
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".shopctl-session.yaml"
	}
	return dir + "/shopctl/session.yaml"
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("SHOP_API_BASE_URL"); val != "" {
		cfg.API.BaseURL = val
	}
	if val := os.Getenv("SHOP_API_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.API.Timeout = d
		}
	}
	if val := os.Getenv("SHOP_ACCESS_TOKEN_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.API.AccessTokenTTL = d
		}
	}
	if val := os.Getenv("SHOP_REFRESH_TOKEN_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.API.RefreshTokenTTL = d
		}
	}
	if val := os.Getenv("SHOP_STORAGE_DRIVER"); val != "" {
		cfg.Storage.Driver = StorageDriver(val)
	}
	if val := os.Getenv("SHOP_STORAGE_FILE"); val != "" {
		cfg.Storage.FilePath = val
	}
	if val := os.Getenv("SHOP_STORAGE_NAMESPACE"); val != "" {
		cfg.Storage.Namespace = val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("TELEGRAM_TOKEN"); val != "" {
		cfg.Notifier.Telegram.Token = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		if id, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Notifier.Telegram.ChatID = id
		}
	}
	if val := os.Getenv("TELEGRAM_ENABLED"); val != "" {
		cfg.Notifier.Telegram.Enabled = (val == "true")
	}
	if val := os.Getenv("MOCK_API_ADDR"); val != "" {
		cfg.MockAPI.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.MockAPI.Addr = ":" + val
	}
	if val := os.Getenv("AUTH_SECRET"); val != "" {
		cfg.MockAPI.Secret = val
	}
	if val := os.Getenv("MOCK_API_SEED"); val != "" {
		cfg.MockAPI.Seed = (val == "true")
	}
	return cfg
}
