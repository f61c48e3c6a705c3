package config

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	App      AppConfig      `mapstructure:"app"`
	Clerk    ClerkConfig    `mapstructure:"clerk"`
	Pesapal  PesapalConfig  `mapstructure:"pesapal"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	Debug       bool   `mapstructure:"debug"`
	BackendURL  string `mapstructure:"backend_url"`  // IPN 回调地址前缀
	FrontendURL string `mapstructure:"frontend_url"` // 支付完成后的跳转地址前缀
}

type ClerkConfig struct {
	// Clerk 会话 Token 的验签密钥。凭证校验本身完全委托给 Clerk，
	// 后端只解析会话 Token 并信任其中的用户标识
	SecretKey string `mapstructure:"secret_key"`
	Issuer    string `mapstructure:"issuer"`
}

type PesapalConfig struct {
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	Env            string `mapstructure:"env"`      // sandbox | production
	IPNID          string `mapstructure:"ipn_id"`   // 注册 IPN 后得到的通知 ID
	Currency       string `mapstructure:"currency"` // 默认 KES
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	if c.Redis.Addr == "" {
		return errors.New("redis address is required")
	}

	if c.Clerk.SecretKey == "" {
		return errors.New("clerk secret key is required")
	}

	if c.Pesapal.ConsumerKey == "" || c.Pesapal.ConsumerSecret == "" {
		return errors.New("pesapal credentials are incomplete")
	}
	if c.Pesapal.Env != "sandbox" && c.Pesapal.Env != "production" {
		return errors.New("pesapal env must be sandbox or production")
	}

	return nil
}

// LoadConfig 加载配置
func LoadConfig() {
	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "" && env != "dev" {
		configName = "config." + env
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("app.env", "dev")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("pesapal.env", "sandbox")
	viper.SetDefault("pesapal.currency", "KES")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// 手动覆盖，以防 viper 无法正确解析复杂结构或环境变量
	if host := os.Getenv("DB_HOST"); host != "" {
		GlobalConfig.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalConfig.Redis.Addr = redisAddr
	}
	if clerkSecret := os.Getenv("CLERK_SECRET_KEY"); clerkSecret != "" {
		GlobalConfig.Clerk.SecretKey = clerkSecret
	}
	if pesapalKey := os.Getenv("PESAPAL_CONSUMER_KEY"); pesapalKey != "" {
		GlobalConfig.Pesapal.ConsumerKey = pesapalKey
	}
	if pesapalSecret := os.Getenv("PESAPAL_CONSUMER_SECRET"); pesapalSecret != "" {
		GlobalConfig.Pesapal.ConsumerSecret = pesapalSecret
	}
	if ipnID := os.Getenv("PESAPAL_IPN_ID"); ipnID != "" {
		GlobalConfig.Pesapal.IPNID = ipnID
	}

	// 验证配置
	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
