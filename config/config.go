package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		MetricsPort string        `mapstructure:"metricsPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	JWT      JWTConfig    `mapstructure:"jwt"`
	Upload   UploadConfig `mapstructure:"upload"`
	Geocoder struct {
		BaseURL  string        `mapstructure:"baseURL"`
		CacheTTL time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"geocoder"`
	SMTP struct {
		Host      string `mapstructure:"host"`
		Port      string `mapstructure:"port"`
		FromName  string `mapstructure:"fromName"`
		FromEmail string `mapstructure:"fromEmail"`
	} `mapstructure:"smtp"`
}

type JWTConfig struct {
	SecretKey      string        `mapstructure:"secretKey"`
	AccessTokenTTL time.Duration `mapstructure:"accessTokenTTL"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
}

type UploadConfig struct {
	// Backend selects the storage collaborator: "local" or "s3".
	Backend  string `mapstructure:"backend"`
	MaxSize  int64  `mapstructure:"maxSize"`
	LocalDir string `mapstructure:"localDir"`
	S3       struct {
		Region       string `mapstructure:"region"`
		Bucket       string `mapstructure:"bucket"`
		BaseEndpoint string `mapstructure:"baseEndpoint"`
		AccessKey    string `mapstructure:"accessKey"`
		SecretKey    string `mapstructure:"secretKey"`
	} `mapstructure:"s3"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets may arrive from the environment without touching the file.
	v.SetEnvPrefix("RECRUITERHUB")
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
