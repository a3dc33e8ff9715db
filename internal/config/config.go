// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（DB 密码、MinIO 密钥）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Import   ImportConfig   `yaml:"import"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Name    string `yaml:"name"`
	SSLMode string `yaml:"sslmode"`
}

// MinIOConfig 对象存储配置
//
// FileBucket 存放用例文档与证迹，OutputBucket 存放批次结果报告，
// InputBucket 为导入 ZIP 的读取来源。密钥从环境变量注入。
type MinIOConfig struct {
	Endpoint     string `yaml:"endpoint"`
	UseSSL       bool   `yaml:"use_ssl"`
	InputBucket  string `yaml:"input_bucket"`
	FileBucket   string `yaml:"file_bucket"`
	OutputBucket string `yaml:"output_bucket"`
	AccessKey    string `yaml:"-"`
	SecretKey    string `yaml:"-"`
}

// ImportConfig 导入批次配置
//
// 事务预算按数据量调整，不是固定常数：
// MaxWait 是获取连接的等待上限，TxTimeout 是整个批次事务的墙钟上限。
type ImportConfig struct {
	MaxWait   time.Duration `yaml:"max_wait"`
	TxTimeout time.Duration `yaml:"tx_timeout"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env         Environment
	DatabaseURL string
	APIPort     string
	MinIO       MinIOConfig
	Import      ImportConfig
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 构建最终配置
func Load() *Config {
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	env := parseEnv(getEnv("APP_ENV", "dev"))

	yamlCfg := loadYAMLConfig(env)

	dbPassword := getEnv("DB_PASSWORD", "testtrack_dev_password")

	minioCfg := yamlCfg.MinIO
	minioCfg.Endpoint = getEnv("MINIO_ENDPOINT", minioCfg.Endpoint)
	minioCfg.AccessKey = getEnv("MINIO_ACCESS_KEY", "minioadmin")
	minioCfg.SecretKey = getEnv("MINIO_SECRET_KEY", "minioadmin")

	cfg := &Config{
		Env:         env,
		DatabaseURL: buildDatabaseURL(yamlCfg.Database, dbPassword),
		APIPort:     yamlCfg.Server.Port,
		MinIO:       minioCfg,
		Import:      yamlCfg.Import,
	}

	cfg.Import.validate()

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	cfg := &YAMLConfig{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "testtrack", Name: "testtrack", SSLMode: "disable"},
		MinIO: MinIOConfig{
			Endpoint:     "localhost:9000",
			InputBucket:  "testtrack-import",
			FileBucket:   "testtrack-files",
			OutputBucket: "testtrack-reports",
		},
		Import: ImportConfig{MaxWait: 60 * time.Second, TxTimeout: 300 * time.Second},
	}

	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

// buildDatabaseURL 构建 PostgreSQL 连接字符串
func buildDatabaseURL(db DatabaseConfig, password string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.User, password, db.Host, db.Port, db.Name, db.SSLMode)
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, DB: %s, MinIO: %s}",
		c.Env, maskPassword(c.DatabaseURL), c.MinIO.Endpoint)
}

// maskPassword 隐藏密码
func maskPassword(url string) string {
	re := regexp.MustCompile(`(://[^:]+:)([^@]+)(@)`)
	return re.ReplaceAllString(url, "${1}***${3}")
}

// validate 验证并填充导入配置默认值
func (ic *ImportConfig) validate() {
	if ic.MaxWait == 0 {
		ic.MaxWait = 60 * time.Second
	}
	if ic.TxTimeout == 0 {
		ic.TxTimeout = 300 * time.Second
	}
}
