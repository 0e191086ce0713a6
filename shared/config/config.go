package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	JwtTTL     time.Duration `yaml:"jwt_ttl" validate:"required"`     // access token lifetime
	RefreshTTL time.Duration `yaml:"refresh_ttl" validate:"required"` // refresh token lifetime

	// Authors may delete their own post for this long after creation (inclusive).
	PostDeletionWindow time.Duration `yaml:"post_deletion_window" validate:"required"`
	MaxCommentDepth    int           `yaml:"max_comment_depth" validate:"required,min=1"`
	PageSize           int           `yaml:"page_size" validate:"required,min=1"`

	SanctionCacheInterval time.Duration `yaml:"sanction_cache_interval" validate:"required"`
	ConfirmationCodeLen   int           `yaml:"confirmation_code_len" validate:"required,min=4,max=32"`
	ConfirmationCodeTTL   time.Duration `yaml:"confirmation_code_ttl" validate:"required"`

	LogLevel       string   `yaml:"log_level"`
	LogJSON        bool     `yaml:"log_json"`
	SecureCookies  bool     `yaml:"secure_cookies"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Pg struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password" validate:"required"`
	Dbname   string `yaml:"dbname" validate:"required"`
}

type Email struct {
	SMTPServer  string `yaml:"smtp_server"`
	SMTPPort    int    `yaml:"smtp_port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	SenderName  string `yaml:"sender_name"`
	SenderEmail string `yaml:"sender_email"`
	Timeout     int    `yaml:"timeout"` // seconds
}

type Private struct {
	Pg            Pg     `yaml:"pg" validate:"required"`
	JwtKey        string `yaml:"jwt_key" validate:"required"`
	EncryptionKey string `yaml:"encryption_key" validate:"required"` // base64, 32 bytes
	Email         Email  `yaml:"email"`
}

func (c *Config) JwtKey() string {
	return c.Private.JwtKey
}

func (c *Config) JwtTTL() time.Duration {
	return c.Public.JwtTTL
}

// Defaults fills zero values that have a sensible default.
func (p *Public) Defaults() {
	if p.PostDeletionWindow == 0 {
		p.PostDeletionWindow = 30 * time.Minute
	}
	if p.MaxCommentDepth == 0 {
		p.MaxCommentDepth = 5
	}
	if p.PageSize == 0 {
		p.PageSize = 50
	}
	if p.ConfirmationCodeLen == 0 {
		p.ConfirmationCodeLen = 8
	}
	if p.ConfirmationCodeTTL == 0 {
		p.ConfirmationCodeTTL = 10 * time.Minute
	}
	if p.SanctionCacheInterval == 0 {
		p.SanctionCacheInterval = time.Minute
	}
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file: " + configPath)
	}

	if err = yaml.Unmarshal(configFile, output); err != nil {
		panic(fmt.Sprintf("can't unmarshal config file %s: %v", configPath, err))
	}
}

func mustValidate(v any) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(v); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
}

// MustLoad reads public.yaml and private.yaml from configFolder and panics on any
// missing or invalid required field.
func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)
	public.Defaults()
	mustValidate(&public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)
	mustValidate(&private)

	return &Config{Public: public, Private: private}
}
