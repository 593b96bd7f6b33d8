package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name      string
	Env       string
	APIPrefix string
	HTTP      HTTP
	Admin     AdminHTTP
}

type Log struct {
	Level string
	JSON  bool
}

// Auth 身份识别相关开关（见 identity.Resolver 的策略顺序）
type Auth struct {
	Secret          string
	TokenTTLMin     int
	AllowForwarded  bool   // 信任反向代理注入的用户头
	ForwardedHeader string // 默认 x-forwarded-user
	AllowToken      bool   // 允许 Bearer / Cookie 中的签名令牌
	CookieName      string // 默认 tmtrkr-token
	AllowUnknown    bool   // 允许匿名访问
	AutoCreate      bool   // 首次出现的用户名自动建档
}

// OAuth2 第三方委托登录（google 风格的 OIDC metadata 发现）
type OAuth2 struct {
	ClientID      string
	ClientSecret  string
	MetadataURL   string
	Scope         string
	RedirectURL   string
	UsernameField string // userinfo 里取哪个字段当用户名，默认 email
	FinalURL      string // 登录完成后的落地页
	TimeoutSec    int
}

type API struct {
	PageSizeLimit int // 列表接口 limit 上限（同时是默认值）
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App    App
	Log    Log
	Auth   Auth
	OAuth2 OAuth2
	API    API
	DB     DB
	Redis  Redis `mapstructure:"redis"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "timetrkr")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.apiprefix", "/api")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8000)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8001)

	v.SetDefault("log.level", "info")

	v.SetDefault("auth.tokenttlmin", 60)
	v.SetDefault("auth.allowforwarded", true)
	v.SetDefault("auth.forwardedheader", "x-forwarded-user")
	v.SetDefault("auth.allowtoken", true)
	v.SetDefault("auth.cookiename", "tmtrkr-token")
	v.SetDefault("auth.allowunknown", false)
	v.SetDefault("auth.autocreate", true)

	v.SetDefault("oauth2.metadataurl", "https://accounts.google.com/.well-known/openid-configuration")
	v.SetDefault("oauth2.scope", "openid email profile")
	v.SetDefault("oauth2.usernamefield", "email")
	v.SetDefault("oauth2.finalurl", "/?oauth2")
	v.SetDefault("oauth2.timeoutsec", 10)

	v.SetDefault("api.pagesizelimit", 1000)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "db.sqlite")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 5)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.loglevel", "warn")
}

func Load(path string) *Config {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 配置文件缺失时退回默认值 + 环境变量
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("read config: %v (using defaults)", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}

// TokenTTL 签发令牌的有效期
func (a Auth) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMin) * time.Minute
}
