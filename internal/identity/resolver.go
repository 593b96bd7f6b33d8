package identity

import (
	"errors"
	"net/http"
	"strings"

	"timetrkr/internal/core/auth"
	"timetrkr/internal/core/config"
)

// ErrUnauthorized 没有身份且配置不允许匿名，或送来的令牌无效
var ErrUnauthorized = errors.New("unauthorized")

// strategy 从请求里提取用户名。
// 返回 ("", nil) 表示该来源没有身份信息；返回 error 表示来源存在但校验失败
// ——带着无效令牌来比什么都不带更可疑，必须报错而不是落到下一个策略。
type strategy func(r *http.Request) (string, error)

// Resolver 按固定优先级尝试各身份来源：
// 受信转发头 > Authorization Bearer > Cookie 令牌。
// 每个策略由独立的配置开关控制，第一个命中者胜出。
type Resolver struct {
	strategies []strategy
}

func NewResolver(cfg config.Auth, jwter *auth.JWTer) *Resolver {
	var ss []strategy
	if cfg.AllowForwarded {
		header := cfg.ForwardedHeader
		if header == "" {
			header = "x-forwarded-user"
		}
		ss = append(ss, forwardedHeader(header))
	}
	if cfg.AllowToken {
		ss = append(ss, bearerToken(jwter))
		cookie := cfg.CookieName
		if cookie == "" {
			cookie = "tmtrkr-token"
		}
		ss = append(ss, cookieToken(jwter, cookie))
	}
	return &Resolver{strategies: ss}
}

// Resolve 依次执行策略；没有任何来源给出身份时返回 ("", nil)，
// 匿名与未授权的区分交给 Directory。
func (rv *Resolver) Resolve(r *http.Request) (string, error) {
	for _, s := range rv.strategies {
		username, err := s(r)
		if err != nil {
			return "", err
		}
		if username != "" {
			return username, nil
		}
	}
	return "", nil
}

// forwardedHeader 反向代理已经完成认证，头的值原样采信
func forwardedHeader(name string) strategy {
	return func(r *http.Request) (string, error) {
		return strings.TrimSpace(r.Header.Get(name)), nil
	}
}

func bearerToken(jwter *auth.JWTer) strategy {
	return func(r *http.Request) (string, error) {
		ah := r.Header.Get("Authorization")
		if ah == "" {
			return "", nil
		}
		parts := strings.SplitN(ah, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", nil
		}
		claims, err := jwter.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			return "", err
		}
		return claims.Username, nil
	}
}

func cookieToken(jwter *auth.JWTer, name string) strategy {
	return func(r *http.Request) (string, error) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", nil
		}
		claims, err := jwter.Parse(c.Value)
		if err != nil {
			return "", err
		}
		return claims.Username, nil
	}
}
