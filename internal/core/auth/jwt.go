package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 签名不对、载荷不全或已过期
var ErrInvalidToken = errors.New("invalid token")

// Claims 签名令牌的载荷：用户名必填，用户 ID 可空（匿名签发场景）
type Claims struct {
	Username string `json:"username"`
	UserID   *uint  `json:"userid,omitempty"`
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Issue 签发令牌。过期时间一律由服务端按 TTL 盖章，不接受调用方指定。
func (j *JWTer) Issue(username string, userID *uint) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", fmt.Errorf("issue token: %w: empty username", ErrInvalidToken)
	}
	now := time.Now()
	claims := Claims{
		Username: strings.TrimSpace(username),
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl())),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// Parse 校验并解出载荷；任何失败都折叠成 ErrInvalidToken，
// 供客户端的诊断信息做了截断。
func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, truncate(err.Error(), 80))
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(c.Username) == "" {
		return nil, fmt.Errorf("%w: empty username", ErrInvalidToken)
	}
	if c.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: no expiry", ErrInvalidToken)
	}
	return c, nil
}

func (j *JWTer) ttl() time.Duration {
	if j.TTL == 0 {
		return time.Hour
	}
	return j.TTL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
