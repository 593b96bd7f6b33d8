package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError 带着真实 HTTP 状态码的业务错误。
// Fields 给校验错误携带字段级明细。
type APIError struct {
	Status int               `json:"-"`
	Msg    string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	cause  error
}

func (e *APIError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return http.StatusText(e.Status)
}

func (e *APIError) Unwrap() error { return e.cause }

// 错误分类（见各 handler；所有错误都终结当次请求，不做内部重试）
func Validation(msg string, fields map[string]string) *APIError {
	return &APIError{Status: http.StatusUnprocessableEntity, Msg: msg, Fields: fields}
}

func Unauthorized(msg string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Msg: msg}
}

func NotFound(msg string) *APIError {
	return &APIError{Status: http.StatusNotFound, Msg: msg}
}

// NotImplemented 未完成的功能，和 404 区分开，客户端可识别
func NotImplemented(msg string) *APIError {
	return &APIError{Status: http.StatusNotImplemented, Msg: msg}
}

// UpstreamAuth 第三方登录链路失败，按网关错误上报
func UpstreamAuth(msg string, cause error) *APIError {
	return &APIError{Status: http.StatusBadGateway, Msg: msg, cause: cause}
}

func Internal(msg string, cause error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Msg: msg, cause: cause}
}

// Abort 统一出口：APIError 按自身状态码输出，其余一律 500 且不外漏内部细节
func Abort(c *gin.Context, err error) {
	var ae *APIError
	if errors.As(err, &ae) {
		_ = c.Error(err)
		c.AbortWithStatusJSON(ae.Status, ae)
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, &APIError{
		Status: http.StatusInternalServerError,
		Msg:    "internal error",
	})
}
