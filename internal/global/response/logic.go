package response

import (
	"errors"
	"fmt"
	"instavision/config"
	"instavision/internal/global/sentry"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// ErrorContextKey 是在 gin.Context 中保存错误对象的键
const ErrorContextKey = "error"

// ResponseBody 统一响应结构
type ResponseBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Success 返回 200；data 可省略
func Success(c *gin.Context, message string, data ...any) {
	write(c, http.StatusOK, message, data)
}

// Created 返回 201
func Created(c *gin.Context, message string, data ...any) {
	write(c, http.StatusCreated, message, data)
}

func write(c *gin.Context, status int, message string, data []any) {
	body := ResponseBody{Success: true, Message: message}
	if len(data) > 0 {
		body.Data = data[0]
	}
	c.JSON(status, body)
}

// Fail 按错误声明的状态码输出统一错误响应，非 *Error 一律视为 500
func Fail(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = ErrInternal.WithOrigin(err)
	}

	c.Set(ErrorContextKey, e)
	if e.Status >= http.StatusInternalServerError {
		sentry.CaptureException(c, e)
	}

	body := ResponseBody{Success: false, Message: e.Message}
	if config.Get().Mode == config.ModeDebug {
		body.Stack = e.Origin
	}
	c.AbortWithStatusJSON(e.Status, body)
}

// Recovery 兜底处理 panic，需在 defer 中调用
func Recovery(c *gin.Context) {
	r := recover()
	if r == nil {
		return
	}
	var err error
	switch v := r.(type) {
	case *Error:
		err = v
	case error:
		err = ErrInternal.WithOrigin(v)
	default:
		err = ErrInternal.WithOrigin(fmt.Errorf("panic: %v\n%s", v, debug.Stack()))
	}
	Fail(c, err)
}
