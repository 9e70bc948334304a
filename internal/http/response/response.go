package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body 统一响应结构
type Body struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageData 分页数据
type PageData struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
}

// OK 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: 0, Message: "ok", Data: data})
}

// Page 分页成功响应
func Page(c *gin.Context, list interface{}, total int64) {
	OK(c, PageData{List: list, Total: total})
}

// BadRequest 参数或业务校验失败
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Body{Code: http.StatusBadRequest, Message: message})
}

// Unauthorized 未认证
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Body{Code: http.StatusUnauthorized, Message: message})
}

// NotFound 资源不存在
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Body{Code: http.StatusNotFound, Message: message})
}

// TooManyRequests 触发限流
func TooManyRequests(c *gin.Context, message string) {
	c.JSON(http.StatusTooManyRequests, Body{Code: http.StatusTooManyRequests, Message: message})
}

// ServerError 服务端错误
func ServerError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Body{Code: http.StatusInternalServerError, Message: message})
}
