package public

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/gateway"
	"github.com/herdbook/paycore/internal/http/response"
	"github.com/herdbook/paycore/internal/logger"
)

const maxCallbackBodySize = 1 << 20 // 1MB

// HandleCallback 网关回调入口
// GET/POST /api/v1/payments/callback/:gateway
//
// 浏览器跳转流（表单/查询参数）以重定向响应，携带 success/failed 标记；
// 服务端通知流（JSON webhook）以纯 200/400 响应。
// 对账结果不向网关泄露失败细节。
func (h *Handler) HandleCallback(c *gin.Context) {
	gatewayName := c.Param("gateway")

	req, err := buildCallbackRequest(c)
	if err != nil {
		logger.Warnw("payment_callback_unreadable", "gateway", gatewayName, "error", err)
		h.respondFailure(c, "")
		return
	}

	outcome, err := h.reconcileService.HandleCallback(c.Request.Context(), gatewayName, req)
	if err != nil {
		h.respondFailure(c, "")
		return
	}
	h.respondSuccess(c, outcome.OrderID)
}

// buildCallbackRequest 组装回调载荷：原始报文体 + 合并后的表单 + 请求头
func buildCallbackRequest(c *gin.Context) (*gateway.CallbackRequest, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBodySize))
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	for key, values := range c.Request.URL.Query() {
		form[key] = values
	}
	contentType := c.ContentType()
	if len(body) > 0 && strings.Contains(contentType, "application/x-www-form-urlencoded") {
		parsed, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		for key, values := range parsed {
			form[key] = values
		}
	}

	return &gateway.CallbackRequest{
		Form:   form,
		Body:   body,
		Header: c.Request.Header,
	}, nil
}

func (h *Handler) respondSuccess(c *gin.Context, orderID string) {
	if isServerNotification(c) {
		c.String(http.StatusOK, "OK")
		return
	}
	c.Redirect(http.StatusFound, h.resultRedirect(orderID, constants.RedirectResultSuccess))
}

func (h *Handler) respondFailure(c *gin.Context, orderID string) {
	if isServerNotification(c) {
		response.BadRequest(c, "callback rejected")
		return
	}
	c.Redirect(http.StatusFound, h.resultRedirect(orderID, constants.RedirectResultFailed))
}

// isServerNotification JSON 报文体来自网关服务端，而非浏览器跳转
func isServerNotification(c *gin.Context) bool {
	return strings.Contains(c.ContentType(), "application/json")
}

func (h *Handler) resultRedirect(orderID, result string) string {
	target := fmt.Sprintf("%s?status=%s", h.resultURL, result)
	if orderID != "" {
		target += "&order=" + url.QueryEscape(orderID)
	}
	return target
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || value == 0 {
		response.BadRequest(c, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return uint(value), true
}
