package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/storyvault/services"
	"github.com/cppla/storyvault/utils"
)

// ConfigController serves the settings a client needs to render its forms.
type ConfigController struct {
	captchaEnabled bool
	pageSize       int
}

func NewConfigController(captchaEnabled bool, pageSize int) *ConfigController {
	return &ConfigController{captchaEnabled: captchaEnabled, pageSize: pageSize}
}

// GetPublicConfig returns form limits and lifecycle windows in seconds.
func (c *ConfigController) GetPublicConfig(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"captcha_enabled":       c.captchaEnabled,
		"page_size":             c.pageSize,
		"rate_limit_seconds":    int(services.RateLimitWindow.Seconds()),
		"edit_window_seconds":   int(services.EditWindow.Seconds()),
		"delete_window_seconds": int(services.DeleteWindow.Seconds()),
		"author_min_length":     authorMinLen,
		"author_max_length":     authorMaxLen,
		"message_min_length":    messageMinLen,
		"message_max_length":    messageMaxLen,
	})
}
