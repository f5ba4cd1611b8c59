package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/storyvault/services"
	"github.com/cppla/storyvault/utils"
)

// StatsController serves aggregate counters.
type StatsController struct {
	posts *services.PostService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(posts *services.PostService) *StatsController {
	return &StatsController{posts: posts}
}

// GetStats returns active post and author counts. Store failures report zeros.
func (s *StatsController) GetStats(ctx *gin.Context) {
	utils.Success(ctx, s.posts.Stats(ctx.Request.Context()))
}
