package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/cppla/storyvault/models"
	"github.com/cppla/storyvault/services"
	"github.com/cppla/storyvault/utils"
)

// Field limits of the submission and edit forms, counted in characters.
const (
	authorMinLen  = 2
	authorMaxLen  = 15
	emailMaxLen   = 255
	messageMinLen = 5
	messageMaxLen = 1000
)

// PostControllerOptions tunes the post endpoints.
type PostControllerOptions struct {
	CaptchaEnabled  bool
	DefaultPageSize int
	CacheTTL        time.Duration
}

// PostController exposes the post lifecycle over HTTP.
type PostController struct {
	posts *services.PostService
	opts  PostControllerOptions
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService, opts PostControllerOptions) *PostController {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	return &PostController{posts: posts, opts: opts}
}

type createPostRequest struct {
	Author    string `json:"author" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Message   string `json:"message" binding:"required"`
	CaptchaID string `json:"captcha_id"`
	Captcha   string `json:"captcha"`
}

type updatePostRequest struct {
	Message string `json:"message" binding:"required"`
}

// postView is the public shape of a listed post.
type postView struct {
	ID          uint      `json:"id"`
	AuthorName  string    `json:"author_name"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	MaskedIP    string    `json:"masked_ip"`
	PostsFromIP int64     `json:"posts_from_ip"`
}

func newPostView(p models.Post, counts map[string]int64) postView {
	return postView{
		ID:          p.ID,
		AuthorName:  p.Author.Name,
		Message:     utils.SanitizeMessage(p.Message),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		MaskedIP:    utils.MaskIP(p.Author.IPAddress),
		PostsFromIP: counts[p.Author.IPAddress],
	}
}

// manageView is returned to holders of a capability token.
type manageView struct {
	ID          uint      `json:"id"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AvailableTo time.Time `json:"available_until"`
}

func newManageView(p *models.Post, window time.Duration) manageView {
	return manageView{
		ID:          p.ID,
		AuthorName:  p.Author.Name,
		AuthorEmail: p.Author.Email,
		Message:     p.Message,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		AvailableTo: p.CreatedAt.Add(window),
	}
}

// ListPosts returns the active posts, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), p.opts.DefaultPageSize)

	cacheKey := utils.PostListCacheKey(page, pageSize)
	if b, ok := utils.CacheGetBytes(ctx.Request.Context(), cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	result := p.posts.ListPosts(ctx.Request.Context(), page, pageSize)
	items := make([]postView, 0, len(result.Posts))
	for _, post := range result.Posts {
		items = append(items, newPostView(post, result.IPPostCounts))
	}

	payload := gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        result.Page,
			"page_size":   result.PageSize,
			"total":       result.TotalCount,
			"total_pages": result.TotalPages(),
		},
		"degraded": result.Degraded,
	}
	if !result.Degraded {
		utils.CacheSetJSON(ctx.Request.Context(), cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, p.opts.CacheTTL)
	}
	utils.Success(ctx, payload)
}

// CreatePost publishes a new post for the submitting author.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req createPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	req.Author = strings.TrimSpace(req.Author)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)

	if n := utf8.RuneCountInString(req.Author); n < authorMinLen || n > authorMaxLen {
		utils.Error(ctx, http.StatusBadRequest, 40021, "author must be between 2 and 15 characters")
		return
	}
	if len(req.Email) > emailMaxLen {
		utils.Error(ctx, http.StatusBadRequest, 40022, "email is too long")
		return
	}
	if msg, ok := validateMessage(req.Message); !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, msg)
		return
	}
	if p.opts.CaptchaEnabled && !utils.VerifyCaptcha(req.CaptchaID, strings.TrimSpace(req.Captcha)) {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid captcha")
		return
	}

	ip := utils.NormalizeClientIP(ctx.ClientIP())
	res := p.posts.CreatePost(ctx.Request.Context(), services.PostForm{
		Author:  req.Author,
		Email:   req.Email,
		Message: req.Message,
	}, ip)
	utils.ObservePostOperation("create", res.Kind.String())

	switch res.Kind {
	case services.KindOK:
		utils.InvalidateByPrefix(ctx.Request.Context(), utils.PostListCachePrefix)
		utils.SuccessMessage(ctx, http.StatusCreated, res.Message, gin.H{
			"post": newPostView(*res.Post, nil),
		})
	case services.KindRateLimited:
		ctx.Header("Retry-After", strconv.Itoa(res.RemainingSeconds))
		utils.ErrorWithData(ctx, http.StatusTooManyRequests, 42910, res.Message, gin.H{
			"remaining_seconds": res.RemainingSeconds,
			"next_post_time":    res.NextPostTime,
		})
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50020, res.Message)
	}
}

// GetEditPost returns an editable post for the holder of its edit token.
func (p *PostController) GetEditPost(ctx *gin.Context) {
	post, ok := p.posts.GetPostForEdit(ctx.Request.Context(), ctx.Param("token"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40410, services.MsgEditUnavailable)
		return
	}
	utils.Success(ctx, gin.H{"post": newManageView(post, services.EditWindow)})
}

// UpdatePost replaces the message of an editable post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req updatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if msg, ok := validateMessage(req.Message); !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, msg)
		return
	}

	res := p.posts.UpdatePostByToken(ctx.Request.Context(), ctx.Param("token"), req.Message)
	utils.ObservePostOperation("update", res.Kind.String())
	switch res.Kind {
	case services.KindOK:
		utils.InvalidateByPrefix(ctx.Request.Context(), utils.PostListCachePrefix)
		utils.SuccessMessage(ctx, http.StatusOK, res.Message, gin.H{
			"post": newManageView(res.Post, services.EditWindow),
		})
	case services.KindUnavailable:
		utils.Error(ctx, http.StatusNotFound, 40410, res.Message)
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50021, res.Message)
	}
}

// GetDeletePost returns a deletable post for the holder of its delete token.
func (p *PostController) GetDeletePost(ctx *gin.Context) {
	post, ok := p.posts.GetPostForDelete(ctx.Request.Context(), ctx.Param("token"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40411, services.MsgDeleteUnavailable)
		return
	}
	utils.Success(ctx, gin.H{"post": newManageView(post, services.DeleteWindow)})
}

// DeletePost soft deletes a post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	res := p.posts.DeletePostByToken(ctx.Request.Context(), ctx.Param("token"))
	utils.ObservePostOperation("delete", res.Kind.String())
	switch res.Kind {
	case services.KindOK:
		utils.InvalidateByPrefix(ctx.Request.Context(), utils.PostListCachePrefix)
		utils.SuccessMessage(ctx, http.StatusOK, res.Message, nil)
	case services.KindUnavailable:
		utils.Error(ctx, http.StatusNotFound, 40411, res.Message)
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50022, res.Message)
	}
}

// Captcha issues a new captcha image for the submission form.
func (p *PostController) Captcha(ctx *gin.Context) {
	if !p.opts.CaptchaEnabled {
		utils.Success(ctx, gin.H{"enabled": false})
		return
	}
	id, image, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"enabled": true, "captcha_id": id, "image": image})
}

func validateMessage(message string) (string, bool) {
	if n := utf8.RuneCountInString(message); n < messageMinLen || n > messageMaxLen {
		return "message must be between 5 and 1000 characters", false
	}
	return "", true
}

func parsePagination(pageStr, sizeStr string, defaultSize int) (int, int) {
	page := 1
	pageSize := defaultSize
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}
