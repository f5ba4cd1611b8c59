package services

import (
	"fmt"
	"time"

	"github.com/cppla/storyvault/models"
)

// ResultKind tags the outcome of a lifecycle operation.
type ResultKind int

const (
	KindOK ResultKind = iota
	KindRateLimited
	KindCreationFailed
	KindUnavailable
	KindFailed
)

func (k ResultKind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindRateLimited:
		return "rate_limited"
	case KindCreationFailed:
		return "creation_failed"
	case KindUnavailable:
		return "unavailable"
	case KindFailed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// User facing messages. They never carry storage details.
const (
	MsgCreated           = "Your post has been published. Check your email for the management links."
	MsgCreationFailed    = "The post could not be created. Please try again later."
	MsgUpdated           = "The post has been updated."
	MsgDeleted           = "The post has been deleted."
	MsgEditUnavailable   = "The post was not found or can no longer be edited."
	MsgDeleteUnavailable = "The post was not found or can no longer be deleted."
	MsgSystemError       = "A system error occurred. Please try again later."
)

// Result is the outcome of CreatePost, UpdatePostByToken and DeletePostByToken.
// Post is set only for KindOK; the rate limit fields only for KindRateLimited.
type Result struct {
	Kind             ResultKind
	Message          string
	Post             *models.Post
	RemainingSeconds int
	NextPostTime     time.Time
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Kind == KindOK }

func rateLimitedResult(author *models.Author, now time.Time) Result {
	remaining := RemainingSeconds(author, now)
	next := NextPostTime(author, now)
	return Result{
		Kind:             KindRateLimited,
		Message:          fmt.Sprintf("You can publish your next post in %d seconds (at %s UTC).", remaining, next.UTC().Format("15:04:05")),
		RemainingSeconds: remaining,
		NextPostTime:     next,
	}
}

// PostsPage is one page of the public post list.
type PostsPage struct {
	Posts      []models.Post
	TotalCount int64
	Page       int
	PageSize   int
	// IPPostCounts maps an author IP to the active posts made from it.
	IPPostCounts map[string]int64
	// Degraded is set when the store failed and an empty page was substituted.
	Degraded bool
}

// TotalPages is the number of pages at the current page size.
func (p PostsPage) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.TotalCount + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Stats are aggregate counters for the public stats endpoint.
type Stats struct {
	PostCount   int64 `json:"post_count"`
	AuthorCount int64 `json:"author_count"`
}
