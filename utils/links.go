package utils

import (
	"net/url"
	"strings"

	"github.com/cppla/storyvault/models"
)

// Links are the two management URLs mailed to a post's author.
type Links struct {
	Edit   string
	Delete string
}

// ManagementLinks builds absolute edit and delete URLs under baseURL.
func ManagementLinks(baseURL string, post *models.Post) Links {
	base := strings.TrimRight(baseURL, "/")
	return Links{
		Edit:   base + "/post/edit/" + url.PathEscape(post.EditToken),
		Delete: base + "/post/delete/" + url.PathEscape(post.DeleteToken),
	}
}
