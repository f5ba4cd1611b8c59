package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// tokenBytes is 256 bits of entropy, hex encoded to 64 characters.
const tokenBytes = 32

// ErrTokenEntropy is returned when the secure random source cannot be read.
var ErrTokenEntropy = errors.New("secure random source unavailable")

// TokenPair holds the two independent capability tokens of a post.
type TokenPair struct {
	EditToken   string
	DeleteToken string
}

// TokenIssuer produces capability tokens for new posts.
type TokenIssuer interface {
	IssueTokenPair() (TokenPair, error)
}

// RandomTokenIssuer draws tokens from Reader, crypto/rand by default.
type RandomTokenIssuer struct {
	Reader io.Reader
}

// NewTokenIssuer returns a RandomTokenIssuer backed by crypto/rand.
func NewTokenIssuer() *RandomTokenIssuer {
	return &RandomTokenIssuer{Reader: rand.Reader}
}

// IssueTokenPair returns two distinct tokens. It never degrades to a weaker source.
func (i *RandomTokenIssuer) IssueTokenPair() (TokenPair, error) {
	edit, err := i.draw()
	if err != nil {
		return TokenPair{}, err
	}
	del, err := i.draw()
	if err != nil {
		return TokenPair{}, err
	}
	if del == edit {
		if del, err = i.draw(); err != nil {
			return TokenPair{}, err
		}
		if del == edit {
			return TokenPair{}, fmt.Errorf("%w: repeated token value", ErrTokenEntropy)
		}
	}
	return TokenPair{EditToken: edit, DeleteToken: del}, nil
}

func (i *RandomTokenIssuer) draw() (string, error) {
	r := i.Reader
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenEntropy, err)
	}
	return hex.EncodeToString(buf), nil
}
