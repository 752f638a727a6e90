package api

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const envelopeOK = 200

// TokenProvider supplies the current auth token, or "" when logged out
type TokenProvider func() string

// Client talks to the NoteFeed backend. One instance is shared between the
// upload worker and the feed screen; resty is safe for concurrent use.
type Client struct {
	baseURL     string
	http        *resty.Client
	token       TokenProvider
	detailCache *detailCache
}

// NewClient creates a new backend API client
func NewClient(baseURL string, token TokenProvider) *Client {
	client := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		detailCache: newDetailCache(64),
	}

	// Configure resty client. The timeout bounds every call made by the
	// upload worker; the worker itself never retries in-line, so the retry
	// condition here only smooths over rate limiting and brief 5xx blips.
	client.http = resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		}).
		OnBeforeRequest(func(c *resty.Client, r *resty.Request) error {
			if token != nil {
				if t := token(); t != "" {
					r.SetHeader("Authorization", "Bearer "+t)
				}
			}
			return nil
		})

	return client
}

// MediaFile is one binary part of a multipart publish request
type MediaFile struct {
	Name   string
	Reader io.Reader
}

// PublishRequest carries the content fields and media parts of one publish call
type PublishRequest struct {
	Title     string
	Content   string
	ImgWidth  int
	ImgHeight int
	Files     []MediaFile
}

// Login authenticates and returns the issued token with the user's profile
func (c *Client) Login(username, password string) (*LoginResult, error) {
	resp, err := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"username": username, "password": password}).
		Post(c.buildURL("users/login"))
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}

	var envelope struct {
		Code int          `json:"code"`
		Msg  string       `json:"msg"`
		Data *LoginResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}
	if envelope.Code != envelopeOK || envelope.Data == nil {
		return nil, &ServerError{Code: envelope.Code, Msg: envelope.Msg}
	}
	return envelope.Data, nil
}

// Feed fetches one page of the feed. An empty cursor requests the first page.
func (c *Client) Feed(cursor string, size int) (*CursorPage, error) {
	req := c.http.R().SetQueryParam("size", strconv.Itoa(size))
	if cursor != "" {
		req.SetQueryParam("lastId", cursor)
	}

	resp, err := req.Get(c.buildURL("posts/feed"))
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}

	var envelope struct {
		Code int         `json:"code"`
		Msg  string      `json:"msg"`
		Data *CursorPage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse feed response: %w", err)
	}
	if envelope.Code != envelopeOK || envelope.Data == nil {
		return nil, &ServerError{Code: envelope.Code, Msg: envelope.Msg}
	}
	return envelope.Data, nil
}

// PublishPost uploads one post as a multipart request (content fields plus
// one binary part per media item) and returns the canonical server post
func (c *Client) PublishPost(req PublishRequest) (*PostDetail, error) {
	r := c.http.R().
		SetMultipartFormData(map[string]string{
			"title":     req.Title,
			"content":   req.Content,
			"imgWidth":  strconv.Itoa(req.ImgWidth),
			"imgHeight": strconv.Itoa(req.ImgHeight),
		})
	for _, f := range req.Files {
		r.SetMultipartField("files", f.Name, "image/*", f.Reader)
	}

	resp, err := r.Post(c.buildURL("posts/publish"))
	if err != nil {
		return nil, fmt.Errorf("publish request failed: %w", err)
	}

	var envelope struct {
		Code int         `json:"code"`
		Msg  string      `json:"msg"`
		Data *PostDetail `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse publish response: %w", err)
	}
	if envelope.Code != envelopeOK || envelope.Data == nil {
		return nil, &ServerError{Code: envelope.Code, Msg: envelope.Msg}
	}
	return envelope.Data, nil
}

// Like sets the like state of a post
func (c *Client) Like(targetID int64, isLiked bool) error {
	resp, err := c.http.R().
		SetQueryParam("targetId", strconv.FormatInt(targetID, 10)).
		SetQueryParam("isLike", strconv.FormatBool(isLiked)).
		Post(c.buildURL("posts/like"))
	if err != nil {
		return fmt.Errorf("like request failed: %w", err)
	}

	var envelope struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data *bool  `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("failed to parse like response: %w", err)
	}
	if envelope.Code != envelopeOK {
		return &ServerError{Code: envelope.Code, Msg: envelope.Msg}
	}

	// A confirmed like invalidates any cached detail for the post
	c.detailCache.Remove(targetID)
	return nil
}

// GetPost fetches the detail view of a post (with caching)
func (c *Client) GetPost(id int64) (*PostDetail, error) {
	if detail, ok := c.detailCache.Get(id); ok {
		return detail, nil
	}

	resp, err := c.http.R().Get(c.buildURL(fmt.Sprintf("posts/%d", id)))
	if err != nil {
		return nil, fmt.Errorf("detail request failed: %w", err)
	}

	var envelope struct {
		Code int         `json:"code"`
		Msg  string      `json:"msg"`
		Data *PostDetail `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse detail response: %w", err)
	}
	if envelope.Code != envelopeOK || envelope.Data == nil {
		return nil, &ServerError{Code: envelope.Code, Msg: envelope.Msg}
	}

	c.detailCache.Put(id, envelope.Data)
	return envelope.Data, nil
}

// buildURL constructs the full URL for an endpoint
func (c *Client) buildURL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}

// SetTimeout allows customizing the timeout for specific operations
func (c *Client) SetTimeout(timeout time.Duration) {
	c.http.SetTimeout(timeout)
}
