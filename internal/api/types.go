package api

import "fmt"

// All endpoints respond with the same envelope: code 200 plus a non-null
// data payload signals success. Post identifiers issued by the server are
// strictly positive; the feed merge relies on that to keep synthetic local
// ids (negative) from ever colliding with real ones.

// PostInfo is one feed page entry as returned by the feed endpoint
type PostInfo struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Author    string  `json:"nickname"`
	AvatarURL *string `json:"avatarUrl"`
	LikeCount int     `json:"likeCount"`
	IsLiked   bool    `json:"isLiked"`
	ImageURL  *string `json:"image"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

// PostDetail carries the canonical post fields, returned by the publish and
// detail endpoints
type PostDetail struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Author    string   `json:"nickname"`
	AvatarURL *string  `json:"avatarUrl"`
	LikeCount int      `json:"likeCount"`
	IsLiked   bool     `json:"isLiked"`
	Images    []string `json:"images"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
}

// CursorPage is one page of the cursor-paginated feed
type CursorPage struct {
	List       []PostInfo `json:"list"`
	NextCursor *string    `json:"nextCursor"`
	HasMore    bool       `json:"hasMore"`
}

// LoginResult is the payload of a successful login
type LoginResult struct {
	Token     string  `json:"token"`
	Nickname  string  `json:"nickname"`
	AvatarURL *string `json:"avatarUrl"`
}

// ServerError is a non-success envelope (code != 200 or missing data).
// Callers treat it as retryable by the same policy as a transport error.
type ServerError struct {
	Code int
	Msg  string
}

func (e *ServerError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("server rejected request (code %d)", e.Code)
	}
	return fmt.Sprintf("server rejected request (code %d): %s", e.Code, e.Msg)
}
