package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task status codes, persisted as integers
const (
	StatusPending   = 0
	StatusUploading = 1
	StatusSucceeded = 2
	StatusFailed    = 3
)

// PublishTask represents one pending publish attempt, tracked from
// submission until a terminal outcome. Rows in a terminal state are removed
// by the startup cleanup pass.
type PublishTask struct {
	LocalID    string  `gorm:"primaryKey;column:local_id" json:"local_id"`
	ServerID   *int64  `gorm:"column:server_id" json:"server_id"`
	Status     int     `gorm:"not null;default:0" json:"status"`
	Progress   int     `gorm:"not null;default:0" json:"progress"` // 0-100, advisory
	ErrorMsg   *string `gorm:"column:error_msg" json:"error_msg"`
	Title      string  `gorm:"not null" json:"title"`
	Content    string  `gorm:"not null;column:content" json:"content"`
	MediaRefs  string  `gorm:"type:text;column:media_refs" json:"media_refs"`  // JSON array of local references
	CreateTime int64   `gorm:"not null;column:create_time" json:"create_time"` // epoch millis
}

// BeforeCreate hook to generate UUID and creation time before creating record
func (pt *PublishTask) BeforeCreate(tx *gorm.DB) error {
	if pt.LocalID == "" {
		pt.LocalID = uuid.New().String()
	}
	if pt.CreateTime == 0 {
		pt.CreateTime = time.Now().UnixMilli()
	}
	return nil
}

// TableName specifies the table name for GORM
func (PublishTask) TableName() string {
	return "publish_tasks"
}

// Terminal reports whether the task has reached a final state
func (pt *PublishTask) Terminal() bool {
	return pt.Status == StatusSucceeded || pt.Status == StatusFailed
}

// Media decodes the JSON media reference list. A malformed column yields an
// empty list rather than an error, matching insertion which always writes
// valid JSON.
func (pt *PublishTask) Media() []string {
	if pt.MediaRefs == "" {
		return nil
	}
	var refs []string
	if err := json.Unmarshal([]byte(pt.MediaRefs), &refs); err != nil {
		return nil
	}
	return refs
}

// SetMedia encodes the media reference list into the persisted JSON column
func (pt *PublishTask) SetMedia(refs []string) {
	if refs == nil {
		refs = []string{}
	}
	data, _ := json.Marshal(refs)
	pt.MediaRefs = string(data)
}
