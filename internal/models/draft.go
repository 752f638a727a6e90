package models

import (
	"encoding/json"
	"time"
)

// Draft holds the single unpublished compose-screen draft. The table only
// ever contains one row (ID = 1), replaced on every save.
type Draft struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Title     string    `json:"title"`
	Content   string    `gorm:"column:content" json:"content"`
	MediaRefs string    `gorm:"type:text;column:media_refs" json:"media_refs"` // JSON array of local references
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Draft) TableName() string {
	return "drafts"
}

// Media decodes the JSON media reference list
func (d *Draft) Media() []string {
	if d.MediaRefs == "" {
		return nil
	}
	var refs []string
	if err := json.Unmarshal([]byte(d.MediaRefs), &refs); err != nil {
		return nil
	}
	return refs
}

// SetMedia encodes the media reference list into the persisted JSON column
func (d *Draft) SetMedia(refs []string) {
	if refs == nil {
		refs = []string{}
	}
	data, _ := json.Marshal(refs)
	d.MediaRefs = string(data)
}
