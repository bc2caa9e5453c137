package models

import "time"

// Document is a schemaless record in one of the document store collections.
// Data never contains the identifier; it lives in ID.
type Document struct {
	ID   string                 `json:"id"`
	Data map[string]interface{} `json:"data"`
}

// DocumentQuery describes a live query over a single collection.
type DocumentQuery struct {
	Collection string
	OrderBy    string // field name, ascending; empty keeps store order
	Limit      int    // 0 means no limit
}

// DocumentRecord is the GORM row backing a document.
type DocumentRecord struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	Collection string `gorm:"index;type:varchar(64);not null"`
	Data       string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DocumentRecord) TableName() string {
	return "documents"
}
