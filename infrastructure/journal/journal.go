package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventRecord is one inbound feed event, persisted for the console's event
// browser. Payload keeps the raw JSON exactly as delivered.
type EventRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"_id"`
	ChannelID string    `gorm:"index;size:64" json:"channelId"`
	Event     string    `gorm:"index;size:48" json:"event"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

func (EventRecord) TableName() string {
	return "feed_events"
}

// Page is a paginated slice of the journal, mirroring the listing shape the
// console UI consumes.
type Page struct {
	Docs        []EventRecord `json:"docs"`
	TotalDocs   int64         `json:"totalDocs"`
	Limit       int           `json:"limit"`
	TotalPages  int           `json:"totalPages"`
	Page        int           `json:"page"`
	HasPrevPage bool          `json:"hasPrevPage"`
	HasNextPage bool          `json:"hasNextPage"`
	PrevPage    *int          `json:"prevPage"`
	NextPage    *int          `json:"nextPage"`
}

// Journal persists inbound feed events.
type Journal struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*Journal, error) {
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Record appends one event. Journal failures are logged, never propagated:
// the reconciler must keep applying events even when the disk is unhappy.
func (j *Journal) Record(event, channelID string, payload []byte) {
	record := EventRecord{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Event:     event,
		Payload:   string(payload),
		CreatedAt: time.Now().UTC(),
	}
	if err := j.db.Create(&record).Error; err != nil {
		logrus.Errorf("[JOURNAL] Failed to record %s event: %v", event, err)
	}
}

// List returns one page of events, newest first, optionally filtered by
// channel.
func (j *Journal) List(channelID string, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}

	query := j.db.Model(&EventRecord{})
	if channelID != "" {
		query = query.Where("channel_id = ?", channelID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return Page{}, err
	}

	var docs []EventRecord
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return Page{}, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	result := Page{
		Docs:        docs,
		TotalDocs:   total,
		Limit:       limit,
		TotalPages:  totalPages,
		Page:        page,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
	}
	if result.HasPrevPage {
		prev := page - 1
		result.PrevPage = &prev
	}
	if result.HasNextPage {
		next := page + 1
		result.NextPage = &next
	}
	return result, nil
}
