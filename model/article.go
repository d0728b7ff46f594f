package model

import "time"

type Article struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Token         string    `json:"token" gorm:"index"`
	Topic         string    `json:"topic" gorm:"not null"`
	Audience      string    `json:"audience"`
	Tone          string    `json:"tone"`
	Title         string    `json:"title"`
	Body          string    `json:"body" gorm:"type:text"`
	Humanized     bool      `json:"humanized" gorm:"not null;default:false"`
	HumanizedBody string    `json:"humanized_body,omitempty" gorm:"type:text"`
	WordCount     int       `json:"word_count"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"not null"`
}

type GeneratedImage struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Token       string    `json:"token" gorm:"index"`
	Prompt      string    `json:"prompt" gorm:"type:text"`
	StyleNotes  string    `json:"style_notes,omitempty" gorm:"type:text"`
	ObjectKey   string    `json:"object_key" gorm:"not null"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null"`
}
