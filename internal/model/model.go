package model

import (
	"time"
)

// Model 公共字段；用户目录采用硬删除，不带 DeletedAt
type Model struct {
	ID        uint      `gorm:"primaryKey" json:"id" excel:"ID"`
	CreatedAt time.Time `gorm:"index" json:"created_at" excel:"Created At"`
	UpdatedAt time.Time `json:"updated_at" excel:"Updated At"`
}
