package models

import "time"

// Tool is a listing for a physical tool. Listings are never edited, only created and deleted by their owner.
type Tool struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Title          string      `gorm:"size:255;not null" json:"title"`
	Description    string      `gorm:"type:text" json:"description"`
	Location       string      `gorm:"size:255" json:"location"`
	UserManualPath *string     `gorm:"size:255" json:"user_manual_path"`
	UserID         uint        `gorm:"index;not null" json:"user_id"`
	CreatedAt      time.Time   `json:"created_at"`
	User           User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Images         []ToolImage `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// ToolImage references an original uploaded image. The lowest ID per tool is its representative image.
type ToolImage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ToolID    uint   `gorm:"index;not null" json:"tool_id"`
	ImagePath string `gorm:"size:255;not null" json:"image_path"`
}

// All lists the models that make up the schema, in dependency order.
func All() []interface{} {
	return []interface{}{&User{}, &Tool{}, &ToolImage{}}
}
