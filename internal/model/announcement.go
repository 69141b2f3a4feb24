package model

// AnnouncementType 公告类型
type AnnouncementType string

const (
	AnnouncementNotice  AnnouncementType = "notice"
	AnnouncementGeneral AnnouncementType = "announcement"
	AnnouncementWarning AnnouncementType = "warning"
)

// Announcement 系统公告表 — 对应 announcements
// 由管理端维护，本服务只读
type Announcement struct {
	ID      uint             `gorm:"primaryKey"                                  json:"id"`
	Title   string           `gorm:"type:varchar(200);not null"                  json:"title"`
	Content string           `gorm:"type:text;not null"                          json:"content"`
	Type    AnnouncementType `gorm:"type:varchar(20);not null;default:'notice'"  json:"type"`
	Source  *WorkloadSource  `gorm:"type:varchar(20);index"                      json:"source,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Announcement) TableName() string { return "announcements" }
