package dto

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	Role string `form:"role" binding:"omitempty,oneof=student mentor teacher"`
}

// AnnouncementListRequest 公告列表查询参数
type AnnouncementListRequest struct {
	Source string `form:"source"`
}

// SubmittedQuery 列表查询参数：submitted=true 只看本人提交
type SubmittedQuery struct {
	Submitted bool `form:"submitted"`
}
