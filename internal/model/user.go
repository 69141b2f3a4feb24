package model

// Role 用户角色
type Role string

const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
	RoleTeacher Role = "teacher"
)

// Valid 是否为合法角色
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleMentor, RoleTeacher:
		return true
	}
	return false
}

// User 用户表 — 对应 users
// 由外部身份服务写入，本服务只读
type User struct {
	ID       uint   `gorm:"primaryKey"                           json:"id"`
	Username string `gorm:"type:varchar(150);not null;uniqueIndex" json:"username"`
	Email    string `gorm:"type:varchar(254);not null;uniqueIndex" json:"email"`
	Role     Role   `gorm:"type:varchar(10);not null;default:'student'" json:"role"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// Actor 当前请求的操作者（来自身份令牌）
type Actor struct {
	ID   uint
	Role Role
}

// ActorOf 由用户记录构造操作者
func ActorOf(u *User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
