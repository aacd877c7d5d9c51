package model

// Role 用户角色
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// Status 账号状态，inactive 禁止登录
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type User struct {
	Model
	FullName          string  `gorm:"type:varchar(255);not null" json:"full_name" excel:"Full Name"`
	Email             string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" excel:"Email"`
	Password          string  `gorm:"type:varchar(255);not null" json:"-" excel:"-"`
	CollegeUniversity string  `gorm:"type:varchar(255);not null" json:"college_university" excel:"College/University"`
	Course            string  `gorm:"type:varchar(255);not null" json:"course" excel:"Course"`
	BatchNo           string  `gorm:"type:varchar(100);not null" json:"batch_no" excel:"Batch No"`
	RegNo             string  `gorm:"type:varchar(100);uniqueIndex;not null" json:"reg_no" excel:"Reg No"`
	Role              Role    `gorm:"type:varchar(20);default:student;not null" json:"role" excel:"Role"`
	Bio               *string `gorm:"type:text" json:"bio" excel:"Bio"`
	ProfileImageURL   *string `gorm:"type:varchar(500)" json:"profile_image_url" excel:"Profile Image"`
	Status            Status  `gorm:"type:varchar(20);default:active;index;not null" json:"status" excel:"Status"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
