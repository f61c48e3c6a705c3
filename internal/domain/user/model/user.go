package model

import (
	baseModel "storefront/pkg/model"
)

// User 本地用户记录，以 Clerk 用户 ID 为业务主键
// 凭证与会话由 Clerk 管理，这里只存身份同步下来的资料
type User struct {
	baseModel.BaseModel
	ClerkID      string `gorm:"uniqueIndex;not null" json:"clerkId"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	ProfileImage string `json:"profileImage"`
	Phone        string `json:"phone"`
}
