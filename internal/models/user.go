package models

// User is an account of the chat application. Role references Role.Name.
type User struct {
	Base
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `gorm:"index;not null;default:USER" json:"role"`
}
