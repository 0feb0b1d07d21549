package models

import "time"

// User is a recruiter account. Candidates never have accounts; they
// submit applications through the public endpoint.
type User struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"column:username;type:text;uniqueIndex" json:"username"`
	Email        string    `gorm:"column:email;type:text" json:"email"`
	FirstName    string    `gorm:"column:first_name;type:text" json:"first_name"`
	LastName     string    `gorm:"column:last_name;type:text" json:"last_name"`
	PasswordHash string    `gorm:"column:password_hash;type:text" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (User) TableName() string { return "users" }

func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}
