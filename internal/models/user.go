package models

import (
	"gorm.io/gorm"
)

// User represents a chat user in the system of record.
// Online mirrors whether the hub currently holds a live connection for the user.
type User struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Username    string `json:"username" gorm:"unique;not null"`
	DisplayName string `json:"displayName" gorm:"column:display_name"`
	Password    string `json:"-" gorm:"not null"`
	Online      bool   `json:"online" gorm:"default:false"`
	gorm.Model
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}

// Friendship is a directed social edge. Edges are stored in both
// directions so loading a user's friends is a single indexed query.
type Friendship struct {
	UserID   string `json:"userId" gorm:"column:user_id;index;not null"`
	FriendID string `json:"friendId" gorm:"column:friend_id;not null"`
	gorm.Model
}

// TableName specifies the table name for Friendship Model
func (Friendship) TableName() string {
	return "friendships"
}
