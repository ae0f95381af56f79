package handlers

import (
	"net/http"

	"presence-hub-api/internal/database"
	"presence-hub-api/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateFriendshipRequest represents the request payload for creating a
// social edge between two users.
type CreateFriendshipRequest struct {
	UserID   string `json:"userId" binding:"required"`
	FriendID string `json:"friendId" binding:"required"`
}

// friendCacheInvalidator lets the handler evict cached social edges after
// a mutation; wired to the status service at route setup.
type friendCacheInvalidator interface {
	InvalidateFriends(userIDs ...string)
}

// FriendInvalidator is set during route setup when the status service
// caches friend edges. Nil is fine in tests that bypass routes.
var FriendInvalidator friendCacheInvalidator

// CreateFriendship handles POST /api/friends.
// The edge is stored in both directions so either side's presence change
// fans out to the other.
func CreateFriendship(c *gin.Context) {
	var req CreateFriendshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == req.FriendID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot befriend yourself"})
		return
	}

	db := database.GetDB()
	var count int64
	for _, id := range []string{req.UserID, req.FriendID} {
		if err := db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil || count == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found: " + id})
			return
		}
	}

	edges := []models.Friendship{
		{UserID: req.UserID, FriendID: req.FriendID},
		{UserID: req.FriendID, FriendID: req.UserID},
	}
	if err := db.Create(&edges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create friendship"})
		return
	}

	if FriendInvalidator != nil {
		FriendInvalidator.InvalidateFriends(req.UserID, req.FriendID)
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Friendship created"})
}
