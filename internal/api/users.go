package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username      string `json:"username" binding:"required,max=64"`
	DisplayedName string `json:"displayedName" binding:"max=64"`
}

func (r *Router) registerUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, err.Error()))
		return
	}

	user, err := r.users.Register(c.Request.Context(), req.Username, req.DisplayedName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (r *Router) getUser(c *gin.Context) {
	user, err := r.users.FindByID(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (r *Router) getUserByUsername(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, "missing required parameter: username"))
		return
	}

	user, err := r.users.FindByUsername(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (r *Router) getUserProfile(c *gin.Context) {
	profile, err := r.users.ProfileInfo(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (r *Router) checkFollow(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	follows, err := r.follows.IsFollowing(c.Request.Context(), viewerID, c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"follows": follows})
}

func (r *Router) followUser(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	if _, err := r.follows.Follow(c.Request.Context(), viewerID, c.Param("uuid")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"follows": true})
}

func (r *Router) unfollowUser(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	if _, err := r.follows.Unfollow(c.Request.Context(), viewerID, c.Param("uuid")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"follows": false})
}

func (r *Router) listFollowing(c *gin.Context) {
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}
	users, err := r.follows.ListFollowing(c.Request.Context(), c.Param("uuid"), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (r *Router) listFollowers(c *gin.Context) {
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}
	users, err := r.follows.ListFollowers(c.Request.Context(), c.Param("uuid"), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (r *Router) recentBlobbs(c *gin.Context) {
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}
	items, err := r.users.RecentContent(c.Request.Context(), c.Param("uuid"), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
