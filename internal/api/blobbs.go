package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type blobbRequest struct {
	Content string `json:"content" binding:"required,max=300"`
}

// reblobbRequest allows empty content: a reblobb without commentary is valid
type reblobbRequest struct {
	Content string `json:"content" binding:"max=300"`
}

func (r *Router) postBlobb(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	var req blobbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, err.Error()))
		return
	}

	content, err := r.content.Post(c.Request.Context(), viewerID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (r *Router) respondToBlobb(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	var req blobbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, err.Error()))
		return
	}

	content, err := r.content.Respond(c.Request.Context(), viewerID, req.Content, c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (r *Router) reblobbOfBlobb(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	var req reblobbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, err.Error()))
		return
	}

	content, err := r.content.Reblobb(c.Request.Context(), viewerID, req.Content, c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (r *Router) getBlobb(c *gin.Context) {
	item, err := r.content.GetByID(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (r *Router) getBlobbInfo(c *gin.Context) {
	info, err := r.content.GetInfo(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (r *Router) deleteBlobb(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	deleted, err := r.content.SoftDelete(c.Request.Context(), viewerID, c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (r *Router) listResponses(c *gin.Context) {
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}
	items, err := r.content.ListResponses(c.Request.Context(), c.Param("uuid"), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (r *Router) listReblobbs(c *gin.Context) {
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}
	items, err := r.content.ListReblobbs(c.Request.Context(), c.Param("uuid"), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (r *Router) checkLike(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	liked, err := r.likes.CheckLikes(c.Request.Context(), viewerID, c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (r *Router) likeBlobb(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	liked, err := r.likes.Like(c.Request.Context(), viewerID, c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (r *Router) unlikeBlobb(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	liked, err := r.likes.Unlike(c.Request.Context(), viewerID, c.Param("uuid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unliked": !liked})
}
