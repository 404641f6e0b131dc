package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Echelon133/Blobb/internal/social"
)

// sinceWindows maps the since query parameter onto popularity windows.
var sinceWindows = map[string]time.Duration{
	"HOUR": social.SinceHour,
	"DAY":  social.SinceDay,
	"WEEK": social.SinceWeek,
}

func (r *Router) getTagByName(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, "missing required parameter: name"))
		return
	}

	tag, err := r.tags.FindByName(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (r *Router) listPopularTags(c *gin.Context) {
	since, ok := sinceWindows[c.DefaultQuery("since", "HOUR")]
	if !ok {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, "since must be one of: HOUR, DAY, WEEK"))
		return
	}
	_, limit, ok := pagination(c)
	if !ok {
		return
	}

	tags, err := r.tags.PopularSince(c.Request.Context(), since, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (r *Router) recentTaggedBlobbs(c *gin.Context) {
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}
	items, err := r.tags.FindRecentTagged(c.Request.Context(), c.Param("uuid"), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
