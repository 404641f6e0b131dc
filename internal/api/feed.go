package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (r *Router) getFeed(c *gin.Context) {
	viewerID, ok := viewer(c)
	if !ok {
		return
	}
	since, ok := sinceWindows[c.DefaultQuery("since", "DAY")]
	if !ok {
		c.JSON(http.StatusBadRequest, NewError(http.StatusBadRequest, "since must be one of: HOUR, DAY, WEEK"))
		return
	}
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}

	to := time.Now().UTC()
	from := to.Add(-since)

	var err error
	var items interface{}
	if c.Query("by") == "POPULARITY" {
		items, err = r.feed.Popular(c.Request.Context(), viewerID, from, to, skip, limit)
	} else {
		items, err = r.feed.Chronological(c.Request.Context(), viewerID, from, to, skip, limit)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
