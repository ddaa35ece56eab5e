package api

import (
	"github.com/lysyi3m/work-dash/app/database"
)

// DashboardLimit is the size of each half of the aggregated item list
const DashboardLimit = 20

type Handler struct {
	feedRepo   database.FeedRepository
	itemRepo   database.ItemRepository
	targetRepo database.TargetRepository
}

type dismissRequest struct {
	ID *int64 `json:"id" binding:"required"`
}

type createFeedRequest struct {
	Label     string `json:"label" binding:"required"`
	URL       string `json:"url" binding:"required,url"`
	Important bool   `json:"important"`
}

type createTargetRequest struct {
	Label   string `json:"label" binding:"required"`
	Address string `json:"address" binding:"required"`
}
