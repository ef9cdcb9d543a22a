package handler

import (
	"github.com/Sumuditha-Janith/obscura-backend/internal/model"
	"github.com/Sumuditha-Janith/obscura-backend/internal/service"
	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
	"github.com/gin-gonic/gin"
)

type searchQuery struct {
	Query string `form:"query" binding:"required"`
	Page  int    `form:"page" binding:"omitempty,min=1,max=500"`
}

type trendingQuery struct {
	Type string `form:"type" binding:"omitempty,oneof=movie tv all"`
}

type addRequest struct {
	TMDBID      int               `json:"tmdbId" binding:"required,min=1"`
	Type        model.MediaType   `json:"type" binding:"required,mediatype"`
	WatchStatus model.WatchStatus `json:"watchStatus" binding:"omitempty,watchstatus"`
}

type updateRequest struct {
	WatchStatus *model.WatchStatus `json:"watchStatus" binding:"omitempty,watchstatus"`
	Rating      *int               `json:"rating" binding:"omitempty,min=1,max=5"`
}

type listQuery struct {
	Status model.WatchStatus `form:"status" binding:"omitempty,watchstatus"`
	Type   model.MediaType   `form:"type" binding:"omitempty,mediatype"`
	Page   int               `form:"page" binding:"omitempty,min=1"`
	Limit  int               `form:"limit" binding:"omitempty,min=1,max=100"`
}

type episodeUpdateRequest struct {
	Status *model.EpisodeStatus `json:"status" binding:"omitempty,episodestatus"`
	Rating *int                 `json:"rating" binding:"omitempty,min=1,max=5"`
}

type rangeQuery struct {
	Range string `form:"range" binding:"omitempty,reportrange"`
}

// SearchCatalog 搜索电影和剧集
func (h *Handler) SearchCatalog(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	page, err := h.watchlist.Search(c.Request.Context(), q.Query, q.Page)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, page)
}

// Trending 本周热门
func (h *Handler) Trending(c *gin.Context) {
	var q trendingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	items, err := h.watchlist.Trending(c.Request.Context(), q.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, items)
}

// CatalogDetails 目录详情，附带片单条目
func (h *Handler) CatalogDetails(c *gin.Context) {
	mediaType := model.MediaType(c.Param("type"))
	if !mediaType.Valid() {
		utils.BadRequest(c, "type: must be movie or tv")
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	res, err := h.watchlist.Details(c.Request.Context(), currentUserID(c), mediaType, id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, res)
}

// AddToWatchlist 加入片单
func (h *Handler) AddToWatchlist(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	m, err := h.watchlist.Add(c.Request.Context(), currentUserID(c), service.AddInput{
		CatalogID: req.TMDBID,
		Type:      req.Type,
		Status:    req.WatchStatus,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Added to watchlist", m)
}

// ListWatchlist 分页列出片单
func (h *Handler) ListWatchlist(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	page, err := h.watchlist.List(c.Request.Context(), currentUserID(c), service.ListInput{
		Status: q.Status,
		Type:   q.Type,
		Page:   q.Page,
		Limit:  q.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, page)
}

// GetWatchlistItem 单个片单条目
func (h *Handler) GetWatchlistItem(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	m, err := h.watchlist.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, m)
}

// UpdateWatchlistItem 更新状态/评分
func (h *Handler) UpdateWatchlistItem(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	m, err := h.watchlist.UpdateStatus(c.Request.Context(), currentUserID(c), id, service.UpdateInput{
		Status: req.WatchStatus,
		Rating: req.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Watchlist item updated", m)
}

// RemoveFromWatchlist 删除片单条目
func (h *Handler) RemoveFromWatchlist(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	if err := h.watchlist.Remove(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Removed from watchlist", nil)
}

// FetchSeason 拉取并返回某季单集
func (h *Handler) FetchSeason(c *gin.Context) {
	showID, ok := paramInt(c, "showId")
	if !ok {
		return
	}
	season, ok := paramInt(c, "season")
	if !ok {
		return
	}
	rows, err := h.episodes.FetchSeason(c.Request.Context(), currentUserID(c), showID, season)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, rows)
}

// ListShowEpisodes 某剧已记录的单集
func (h *Handler) ListShowEpisodes(c *gin.Context) {
	showID, ok := paramInt(c, "showId")
	if !ok {
		return
	}
	rows, err := h.episodes.ListShow(c.Request.Context(), currentUserID(c), showID)
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == nil {
		rows = []*model.Episode{}
	}
	utils.Success(c, rows)
}

// UpdateEpisode 更新单集状态/评分并返回剧集汇总
func (h *Handler) UpdateEpisode(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var req episodeUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	res, err := h.episodes.UpdateStatus(c.Request.Context(), currentUserID(c), id, service.EpisodeUpdateInput{
		Status: req.Status,
		Rating: req.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Episode updated", res)
}

// Stats 用户统计，可选 range 过滤
func (h *Handler) Stats(c *gin.Context) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	since, err := service.RangeStart(q.Range, h.clock.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := h.stats.Compute(c.Request.Context(), currentUserID(c), since)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, stats)
}
