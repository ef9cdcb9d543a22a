package handler

import (
	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// ==================== 管理后台 ====================

type approvalRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

type rolesRequest struct {
	Roles []string `json:"roles" binding:"required,min=1,dive,oneof=user admin"`
}

type userListQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// AdminUsers 用户列表（分页）
func (h *Handler) AdminUsers(c *gin.Context) {
	var q userListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	page, err := h.auth.ListUsers(c.Request.Context(), q.Page, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, page)
}

// AdminSetApproval 审核或撤销用户
func (h *Handler) AdminSetApproval(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var req approvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	user, err := h.auth.SetApproval(c.Request.Context(), id, *req.Approved)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "User approved"
	if !user.IsApproved {
		msg = "User approval revoked"
	}
	utils.SuccessWithMessage(c, msg, user)
}

// AdminSetRoles 设置用户角色
func (h *Handler) AdminSetRoles(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var req rolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	user, err := h.auth.SetRoles(c.Request.Context(), currentUserID(c), id, req.Roles)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Roles updated", user)
}
