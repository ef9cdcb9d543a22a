package handler

import (
	"fmt"
	"net/http"

	"github.com/Sumuditha-Janith/obscura-backend/internal/service"
	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// DownloadReport 生成并下载 PDF 报表
func (h *Handler) DownloadReport(c *gin.Context) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, bindMessage(err))
		return
	}
	if q.Range == "" {
		q.Range = service.RangeAll
	}

	user, err := h.auth.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.reports.Render(c.Request.Context(), user, q.Range)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", report.Data)
}
