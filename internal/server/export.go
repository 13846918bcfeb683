package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleExport(c *gin.Context) {
	from, err := dateParam(c, "from")
	if err != nil {
		writeError(c, err)
		return
	}
	to, err := dateParam(c, "to")
	if err != nil {
		writeError(c, err)
		return
	}

	data, err := s.exporter.ExportBillsXLSX(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(from, to)))
	c.Data(http.StatusOK, xlsxContentType, data)
}
