package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
)

// dateParam parses an optional YYYY-MM-DD query value.
func dateParam(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, common.InvalidInputErrorf("%s must be YYYY-MM-DD", name)
	}
	return &t, nil
}

func (s *Server) handleListBills(c *gin.Context) {
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

	bills, err := s.bills.List(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": bills, "count": len(bills)})
}

func (s *Server) handleGetBill(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, common.InvalidInputError("id must be a UUID"))
		return
	}

	bill, err := s.bills.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func (s *Server) handleDeleteBill(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, common.InvalidInputError("id must be a UUID"))
		return
	}

	if err := s.bills.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
