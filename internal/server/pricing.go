package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) QuoteTicketType(c *gin.Context) {
	ticketTypeID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	at := s.clock.Now()
	requested, err := parseOptionalTime(c.Query("at"))
	if err != nil {
		AbortWithError(c, newValidationError("at", "invalid_at", "at must be RFC3339"))
		return
	}
	if requested != nil {
		at = *requested
	}

	quote, err := s.pricing.Quote(c.Request.Context(), ticketTypeID, at)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}
