package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ticketdomain "github.com/smallbiznis/tixora/internal/ticket/domain"
	"github.com/smallbiznis/tixora/pkg/db/pagination"
)

type purchaseTicketRequest struct {
	TicketTypeID string `json:"ticket_type_id"`
}

func (s *Server) PurchaseTicket(c *gin.Context) {
	var req purchaseTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ticketSvc.Purchase(c.Request.Context(), ticketdomain.PurchaseRequest{
		TicketTypeID: strings.TrimSpace(req.TicketTypeID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetTicketByID(c *gin.Context) {
	resp, err := s.ticketSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMyTickets(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ticketSvc.ListMine(c.Request.Context(), ticketdomain.ListRequest{Pagination: query})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
