package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	discountdomain "github.com/smallbiznis/tixora/internal/discount/domain"
	"github.com/smallbiznis/tixora/pkg/db/pagination"
)

type createDiscountRequest struct {
	TicketTypeID string          `json:"ticket_type_id"`
	DiscountType string          `json:"discount_type"`
	Value        decimal.Decimal `json:"value"`
	ValidFrom    time.Time       `json:"valid_from"`
	ValidTo      time.Time       `json:"valid_to"`
	Active       *bool           `json:"active"`
	Description  string          `json:"description"`
	Metadata     map[string]any  `json:"metadata"`
}

type updateDiscountRequest struct {
	DiscountType *string          `json:"discount_type"`
	Value        *decimal.Decimal `json:"value"`
	ValidFrom    *time.Time       `json:"valid_from"`
	ValidTo      *time.Time       `json:"valid_to"`
	Active       *bool            `json:"active"`
	Description  *string          `json:"description"`
	Metadata     map[string]any   `json:"metadata"`
}

func (s *Server) CreateDiscount(c *gin.Context) {
	var req createDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.discountSvc.Create(c.Request.Context(), discountdomain.CreateRequest{
		TicketTypeID: strings.TrimSpace(req.TicketTypeID),
		DiscountType: discountdomain.DiscountType(strings.TrimSpace(req.DiscountType)),
		Value:        req.Value,
		ValidFrom:    req.ValidFrom,
		ValidTo:      req.ValidTo,
		Active:       req.Active,
		Description:  strings.TrimSpace(req.Description),
		Metadata:     req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateDiscount(c *gin.Context) {
	var req updateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := discountdomain.UpdateRequest{
		Value:       req.Value,
		ValidFrom:   req.ValidFrom,
		ValidTo:     req.ValidTo,
		Active:      req.Active,
		Description: req.Description,
		Metadata:    req.Metadata,
	}
	if req.DiscountType != nil {
		discountType := discountdomain.DiscountType(strings.TrimSpace(*req.DiscountType))
		update.DiscountType = &discountType
	}

	resp, err := s.discountSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDiscount(c *gin.Context) {
	if err := s.discountSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetDiscountByID(c *gin.Context) {
	resp, err := s.discountSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDiscounts(c *gin.Context) {
	var query struct {
		TicketTypeID string `form:"ticket_type_id"`
		Active       string `form:"active"`
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.discountSvc.List(c.Request.Context(), discountdomain.ListRequest{
		TicketTypeID: strings.TrimSpace(query.TicketTypeID),
		Active:       active,
		Pagination:   query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetActiveDiscount returns the discount flagged active for a ticket type, or null.
func (s *Server) GetActiveDiscount(c *gin.Context) {
	ticketTypeID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	resp, err := s.discountSvc.FindActive(c.Request.Context(), ticketTypeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
