package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invitedomain "github.com/smallbiznis/tixora/internal/invitecode/domain"
	"github.com/smallbiznis/tixora/pkg/db/pagination"
)

type issueInviteCodeRequest struct {
	RoleName  string `json:"role_name"`
	EventID   string `json:"event_id"`
	ExpiresIn string `json:"expires_in"`
}

type inviteCodeRequest struct {
	Code string `json:"code"`
}

type revokeInviteCodeRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) IssueInviteCode(c *gin.Context) {
	var req issueInviteCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inviteSvc.Issue(c.Request.Context(), invitedomain.IssueRequest{
		RoleName:  strings.TrimSpace(req.RoleName),
		EventID:   strings.TrimSpace(req.EventID),
		ExpiresIn: strings.TrimSpace(req.ExpiresIn),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ValidateInviteCode(c *gin.Context) {
	var req inviteCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inviteSvc.Validate(c.Request.Context(), req.Code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"valid":      s.inviteSvc.IsValid(resp),
		"role_name":  resp.RoleName,
		"scope":      resp.Scope(),
		"event_id":   resp.EventID,
		"expires_at": resp.ExpiresAt,
	}})
}

func (s *Server) RedeemInviteCode(c *gin.Context) {
	var req inviteCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inviteSvc.Redeem(c.Request.Context(), invitedomain.RedeemRequest{Code: req.Code})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevokeInviteCode(c *gin.Context) {
	var req revokeInviteCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inviteSvc.Revoke(c.Request.Context(), strings.TrimSpace(c.Param("id")), invitedomain.RevokeRequest{
		Reason: strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInviteCodeByID(c *gin.Context) {
	resp, err := s.inviteSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInviteCodes(c *gin.Context) {
	var query struct {
		EventID string `form:"event_id"`
		Status  string `form:"status"`
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inviteSvc.List(c.Request.Context(), invitedomain.ListRequest{
		EventID:    strings.TrimSpace(query.EventID),
		Status:     strings.TrimSpace(query.Status),
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
