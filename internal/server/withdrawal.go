package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	payoutdomain "github.com/campustix/campustix/internal/payout/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) getBalance(c *gin.Context) {
	actor, _ := actorFrom(c)

	balance, err := s.payoutSvc.Balance(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (s *Server) submitWithdrawal(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	wr, err := s.payoutSvc.Submit(c.Request.Context(), actor, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wr)
}

func (s *Server) approveWithdrawal(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	wr, err := s.payoutSvc.Approve(c.Request.Context(), actor, id, req.Note)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, wr)
}

func (s *Server) rejectWithdrawal(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	wr, err := s.payoutSvc.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, wr)
}

func (s *Server) upsertBankDetails(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req payoutdomain.BankDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	profile, err := s.payoutSvc.UpsertBankDetails(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) verifyBank(c *gin.Context) {
	actor, _ := actorFrom(c)

	var req struct {
		CreatorID snowflake.ID `json:"creator_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CreatorID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	profile, err := s.payoutSvc.VerifyBank(c.Request.Context(), actor, req.CreatorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
