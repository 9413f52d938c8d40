package server

import (
	"net/http"

	paymentdomain "github.com/campustix/campustix/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) confirmPayment(c *gin.Context) {
	var req paymentdomain.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.paymentSvc.Confirm(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
