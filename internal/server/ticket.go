package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) resolveTicket(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ticket, err := s.ticketSvc.Resolve(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) checkInTicket(c *gin.Context) {
	actor, _ := actorFrom(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := s.ticketSvc.CheckIn(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
