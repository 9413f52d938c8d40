package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campustix/campustix/internal/actorcontext"
	eventdomain "github.com/campustix/campustix/internal/event/domain"
	orderdomain "github.com/campustix/campustix/internal/order/domain"
	"github.com/campustix/campustix/internal/payment/gateway"
	payoutdomain "github.com/campustix/campustix/internal/payout/domain"
	"github.com/campustix/campustix/internal/server"
	ticketdomain "github.com/campustix/campustix/internal/ticket/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(server.ErrorHandlingMiddleware())
	return r
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", orderdomain.ErrInvalidBuyer, http.StatusBadRequest, "validation_error"},
		{"unauthorized", server.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", eventdomain.ErrNotOrganizer, http.StatusForbidden, "forbidden"},
		{"not found", ticketdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"conflict", ticketdomain.ErrAlreadyValidated, http.StatusConflict, "conflict"},
		{"sold out", eventdomain.ErrSoldOut, http.StatusConflict, "conflict"},
		{"rate limited", server.ErrTooManyRequests, http.StatusTooManyRequests, "too_many_requests"},
		{"gateway down", gateway.ErrUnavailable, http.StatusBadGateway, "gateway_unavailable"},
		{"unknown", assert.AnError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine()
			r.GET("/boom", func(c *gin.Context) {
				server.AbortWithError(c, tc.err)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

			assert.Equal(t, tc.wantStatus, w.Code)
			var body struct {
				Error struct {
					Type string `json:"type"`
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.wantType, body.Error.Type)
		})
	}
}

func TestErrorMappingReportsShortfall(t *testing.T) {
	r := newEngine()
	r.GET("/boom", func(c *gin.Context) {
		server.AbortWithError(c, &payoutdomain.InsufficientBalanceError{Requested: 9000, Available: 4000})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_balance", body.Error.Code)
	assert.Contains(t, body.Error.Message, "9000")
	assert.Contains(t, body.Error.Message, "4000")
}

func TestActorContextMiddleware(t *testing.T) {
	r := newEngine()
	r.Use(server.ActorContext())
	r.GET("/open", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/guarded", server.RequireActor(), func(c *gin.Context) {
		actor, ok := actorcontext.ActorFromContext(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID.String(), "role": actor.Role})
	})

	t.Run("anonymous passes open routes", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("anonymous rejected on guarded routes", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed identity rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		req.Header.Set("X-Actor-Id", "not-a-number")
		req.Header.Set("X-Actor-Role", "organizer")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		req.Header.Set("X-Actor-Id", "12345")
		req.Header.Set("X-Actor-Role", "superuser")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid identity reaches handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
		req.Header.Set("X-Actor-Id", "12345")
		req.Header.Set("X-Actor-Role", "organizer")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "12345", body["id"])
		assert.Equal(t, "organizer", body["role"])
	})
}
