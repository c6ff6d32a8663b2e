//go:build unit

package middleware_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"freshfold/internal/handler/middleware"
	"freshfold/tests/common/httptest"
	sharedmock "freshfold/tests/mock/shared"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type RateLimiterTestSuite struct {
	suite.Suite
	mockCtrl  *gomock.Controller
	mockStore *sharedmock.MockCounterStore
	logger    *slog.Logger
}

func (s *RateLimiterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.mockCtrl = gomock.NewController(s.T())
	s.mockStore = sharedmock.NewMockCounterStore(s.mockCtrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimiterSuite(t *testing.T) {
	suite.Run(t, new(RateLimiterTestSuite))
}

func (s *RateLimiterTestSuite) router(enabled bool, limit int64) *gin.Engine {
	rl := middleware.NewRateLimiter(s.mockStore, time.Minute, enabled, s.logger)
	r := gin.New()
	r.POST("/orders", rl.Limit("booking", limit), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func (s *RateLimiterTestSuite) TestLimit() {
	s.Run("under the limit passes and reports the remaining budget", func() {
		s.mockStore.EXPECT().Incr(gomock.Any(), "rl:booking:192.0.2.1", time.Minute).Return(int64(3), nil)

		rec := httptest.PerformRequest(s.T(), s.router(true, 5), http.MethodPost, "/orders", nil, "")
		s.Equal(http.StatusCreated, rec.Code)
		s.Equal("5", rec.Header().Get("X-RateLimit-Limit"))
		s.Equal("2", rec.Header().Get("X-RateLimit-Remaining"))
	})

	s.Run("over the limit answers 429 with Retry-After", func() {
		s.mockStore.EXPECT().Incr(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(6), nil)

		rec := httptest.PerformRequest(s.T(), s.router(true, 5), http.MethodPost, "/orders", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusTooManyRequests, "Too many requests")
		s.Equal("60", rec.Header().Get("Retry-After"))
		s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
	})

	s.Run("store failure fails open", func() {
		s.mockStore.EXPECT().Incr(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), errors.New("connection refused"))

		rec := httptest.PerformRequest(s.T(), s.router(true, 5), http.MethodPost, "/orders", nil, "")
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("disabled limiter never touches the store", func() {
		rec := httptest.PerformRequest(s.T(), s.router(false, 5), http.MethodPost, "/orders", nil, "")
		s.Equal(http.StatusCreated, rec.Code)
	})
}
