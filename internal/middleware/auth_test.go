package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-rooms-service/internal/auth"
	"chat-rooms-service/internal/mocks"
)

func setupAuthedRouter(issuer *auth.TokenIssuer, sessions auth.SessionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", AuthMiddleware(issuer, sessions), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64(UserIDKey)})
	})
	r.GET("/admin", AuthMiddleware(issuer, sessions), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthMiddlewareAcceptsLiveSession(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	sessions := new(mocks.SessionStoreMock)
	router := setupAuthedRouter(issuer, sessions)

	token, tokenID, err := issuer.Issue(7, false)
	require.NoError(t, err)
	sessions.On("Exists", mock.Anything, tokenID).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	sessions.AssertExpectations(t)
}

func TestAuthMiddlewareRejectsRevokedSession(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	sessions := new(mocks.SessionStoreMock)
	router := setupAuthedRouter(issuer, sessions)

	token, tokenID, err := issuer.Issue(7, false)
	require.NoError(t, err)
	sessions.On("Exists", mock.Anything, tokenID).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	router := setupAuthedRouter(issuer, new(mocks.SessionStoreMock))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	router := setupAuthedRouter(issuer, new(mocks.SessionStoreMock))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnlyBlocksRegularUsers(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	sessions := new(mocks.SessionStoreMock)
	router := setupAuthedRouter(issuer, sessions)

	token, tokenID, err := issuer.Issue(7, false)
	require.NoError(t, err)
	sessions.On("Exists", mock.Anything, tokenID).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}
