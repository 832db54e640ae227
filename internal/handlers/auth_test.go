package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chat-rooms-service/internal/auth"
	"chat-rooms-service/internal/mocks"
	"chat-rooms-service/internal/models"
	"chat-rooms-service/internal/repositories"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	r.POST("/auth/logout", func(c *gin.Context) {
		c.Set("tokenID", "token-123")
		handler.Logout(c)
	})
	return r
}

func newAuthHandler() (*gin.Engine, *mocks.UserRepositoryMock, *mocks.SessionStoreMock) {
	userRepo := new(mocks.UserRepositoryMock)
	sessions := new(mocks.SessionStoreMock)
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := NewAuthHandler(userRepo, issuer, sessions, time.Hour, nil)
	return setupAuthRouter(handler), userRepo, sessions
}

func TestRegisterSuccess(t *testing.T) {
	router, userRepo, _ := newAuthHandler()

	userRepo.On("CreateUser", mock.Anything, "Ada", "ada@example.com", mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2hunter2")) == nil
	})).Return(models.User{ID: 1, FullName: "Ada", Email: "ada@example.com", IsActive: true}, nil).Once()

	body := `{"full_name":"Ada","email":"ada@example.com","password":"hunter2hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestRegisterShortPassword(t *testing.T) {
	router, _, _ := newAuthHandler()

	body := `{"full_name":"Ada","email":"ada@example.com","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterEmailTaken(t *testing.T) {
	router, userRepo, _ := newAuthHandler()

	userRepo.On("CreateUser", mock.Anything, "Ada", "ada@example.com", mock.AnythingOfType("string")).
		Return(models.User{}, repositories.ErrEmailTaken).Once()

	body := `{"full_name":"Ada","email":"ada@example.com","password":"hunter2hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestLoginSuccess(t *testing.T) {
	router, userRepo, sessions := newAuthHandler()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	userRepo.On("GetUserByEmail", mock.Anything, "ada@example.com").
		Return(models.User{ID: 1, Email: "ada@example.com", Password: string(hash), IsActive: true}, nil).Once()
	sessions.On("Save", mock.Anything, mock.AnythingOfType("string"), int64(1), time.Hour).Return(nil).Once()

	body := `{"email":"ada@example.com","password":"hunter2hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp["token"])
	userRepo.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	router, userRepo, _ := newAuthHandler()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	userRepo.On("GetUserByEmail", mock.Anything, "ada@example.com").
		Return(models.User{ID: 1, Password: string(hash), IsActive: true}, nil).Once()

	body := `{"email":"ada@example.com","password":"battery-staple"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	router, userRepo, _ := newAuthHandler()

	userRepo.On("GetUserByEmail", mock.Anything, "ghost@example.com").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := `{"email":"ghost@example.com","password":"whatever123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	router, userRepo, _ := newAuthHandler()

	userRepo.On("GetUserByEmail", mock.Anything, "ada@example.com").
		Return(models.User{ID: 1, IsActive: false}, nil).Once()

	body := `{"email":"ada@example.com","password":"hunter2hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	router, _, sessions := newAuthHandler()

	sessions.On("Revoke", mock.Anything, "token-123").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	sessions.AssertExpectations(t)
}
