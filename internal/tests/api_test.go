// internal/tests/api_test.go
package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/brandgrid/licensing-backend/internal/middleware"
	"github.com/brandgrid/licensing-backend/internal/utils"
)

type APITestSuite struct {
	suite.Suite
	router *gin.Engine
}

func (suite *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret")

	suite.router = gin.New()
	suite.router.Use(middleware.I18nMiddleware())

	protected := suite.router.Group("/v1/licenses")
	protected.Use(middleware.AuthRequired())
	{
		protected.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}

	admin := suite.router.Group("/v1/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.POST("/maintenance/expire-offers", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}
}

func (suite *APITestSuite) request(method, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) TestMissingTokenRejected() {
	w := suite.request("GET", "/v1/licenses", "")
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestMalformedAuthHeaderRejected() {
	req, _ := http.NewRequest("GET", "/v1/licenses", nil)
	req.Header.Set("Authorization", "Token abc123")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestInvalidTokenRejected() {
	w := suite.request("GET", "/v1/licenses", "not-a-jwt")
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestValidTokenAccepted() {
	token, err := utils.GenerateJWT(uuid.New(), "Brand User", "brand", 1)
	assert.NoError(suite.T(), err)

	w := suite.request("GET", "/v1/licenses", token)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestNonAdminForbiddenOnAdminRoutes() {
	token, err := utils.GenerateJWT(uuid.New(), "Brand User", "brand", 1)
	assert.NoError(suite.T(), err)

	w := suite.request("POST", "/v1/admin/maintenance/expire-offers", token)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *APITestSuite) TestAdminAllowedOnAdminRoutes() {
	token, err := utils.GenerateJWT(uuid.New(), "Administrator", "admin", 1)
	assert.NoError(suite.T(), err)

	w := suite.request("POST", "/v1/admin/maintenance/expire-offers", token)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
