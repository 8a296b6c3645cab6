package jwt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"LiveDock/internal/modules/user/domain/entity"
	"LiveDock/pkg/util/myjwt"
	"LiveDock/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "auth-test-key"

type stubResolver map[int64]*entity.User

func (s stubResolver) GetActiveUser(_ context.Context, id int64) (*entity.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, xerr.New(xerr.Unauthorized, "User not found")
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	users := stubResolver{5: {ID: 5, Name: "Ana", Role: entity.RoleCalidad, IsActive: true}}
	r.GET("/me", Auth(testKey, users), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":   CurrentUserID(c),
			"role": CurrentUserRole(c),
			"name": CurrentUser(c).Name,
		})
	})
	return r
}

func TestAuth(t *testing.T) {
	r := newRouter()
	valid, err := myjwt.GenerateToken(testKey, 5, time.Hour)
	require.NoError(t, err)
	unknown, err := myjwt.GenerateToken(testKey, 9, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: myjwt.CookieName, Value: valid}) }, http.StatusOK},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, http.StatusOK},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"unknown user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+unknown) }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"id":5,"role":"CALIDAD","name":"Ana"}`, w.Body.String())
			}
		})
	}
}

func TestCurrentUserWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, CurrentUser(c))
	assert.Zero(t, CurrentUserID(c))
	assert.Empty(t, CurrentUserRole(c))
}
