package handler_test

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/luoxins/pixgate/internal/config"
	"github.com/luoxins/pixgate/internal/filestore"
	"github.com/luoxins/pixgate/internal/handler"
	"github.com/luoxins/pixgate/internal/middleware"
	"github.com/luoxins/pixgate/internal/repo"
	"github.com/luoxins/pixgate/internal/service"
	"github.com/luoxins/pixgate/test/testutil"
)

var codePattern = regexp.MustCompile(`\d{6}`)

type recordingSender struct {
	bodies []string
}

func (s *recordingSender) Send(to, subject, body string) error {
	s.bodies = append(s.bodies, body)
	return nil
}

func (s *recordingSender) lastCode() string {
	if len(s.bodies) == 0 {
		return ""
	}
	return codePattern.FindString(s.bodies[len(s.bodies)-1])
}

func randomEmail() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf) + "@example.com"
}

func setupRouter(t *testing.T) (http.Handler, *recordingSender, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)
	userRepo := repo.NewUserRepo(db)
	passcodeRepo := repo.NewPasscodeRepo(db)

	sender := &recordingSender{}
	passcodeService := service.NewPasscodeService(passcodeRepo, service.NewCodeNotifier(sender), config.VerificationConfig{
		CodeLength:    6,
		ExpireMinutes: 10,
	})
	jwtSecret := []byte("test-secret")
	admin := config.AdminConfig{Email: "admin@example.com", Password: "admin_secret"}
	authService := service.NewAuthService(userRepo, passcodeService, admin, jwtSecret, time.Hour)

	tmpDir, err := os.MkdirTemp("", "pixgate-upload-*")
	require.NoError(t, err)

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{
			"dir": tmpDir,
		},
	})
	require.NoError(t, err)

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Images:    handler.NewImageHandler(store, 20*1024*1024),
		JWTSecret: jwtSecret,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)

	return engine, sender, func() {
		cleanup()
		_ = os.RemoveAll(tmpDir)
	}
}
