package handler_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	tokenPattern = regexp.MustCompile(`"token"\s*:\s*"([^"]+)"`)
	urlPattern   = regexp.MustCompile(`"url"\s*:\s*"([^"]+)"`)
)

// smallest valid-enough PNG: signature plus a little padding, which is all
// content sniffing looks at
var pngBytes = append([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 32)...)

func authToken(t *testing.T, router http.Handler, sender *recordingSender) string {
	t.Helper()
	email := randomEmail()
	resp := postJSON(t, router, "/api/v1/auth/register/code", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, resp.Code)
	resp = postJSON(t, router, "/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": "secret1",
		"code":     sender.lastCode(),
	})
	require.Equal(t, http.StatusOK, resp.Code)

	matches := tokenPattern.FindStringSubmatch(resp.Body.String())
	require.Len(t, matches, 2)
	return matches[1]
}

func uploadFile(t *testing.T, router http.Handler, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestImageUploadAndGet(t *testing.T) {
	router, sender, cleanup := setupRouter(t)
	defer cleanup()

	token := authToken(t, router, sender)

	resp := uploadFile(t, router, token, "pic.png", pngBytes)
	require.Equal(t, http.StatusOK, resp.Code)

	require.Contains(t, resp.Body.String(), "image/png")
	urlMatches := urlPattern.FindStringSubmatch(resp.Body.String())
	require.Len(t, urlMatches, 2)
	fileURL := urlMatches[1]
	require.Contains(t, fileURL, "/api/v1/images/")

	key := fileURL[strings.LastIndex(fileURL, "/")+1:]
	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+key, nil)
	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, req)
	require.Equal(t, http.StatusOK, getResp.Code)
	require.Equal(t, pngBytes, getResp.Body.Bytes())
}

func TestImageUploadRejectsNonImage(t *testing.T) {
	router, sender, cleanup := setupRouter(t)
	defer cleanup()

	token := authToken(t, router, sender)

	resp := uploadFile(t, router, token, "notes.txt", []byte("plain text, not an image"))
	// error is carried in the body code, not the transport status
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "only image uploads are accepted")
}

func TestImageUploadRequiresAuth(t *testing.T) {
	router, _, cleanup := setupRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/upload", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Contains(t, resp.Body.String(), "missing authorization")
}
