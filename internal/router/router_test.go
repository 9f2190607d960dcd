package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ilinks-dev/ilinks/db"
	"github.com/ilinks-dev/ilinks/internal/auth"
	"github.com/ilinks-dev/ilinks/internal/config"
	"github.com/ilinks-dev/ilinks/internal/handlers"
	"github.com/ilinks-dev/ilinks/internal/store"
	"github.com/ilinks-dev/ilinks/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine    *gin.Engine
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	require.NoError(t, auth.InitJWTSecret("router-test-secret", time.Hour))

	conn, err := db.ConnectDatabase(db.DriverSQLite, filepath.Join(t.TempDir(), "router.db"))
	require.NoError(t, err)
	require.NoError(t, db.MigrateDatabase(conn))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log := logrus.New()
	log.Out = io.Discard

	cfg := &config.Config{
		AllowedOrigins: []string{"http://localhost:3000"},
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1 << 20,
		MaxBodyBytes:   4 << 20,
	}

	engine := NewRouter(cfg, Deps{
		Store: store.New(conn),
		Hub:   handlers.NewHub(cfg.AllowedOrigins, log),
		Log:   log,
	})

	return &testServer{engine: engine, uploadDir: cfg.UploadDir}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	return w
}

func (s *testServer) upload(t *testing.T, path, token, field, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())

	return out
}

type authBody struct {
	Token string             `json:"token"`
	User  types.UserResponse `json:"user"`
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": username, "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return decode[authBody](t, w).Token
}

func (s *testServer) createCategory(t *testing.T, token, name string) types.CategoryResponse {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/bookmarks/categories", token, gin.H{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return decode[types.CategoryResponse](t, w)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]interface{}](t, w)["status"])
}

func TestAccounts(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "  alice ",
		"password": "secret123",
		"email":    "Alice@Example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	registered := decode[authBody](t, w)
	assert.Equal(t, "alice", registered.User.Username)
	require.NotNil(t, registered.User.Email)
	assert.Equal(t, "alice@example.com", *registered.User.Email)

	tests := []struct {
		name   string
		body   gin.H
		status int
		code   string
		field  string
	}{
		{"duplicate username", gin.H{"username": "alice", "password": "secret123"}, http.StatusConflict, types.CodeConflict, "username"},
		{"duplicate email", gin.H{"username": "alice2", "password": "secret123", "email": "alice@example.com"}, http.StatusConflict, types.CodeConflict, "email"},
		{"short username", gin.H{"username": " ab ", "password": "secret123"}, http.StatusBadRequest, types.CodeValidation, "username"},
		{"short password", gin.H{"username": "carol", "password": "123"}, http.StatusBadRequest, types.CodeValidation, "password"},
		{"bad email", gin.H{"username": "dave", "password": "secret123", "email": "nope"}, http.StatusBadRequest, types.CodeValidation, "email"},
		{"long password", gin.H{"username": "erin", "password": strings.Repeat("a", 73)}, http.StatusBadRequest, types.CodeValidation, "password"},
		{"long multibyte password", gin.H{"username": "frank", "password": strings.Repeat("密", 30)}, http.StatusBadRequest, types.CodeValidation, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			body := decode[types.ErrorResponse](t, w)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.field, body.Field)
		})
	}

	for _, login := range []string{"alice", "alice@example.com"} {
		w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": login, "password": "secret123"})
		assert.Equal(t, http.StatusOK, w.Code, login)
	}

	for _, body := range []gin.H{
		{"username": "alice", "password": "wrong-password"},
		{"username": "nobody", "password": "secret123"},
	} {
		w = s.do(t, http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid username or password", decode[types.ErrorResponse](t, w).Error)
	}

	w = s.do(t, http.MethodGet, "/api/auth/me", registered.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, registered.User.ID, decode[types.UserResponse](t, w).ID)

	w = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUISettingsAndWallpaper(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice")

	w := s.do(t, http.MethodPut, "/api/auth/ui-settings", token, gin.H{"ui_settings": gin.H{"theme": "dark", "columns": 4}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	me := decode[types.UserResponse](t, s.do(t, http.MethodGet, "/api/auth/me", token, nil))
	assert.JSONEq(t, `{"theme":"dark","columns":4}`, string(me.UISettings))

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

	w = s.upload(t, "/api/auth/wallpaper/upload", token, "wallpaper", "bg.png", "image/png", png)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[map[string]string](t, w)["wallpaper"]
	require.True(t, strings.HasPrefix(first, "/uploads/wallpaper-"), first)
	assert.FileExists(t, filepath.Join(s.uploadDir, filepath.Base(first)))

	served := httptest.NewRecorder()
	s.engine.ServeHTTP(served, httptest.NewRequest(http.MethodGet, first, nil))
	assert.Equal(t, http.StatusOK, served.Code)

	w = s.upload(t, "/api/auth/wallpaper/upload", token, "wallpaper", "notes.txt", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/auth/wallpaper", token, gin.H{"wallpaper": "https://example.com/bg.jpg"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoFileExists(t, filepath.Join(s.uploadDir, filepath.Base(first)), "replaced upload is removed")

	me = decode[types.UserResponse](t, s.do(t, http.MethodGet, "/api/auth/me", token, nil))
	require.NotNil(t, me.Wallpaper)
	assert.Equal(t, "https://example.com/bg.jpg", *me.Wallpaper)

	w = s.do(t, http.MethodPut, "/api/auth/wallpaper", token, gin.H{"wallpaper": ""})
	require.Equal(t, http.StatusOK, w.Code)
	me = decode[types.UserResponse](t, s.do(t, http.MethodGet, "/api/auth/me", token, nil))
	assert.Nil(t, me.Wallpaper)
}

func TestUpdateWallpaper_RejectsAnotherUsersUpload(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	w := s.upload(t, "/api/auth/wallpaper/upload", alice, "wallpaper", "bg.png", "image/png", png)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	uploaded := decode[map[string]string](t, w)["wallpaper"]
	stored := filepath.Join(s.uploadDir, filepath.Base(uploaded))

	w = s.do(t, http.MethodPut, "/api/auth/wallpaper", bob, gin.H{"wallpaper": uploaded})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "wallpaper", decode[types.ErrorResponse](t, w).Field)

	w = s.do(t, http.MethodPut, "/api/auth/wallpaper", bob, gin.H{"wallpaper": "https://example.com/b.jpg"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.FileExists(t, stored, "bob cannot release alice's file")

	me := decode[types.UserResponse](t, s.do(t, http.MethodGet, "/api/auth/me", bob, nil))
	require.NotNil(t, me.Wallpaper)
	assert.Equal(t, "https://example.com/b.jpg", *me.Wallpaper)

	// Re-submitting one's own upload path is a no-op.
	w = s.do(t, http.MethodPut, "/api/auth/wallpaper", alice, gin.H{"wallpaper": uploaded})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.FileExists(t, stored)
}

func TestBookmarks_CRUDAndOrdering(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice")

	work := s.createCategory(t, token, "Work")
	play := s.createCategory(t, token, "Play")
	assert.Equal(t, 1, work.Position)
	assert.Equal(t, 2, play.Position)
	assert.NotNil(t, work.Links)

	w := s.do(t, http.MethodPost, "/api/bookmarks/categories", token, gin.H{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", decode[types.ErrorResponse](t, w).Field)

	path := fmt.Sprintf("/api/bookmarks/categories/%d/links", work.ID)
	w = s.do(t, http.MethodPost, path, token, gin.H{"title": "Go", "url": "https://go.dev"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	goLink := decode[types.LinkResponse](t, w)
	assert.Equal(t, 1, goLink.Position)

	w = s.do(t, http.MethodPost, path, token, gin.H{"title": "Docs"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "url", decode[types.ErrorResponse](t, w).Field)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/bookmarks/links/%d", goLink.ID), token, gin.H{"title": "Go home"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/bookmarks/categories/reorder", token, gin.H{
		"categories": []gin.H{{"id": work.ID, "position": 5}, {"id": play.ID, "position": 0}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode[map[string]interface{}](t, w)["updated"])

	w = s.do(t, http.MethodPut, "/api/bookmarks/categories/reorder", token, gin.H{
		"categories": []gin.H{{"id": work.ID}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "position is required")

	tree := decode[[]types.CategoryResponse](t, s.do(t, http.MethodGet, "/api/bookmarks", token, nil))
	require.Len(t, tree, 2)
	assert.Equal(t, "Play", tree[0].Name)
	assert.Equal(t, "Work", tree[1].Name)
	require.Len(t, tree[1].Links, 1)
	assert.Equal(t, "Go home", tree[1].Links[0].Title)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/bookmarks/categories/%d", work.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Category deleted", decode[map[string]string](t, w)["message"])

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/bookmarks/links/%d", goLink.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "link went with its category")
}

func TestBookmarks_OwnershipHidesOtherUsersRows(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	category := s.createCategory(t, alice, "Private")
	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/bookmarks/categories/%d/links", category.ID), alice, gin.H{"title": "a", "url": "https://a.example"})
	require.Equal(t, http.StatusCreated, w.Code)
	link := decode[types.LinkResponse](t, w)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"update category", http.MethodPut, fmt.Sprintf("/api/bookmarks/categories/%d", category.ID), gin.H{"name": "mine"}},
		{"delete category", http.MethodDelete, fmt.Sprintf("/api/bookmarks/categories/%d", category.ID), nil},
		{"add link", http.MethodPost, fmt.Sprintf("/api/bookmarks/categories/%d/links", category.ID), gin.H{"title": "b", "url": "https://b.example"}},
		{"update link", http.MethodPut, fmt.Sprintf("/api/bookmarks/links/%d", link.ID), gin.H{"title": "b"}},
		{"delete link", http.MethodDelete, fmt.Sprintf("/api/bookmarks/links/%d", link.ID), nil},
		{"missing category", http.MethodDelete, "/api/bookmarks/categories/999999", nil},
		{"malformed id", http.MethodDelete, "/api/bookmarks/categories/abc", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, bob, tt.body)
			assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
			assert.Equal(t, types.CodeNotFound, decode[types.ErrorResponse](t, w).Code)
		})
	}

	w = s.do(t, http.MethodPut, "/api/bookmarks/links/reorder", bob, gin.H{
		"links": []gin.H{{"id": link.ID, "position": 42}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode[map[string]interface{}](t, w)["updated"])

	tree := decode[[]types.CategoryResponse](t, s.do(t, http.MethodGet, "/api/bookmarks", alice, nil))
	require.Len(t, tree, 1)
	assert.Equal(t, "Private", tree[0].Name)
	require.Len(t, tree[0].Links, 1)
	assert.Equal(t, 1, tree[0].Links[0].Position)

	assert.Empty(t, decode[[]types.CategoryResponse](t, s.do(t, http.MethodGet, "/api/bookmarks", bob, nil)))
}

func TestBookmarks_ImportAndDeleteAll(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/api/bookmarks/import", token, gin.H{
		"categories": []gin.H{
			{"name": "News", "links": []gin.H{
				{"title": "HN", "url": "https://news.ycombinator.com"},
				{"title": "Lobsters", "url": "https://lobste.rs"},
			}},
			{"name": "Tools", "links": []gin.H{
				{"title": "Go", "url": "https://go.dev"},
			}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	imported := decode[struct {
		Categories []types.ImportedCategoryResponse `json:"categories"`
	}](t, w).Categories
	require.Len(t, imported, 2)
	assert.Equal(t, 1, imported[0].Position)
	assert.Equal(t, 2, imported[0].LinkCount)

	w = s.do(t, http.MethodPost, "/api/bookmarks/import", token, gin.H{
		"categories": []gin.H{{"name": "Broken", "links": []gin.H{{"title": "x"}}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "categories[0].links[0].url", decode[types.ErrorResponse](t, w).Field)

	export := `<DL><p><DT><H3>Reading</H3><DL><p><DT><A HREF="https://example.com/a">A</A></DL><p></DL>`
	w = s.upload(t, "/api/bookmarks/import/html", token, "file", "bookmarks.html", "text/html", []byte(export))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	tree := decode[[]types.CategoryResponse](t, s.do(t, http.MethodGet, "/api/bookmarks", token, nil))
	require.Len(t, tree, 3)
	assert.Equal(t, "Reading", tree[2].Name)
	assert.Equal(t, 3, tree[2].Position)
	require.Len(t, tree[2].Links, 1)
	assert.Equal(t, 0, tree[2].Links[0].Position)
	require.NotNil(t, tree[2].Links[0].Icon)

	w = s.do(t, http.MethodDelete, "/api/bookmarks/all", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	counts := decode[map[string]interface{}](t, w)
	assert.EqualValues(t, 4, counts["deleted_links"])
	assert.EqualValues(t, 3, counts["deleted_categories"])

	assert.Empty(t, decode[[]types.CategoryResponse](t, s.do(t, http.MethodGet, "/api/bookmarks", token, nil)))
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice")

	huge := strings.Repeat("a", 5<<20)
	w := s.do(t, http.MethodPost, "/api/bookmarks/categories", token, gin.H{"name": huge})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUnknownAPIRoute(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, types.CodeNotFound, decode[types.ErrorResponse](t, w).Code)
}

func TestSPAFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	r := gin.New()
	r.NoRoute(spaFallback(dir))

	for path, want := range map[string]string{
		"/":           "<html>app</html>",
		"/settings/x": "<html>app</html>",
		"/app.js":     "console.log(1)",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, want, w.Body.String(), path)
	}
}

func TestWebSocketRefresh(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice")

	srv := httptest.NewServer(s.engine)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg map[string]string
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg["type"])

	s.createCategory(t, token, "Live")

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "refresh", msg["type"])

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
