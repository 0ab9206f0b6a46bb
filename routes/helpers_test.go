package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/pmis_end/controllers"
	"github.com/BerniceZTT/pmis_end/middleware"
	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/progress"
	"github.com/BerniceZTT/pmis_end/repository/repotest"
	"github.com/BerniceZTT/pmis_end/service"
	"github.com/BerniceZTT/pmis_end/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// otpInbox 按用户记录验证码
type otpInbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *otpInbox) SendOTP(_ context.Context, user *models.User, code string, _ time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[user.ID.Hex()] = code
	return nil
}

func (b *otpInbox) code(userID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[userID]
}

var userSeq atomic.Int64

type testApp struct {
	router *gin.Engine
	store  *repotest.Store
	files  *repotest.FileStore
	logs   *repotest.OperationLogStore
	users  *service.UserService
	inbox  *otpInbox
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := repotest.NewStore()
	files := repotest.NewFileStore()
	userStore := repotest.NewUserStore()
	logs := &repotest.OperationLogStore{}
	inbox := &otpInbox{codes: map[string]string{}}

	evidence := service.NewEvidenceService(files, 1<<20, 5)
	users := service.NewUserService(userStore)
	auth := service.NewAuthService(userStore, repotest.NewOTPStore(), inbox, service.AuthConfig{})

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.OperationLoggerMiddleware(logs))
	RegisterRoutes(router, Handlers{
		Auth:             controllers.NewAuthController(auth, users),
		Users:            controllers.NewUserController(users),
		Projects:         controllers.NewProjectController(service.NewProjectService(store)),
		Progress:         controllers.NewProgressController(service.NewProgressService(store, evidence, 3, 20)),
		Activity:         controllers.NewActivityController(service.NewActivityService(store, store)),
		Files:            controllers.NewFileController(evidence),
		MeasurementBooks: controllers.NewMeasurementBookController(service.NewMeasurementBookService(repotest.NewMeasurementBookStore(), store, evidence)),
		Stats:            controllers.NewStatsController(service.NewStatsService(store), store),
	})

	return &testApp{router: router, store: store, files: files, logs: logs, users: users, inbox: inbox}
}

// tokenFor 创建指定角色的用户并签发Token
func (a *testApp) tokenFor(t *testing.T, role models.UserRole) string {
	t.Helper()
	name := fmt.Sprintf("%s%d", strings.ToLower(string(role)), userSeq.Add(1))
	user, err := a.users.Create(context.Background(), models.CreateUserRequest{
		FullName: "Test " + string(role),
		Username: name,
		Email:    name + "@example.com",
		Password: "Passw0rd!",
		Role:     role,
	}, models.Actor{Name: "test"})
	require.NoError(t, err)

	token, err := utils.GenerateToken(*user)
	require.NoError(t, err)
	return token
}

func (a *testApp) seedProject(t *testing.T, projectID string, workValue, bill float64) *models.Project {
	t.Helper()
	p := &models.Project{
		ProjectID:           projectID,
		ProjectName:         "Canal lining works",
		District:            "East",
		Department:          "Irrigation",
		ContractorName:      "Delta Infra",
		WorkValue:           workValue,
		BillSubmittedAmount: bill,
	}
	require.NoError(t, progress.Initialize(p, time.Now()))
	a.store.Put(p)
	return p
}

func (a *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path, token string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type filePart struct {
	field    string
	name     string
	mimeType string
	data     []byte
}

func pdfPart(field, name string) filePart {
	return filePart{field: field, name: name, mimeType: "application/pdf", data: []byte("%PDF-1.4 evidence")}
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		h.Set("Content-Type", f.mimeType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// body 解析JSON响应
func body(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	data, ok := body(t, w)["data"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return data
}

func requireCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := body(t, w)
	require.Equal(t, false, resp["success"])
	require.Equal(t, code, resp["code"])
}
