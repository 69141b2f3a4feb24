package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yyw2wyy/workload-system/internal/dto"
	"github.com/yyw2wyy/workload-system/internal/model"
	"github.com/yyw2wyy/workload-system/internal/service"
	"github.com/yyw2wyy/workload-system/internal/workflow"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
	"github.com/yyw2wyy/workload-system/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock WorkloadService ──

type mockWorkloadService struct {
	result     *dto.WorkloadResponse
	list       []dto.WorkloadResponse
	err        error
	gotActor   model.Actor
	gotID      uint
	gotIntent  workflow.Intent
	gotReq     *dto.WorkloadRequest
	gotUpload  []byte
	gotFile    string
	gotPartial bool
	gotReview  *dto.ReviewRequest
}

func (m *mockWorkloadService) Create(_ context.Context, actor model.Actor, req *dto.WorkloadRequest, file *service.Upload) (*dto.WorkloadResponse, error) {
	m.gotActor, m.gotReq = actor, req
	m.captureUpload(file)
	return m.result, m.err
}
func (m *mockWorkloadService) Get(_ context.Context, actor model.Actor, id uint) (*dto.WorkloadResponse, error) {
	m.gotActor, m.gotID = actor, id
	return m.result, m.err
}
func (m *mockWorkloadService) List(_ context.Context, actor model.Actor, intent workflow.Intent) ([]dto.WorkloadResponse, error) {
	m.gotActor, m.gotIntent = actor, intent
	return m.list, m.err
}
func (m *mockWorkloadService) Update(_ context.Context, actor model.Actor, id uint, req *dto.WorkloadRequest, file *service.Upload, partial bool) (*dto.WorkloadResponse, error) {
	m.gotActor, m.gotID, m.gotReq, m.gotPartial = actor, id, req, partial
	m.captureUpload(file)
	return m.result, m.err
}
func (m *mockWorkloadService) Delete(_ context.Context, actor model.Actor, id uint) error {
	m.gotActor, m.gotID = actor, id
	return m.err
}
func (m *mockWorkloadService) Review(_ context.Context, actor model.Actor, id uint, req *dto.ReviewRequest) (*dto.WorkloadResponse, error) {
	m.gotActor, m.gotID, m.gotReview = actor, id, req
	return m.result, m.err
}

func (m *mockWorkloadService) captureUpload(file *service.Upload) {
	if file == nil {
		return
	}
	m.gotFile = file.Filename
	m.gotUpload, _ = io.ReadAll(file.Reader)
}

// ── Mock ProjectService ──

type mockProjectService struct {
	result     *dto.ProjectResponse
	list       []dto.ProjectResponse
	err        error
	gotIntent  workflow.Intent
	gotPartial bool
	gotReview  *dto.ReviewRequest
}

func (m *mockProjectService) Create(_ context.Context, _ model.Actor, _ *dto.ProjectRequest) (*dto.ProjectResponse, error) {
	return m.result, m.err
}
func (m *mockProjectService) Get(_ context.Context, _ model.Actor, _ uint) (*dto.ProjectResponse, error) {
	return m.result, m.err
}
func (m *mockProjectService) List(_ context.Context, _ model.Actor, intent workflow.Intent) ([]dto.ProjectResponse, error) {
	m.gotIntent = intent
	return m.list, m.err
}
func (m *mockProjectService) Update(_ context.Context, _ model.Actor, _ uint, _ *dto.ProjectRequest, partial bool) (*dto.ProjectResponse, error) {
	m.gotPartial = partial
	return m.result, m.err
}
func (m *mockProjectService) Delete(_ context.Context, _ model.Actor, _ uint) error {
	return m.err
}
func (m *mockProjectService) Review(_ context.Context, _ model.Actor, _ uint, req *dto.ReviewRequest) (*dto.ProjectResponse, error) {
	m.gotReview = req
	return m.result, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
	gotIDs   []uint
}

func (m *mockExportService) ExportWorkloads(_ context.Context, _ model.Actor, ids []uint) (*bytes.Buffer, string, error) {
	m.gotIDs = ids
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportProjects(_ context.Context, _ model.Actor, ids []uint) (*bytes.Buffer, string, error) {
	m.gotIDs = ids
	return m.buf, m.filename, m.err
}

// ── Mock AnnouncementService / UserService ──

type mockAnnouncementService struct {
	list      []dto.AnnouncementResponse
	result    *dto.AnnouncementResponse
	err       error
	gotSource string
}

func (m *mockAnnouncementService) List(_ context.Context, source string) ([]dto.AnnouncementResponse, error) {
	m.gotSource = source
	return m.list, m.err
}
func (m *mockAnnouncementService) Get(_ context.Context, _ uint) (*dto.AnnouncementResponse, error) {
	return m.result, m.err
}

type mockUserService struct {
	list    []dto.UserResponse
	me      *dto.UserResponse
	err     error
	gotRole string
}

func (m *mockUserService) List(_ context.Context, role string) ([]dto.UserResponse, error) {
	m.gotRole = role
	return m.list, m.err
}
func (m *mockUserService) Me(_ context.Context, _ model.Actor) (*dto.UserResponse, error) {
	return m.me, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// newRouter 注册路由并注入身份
func newRouter(method, path string, h gin.HandlerFunc, id uint, role model.Role) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, func(c *gin.Context) {
		if id != 0 {
			c.Set("user_id", id)
			c.Set("role", string(role))
		}
		c.Next()
	}, h)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target string, v interface{}) *http.Request {
	var body io.Reader
	switch b := v.(type) {
	case nil:
		body = http.NoBody
	case string:
		body = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(v)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func strPtr(s string) *string { return &s }

// ═══════════════════════════════════════════════════════════
// WorkloadHandler Tests
// ═══════════════════════════════════════════════════════════

func TestWorkloadHandler_Create_JSON(t *testing.T) {
	mock := &mockWorkloadService{result: &dto.WorkloadResponse{ID: 7, Status: "pending"}}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPost, "/workloads", h.CreateWorkload, 1, model.RoleStudent)

	w := serve(r, jsonRequest(http.MethodPost, "/workloads", dto.WorkloadRequest{Name: strPtr("助教")}))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if mock.gotActor != (model.Actor{ID: 1, Role: model.RoleStudent}) {
		t.Errorf("unexpected actor %+v", mock.gotActor)
	}
	if mock.gotReq == nil || mock.gotReq.Name == nil || *mock.gotReq.Name != "助教" {
		t.Errorf("request not bound: %+v", mock.gotReq)
	}
	if mock.gotFile != "" {
		t.Errorf("JSON request should carry no upload, got %q", mock.gotFile)
	}
}

func TestWorkloadHandler_Create_Multipart(t *testing.T) {
	mock := &mockWorkloadService{result: &dto.WorkloadResponse{ID: 8}}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPost, "/workloads", h.CreateWorkload, 1, model.RoleStudent)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("data", `{"name":"竞赛","source":"competition"}`)
	fw, _ := mw.CreateFormFile("attachments", "证明.pdf")
	fw.Write([]byte("%PDF-1.4"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/workloads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := serve(r, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if mock.gotReq.Source == nil || *mock.gotReq.Source != "competition" {
		t.Errorf("data field not decoded: %+v", mock.gotReq)
	}
	if mock.gotFile != "证明.pdf" || string(mock.gotUpload) != "%PDF-1.4" {
		t.Errorf("upload not forwarded: %q %q", mock.gotFile, mock.gotUpload)
	}
}

func TestWorkloadHandler_Create_MultipartValidatesData(t *testing.T) {
	mock := &mockWorkloadService{result: &dto.WorkloadResponse{ID: 8}}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPost, "/workloads", h.CreateWorkload, 1, model.RoleStudent)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("data", `{"name":"大创","source":"innovation","shares":[{"percentage":100}]}`)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/workloads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := serve(r, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if resp := parseResponse(w); len(resp.Errors["user_id"]) == 0 {
		t.Errorf("expected user_id field error, got %v", resp.Errors)
	}
	if mock.gotReq != nil {
		t.Error("service must not be called when binding fails")
	}
}

func TestWorkloadHandler_Create_JSONValidatesShares(t *testing.T) {
	mock := &mockWorkloadService{}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPost, "/workloads", h.CreateWorkload, 1, model.RoleStudent)

	w := serve(r, jsonRequest(http.MethodPost, "/workloads", `{"source":"innovation","shares":[{"percentage":100}]}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); len(resp.Errors["user_id"]) == 0 {
		t.Errorf("expected user_id field error, got %v", resp.Errors)
	}
}

func TestWorkloadHandler_Create_BadJSON(t *testing.T) {
	h := NewWorkloadHandler(&mockWorkloadService{}, &mockExportService{})
	r := newRouter(http.MethodPost, "/workloads", h.CreateWorkload, 1, model.RoleStudent)

	w := serve(r, jsonRequest(http.MethodPost, "/workloads", "invalid json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestWorkloadHandler_Create_ValidationFailed(t *testing.T) {
	ve := pkgerrors.NewValidationError()
	ve.Add("name", "不能为空")
	ve.Add("mentor_reviewer_id", "必须指定导师审核人")
	mock := &mockWorkloadService{err: ve}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPost, "/workloads", h.CreateWorkload, 1, model.RoleStudent)

	w := serve(r, jsonRequest(http.MethodPost, "/workloads", dto.WorkloadRequest{}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeInvalidParams {
		t.Errorf("expected code %d, got %d", response.CodeInvalidParams, resp.Code)
	}
	if len(resp.Errors["name"]) != 1 || len(resp.Errors["mentor_reviewer_id"]) != 1 {
		t.Errorf("expected field errors, got %v", resp.Errors)
	}
}

func TestWorkloadHandler_Unauthenticated(t *testing.T) {
	h := NewWorkloadHandler(&mockWorkloadService{}, &mockExportService{})
	r := newRouter(http.MethodGet, "/workloads", h.ListWorkloads, 0, "")

	w := serve(r, httptest.NewRequest(http.MethodGet, "/workloads", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestWorkloadHandler_ListIntents(t *testing.T) {
	tests := []struct {
		name   string
		target string
		route  string
		pick   func(h *WorkloadHandler) gin.HandlerFunc
		want   workflow.Intent
	}{
		{"默认", "/workloads", "/workloads", func(h *WorkloadHandler) gin.HandlerFunc { return h.ListWorkloads }, workflow.IntentDefault},
		{"本人提交", "/workloads?submitted=true", "/workloads", func(h *WorkloadHandler) gin.HandlerFunc { return h.ListWorkloads }, workflow.IntentMine},
		{"待审核", "/workloads/pending_review", "/workloads/pending_review", func(h *WorkloadHandler) gin.HandlerFunc { return h.PendingReview }, workflow.IntentPendingReview},
		{"已审核", "/workloads/reviewed", "/workloads/reviewed", func(h *WorkloadHandler) gin.HandlerFunc { return h.Reviewed }, workflow.IntentReviewed},
		{"全部", "/workloads/all_workloads", "/workloads/all_workloads", func(h *WorkloadHandler) gin.HandlerFunc { return h.AllWorkloads }, workflow.IntentAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockWorkloadService{list: []dto.WorkloadResponse{{ID: 1}}}
			h := NewWorkloadHandler(mock, &mockExportService{})
			r := newRouter(http.MethodGet, tt.route, tt.pick(h), 4, model.RoleTeacher)

			w := serve(r, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if mock.gotIntent != tt.want {
				t.Errorf("expected intent %s, got %s", tt.want, mock.gotIntent)
			}
			data, _ := parseResponse(w).Data.(map[string]interface{})
			if list, _ := data["list"].([]interface{}); len(list) != 1 {
				t.Errorf("expected list of 1, got %v", data)
			}
		})
	}
}

func TestWorkloadHandler_Get_InvalidID(t *testing.T) {
	h := NewWorkloadHandler(&mockWorkloadService{}, &mockExportService{})
	r := newRouter(http.MethodGet, "/workloads/:id", h.GetWorkload, 1, model.RoleStudent)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/workloads/abc", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestWorkloadHandler_Get_NotFound(t *testing.T) {
	mock := &mockWorkloadService{err: service.ErrWorkloadNotFound}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodGet, "/workloads/:id", h.GetWorkload, 1, model.RoleStudent)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/workloads/42", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if mock.gotID != 42 {
		t.Errorf("expected id 42, got %d", mock.gotID)
	}
	if resp := parseResponse(w); resp.Code != response.CodeNotFound {
		t.Errorf("expected code %d, got %d", response.CodeNotFound, resp.Code)
	}
}

func TestWorkloadHandler_UpdateAndPatch(t *testing.T) {
	mock := &mockWorkloadService{result: &dto.WorkloadResponse{ID: 3}}
	h := NewWorkloadHandler(mock, &mockExportService{})

	r := newRouter(http.MethodPut, "/workloads/:id", h.UpdateWorkload, 1, model.RoleStudent)
	w := serve(r, jsonRequest(http.MethodPut, "/workloads/3", dto.WorkloadRequest{Name: strPtr("x")}))
	if w.Code != http.StatusOK || mock.gotPartial {
		t.Errorf("PUT: expected 200 with partial=false, got %d partial=%v", w.Code, mock.gotPartial)
	}

	r = newRouter(http.MethodPatch, "/workloads/:id", h.PatchWorkload, 1, model.RoleStudent)
	w = serve(r, jsonRequest(http.MethodPatch, "/workloads/3", dto.WorkloadRequest{Name: strPtr("y")}))
	if w.Code != http.StatusOK || !mock.gotPartial {
		t.Errorf("PATCH: expected 200 with partial=true, got %d partial=%v", w.Code, mock.gotPartial)
	}
}

func TestWorkloadHandler_Update_Denied(t *testing.T) {
	mock := &mockWorkloadService{err: pkgerrors.Denied("当前状态不允许修改")}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPut, "/workloads/:id", h.UpdateWorkload, 1, model.RoleStudent)

	w := serve(r, jsonRequest(http.MethodPut, "/workloads/3", dto.WorkloadRequest{}))

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestWorkloadHandler_Update_OptimisticLock(t *testing.T) {
	mock := &mockWorkloadService{err: pkgerrors.ErrOptimisticLock}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPatch, "/workloads/:id", h.PatchWorkload, 1, model.RoleStudent)

	w := serve(r, jsonRequest(http.MethodPatch, "/workloads/3", dto.WorkloadRequest{}))

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeConflict {
		t.Errorf("expected code %d, got %d", response.CodeConflict, resp.Code)
	}
}

func TestWorkloadHandler_Delete(t *testing.T) {
	mock := &mockWorkloadService{}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodDelete, "/workloads/:id", h.DeleteWorkload, 1, model.RoleStudent)

	w := serve(r, httptest.NewRequest(http.MethodDelete, "/workloads/5", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.gotID != 5 {
		t.Errorf("expected id 5, got %d", mock.gotID)
	}
}

func TestWorkloadHandler_Review(t *testing.T) {
	mock := &mockWorkloadService{result: &dto.WorkloadResponse{ID: 9, Status: "mentor_approved"}}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPost, "/workloads/:id/review", h.ReviewWorkload, 2, model.RoleMentor)

	w := serve(r, jsonRequest(http.MethodPost, "/workloads/9/review", dto.ReviewRequest{Status: "approved", MentorComment: "ok"}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.gotReview == nil || mock.gotReview.Status != "approved" || mock.gotReview.EffectiveComment() != "ok" {
		t.Errorf("review request not forwarded: %+v", mock.gotReview)
	}
}

func TestWorkloadHandler_Review_MissingStatus(t *testing.T) {
	h := NewWorkloadHandler(&mockWorkloadService{}, &mockExportService{})
	r := newRouter(http.MethodPost, "/workloads/:id/review", h.ReviewWorkload, 2, model.RoleMentor)

	w := serve(r, jsonRequest(http.MethodPost, "/workloads/9/review", map[string]string{"comment": "x"}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); len(resp.Errors["status"]) == 0 {
		t.Errorf("expected status field error, got %v", resp.Errors)
	}
}

func TestWorkloadHandler_Review_InvalidTransition(t *testing.T) {
	mock := &mockWorkloadService{err: pkgerrors.Transition("当前状态不可审核")}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPost, "/workloads/:id/review", h.ReviewWorkload, 2, model.RoleMentor)

	w := serve(r, jsonRequest(http.MethodPost, "/workloads/9/review", dto.ReviewRequest{Status: "approved"}))

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeInvalidTransition {
		t.Errorf("expected code %d, got %d", response.CodeInvalidTransition, resp.Code)
	}
}

func TestWorkloadHandler_InternalError(t *testing.T) {
	mock := &mockWorkloadService{err: errors.New("db down")}
	h := NewWorkloadHandler(mock, &mockExportService{})
	r := newRouter(http.MethodGet, "/workloads/:id", h.GetWorkload, 1, model.RoleStudent)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/workloads/1", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Message == "db down" {
		t.Error("internal error detail must not leak")
	}
}

func TestWorkloadHandler_Export(t *testing.T) {
	exp := &mockExportService{buf: bytes.NewBufferString("xlsx-bytes"), filename: "工作量导出_20250320.xlsx"}
	h := NewWorkloadHandler(&mockWorkloadService{}, exp)
	r := newRouter(http.MethodPost, "/workloads/export", h.ExportWorkloads, 4, model.RoleTeacher)

	w := serve(r, jsonRequest(http.MethodPost, "/workloads/export", dto.ExportWorkloadsRequest{WorkloadIDs: []uint{1, 2}}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %s", ct)
	}
	if w.Header().Get("Content-Disposition") == "" {
		t.Error("expected Content-Disposition header")
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if len(exp.gotIDs) != 2 {
		t.Errorf("expected 2 ids, got %v", exp.gotIDs)
	}
}

func TestWorkloadHandler_Export_EmptyIDs(t *testing.T) {
	h := NewWorkloadHandler(&mockWorkloadService{}, &mockExportService{})
	r := newRouter(http.MethodPost, "/workloads/export", h.ExportWorkloads, 4, model.RoleTeacher)

	w := serve(r, jsonRequest(http.MethodPost, "/workloads/export", dto.ExportWorkloadsRequest{WorkloadIDs: []uint{}}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); len(resp.Errors["workload_ids"]) == 0 {
		t.Errorf("expected workload_ids field error, got %v", resp.Errors)
	}
}

func TestWorkloadHandler_Export_Failure(t *testing.T) {
	exp := &mockExportService{err: service.ErrExportGenerateFail}
	h := NewWorkloadHandler(&mockWorkloadService{}, exp)
	r := newRouter(http.MethodPost, "/workloads/export", h.ExportWorkloads, 4, model.RoleTeacher)

	w := serve(r, jsonRequest(http.MethodPost, "/workloads/export", dto.ExportWorkloadsRequest{WorkloadIDs: []uint{1}}))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ProjectHandler Tests
// ═══════════════════════════════════════════════════════════

func TestProjectHandler_ListIntents(t *testing.T) {
	tests := []struct {
		name string
		pick func(h *ProjectHandler) gin.HandlerFunc
		want workflow.Intent
	}{
		{"declared", func(h *ProjectHandler) gin.HandlerFunc { return h.Declared }, workflow.IntentMine},
		{"related", func(h *ProjectHandler) gin.HandlerFunc { return h.Related }, workflow.IntentRelated},
		{"pending_review", func(h *ProjectHandler) gin.HandlerFunc { return h.PendingReview }, workflow.IntentPendingReview},
		{"approved_review", func(h *ProjectHandler) gin.HandlerFunc { return h.ApprovedReview }, workflow.IntentApprovedReview},
		{"reviewed", func(h *ProjectHandler) gin.HandlerFunc { return h.Reviewed }, workflow.IntentReviewed},
		{"all_projects", func(h *ProjectHandler) gin.HandlerFunc { return h.AllProjects }, workflow.IntentAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockProjectService{}
			h := NewProjectHandler(mock, &mockExportService{})
			r := newRouter(http.MethodGet, "/projects/"+tt.name, tt.pick(h), 4, model.RoleTeacher)

			w := serve(r, httptest.NewRequest(http.MethodGet, "/projects/"+tt.name, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if mock.gotIntent != tt.want {
				t.Errorf("expected intent %s, got %s", tt.want, mock.gotIntent)
			}
		})
	}
}

func TestProjectHandler_Create(t *testing.T) {
	mock := &mockProjectService{result: &dto.ProjectResponse{ID: 1, ReviewStatus: "pending"}}
	h := NewProjectHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPost, "/projects", h.CreateProject, 1, model.RoleStudent)

	w := serve(r, jsonRequest(http.MethodPost, "/projects", dto.ProjectRequest{Name: strPtr("横向课题")}))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestProjectHandler_Patch(t *testing.T) {
	mock := &mockProjectService{result: &dto.ProjectResponse{ID: 1}}
	h := NewProjectHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPatch, "/projects/:id", h.PatchProject, 1, model.RoleStudent)

	w := serve(r, jsonRequest(http.MethodPatch, "/projects/1", dto.ProjectRequest{ProjectStatus: strPtr("in_research")}))

	if w.Code != http.StatusOK || !mock.gotPartial {
		t.Errorf("expected 200 with partial=true, got %d partial=%v", w.Code, mock.gotPartial)
	}
}

func TestProjectHandler_Review_Forbidden(t *testing.T) {
	mock := &mockProjectService{err: pkgerrors.Denied("只有指定的审核教师可以审核")}
	h := NewProjectHandler(mock, &mockExportService{})
	r := newRouter(http.MethodPost, "/projects/:id/review", h.ReviewProject, 2, model.RoleMentor)

	w := serve(r, jsonRequest(http.MethodPost, "/projects/1/review", dto.ReviewRequest{Status: "approved"}))

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestProjectHandler_Export_Empty(t *testing.T) {
	exp := &mockExportService{err: service.ErrExportEmpty}
	h := NewProjectHandler(&mockProjectService{}, exp)
	r := newRouter(http.MethodPost, "/projects/export", h.ExportProjects, 4, model.RoleTeacher)

	w := serve(r, jsonRequest(http.MethodPost, "/projects/export", dto.ExportProjectsRequest{ProjectIDs: []uint{99}}))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// Announcement / User Handler Tests
// ═══════════════════════════════════════════════════════════

func TestAnnouncementHandler_List_SourceFilter(t *testing.T) {
	mock := &mockAnnouncementService{list: []dto.AnnouncementResponse{{ID: 1}}}
	h := NewAnnouncementHandler(mock)
	r := newRouter(http.MethodGet, "/announcements", h.ListAnnouncements, 1, model.RoleStudent)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/announcements?source=innovation", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.gotSource != "innovation" {
		t.Errorf("expected source innovation, got %q", mock.gotSource)
	}
}

func TestAnnouncementHandler_Get_NotFound(t *testing.T) {
	h := NewAnnouncementHandler(&mockAnnouncementService{err: service.ErrAnnouncementNotFound})
	r := newRouter(http.MethodGet, "/announcements/:id", h.GetAnnouncement, 1, model.RoleStudent)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/announcements/3", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestUserHandler_List_InvalidRole(t *testing.T) {
	mock := &mockUserService{}
	h := NewUserHandler(mock)
	r := newRouter(http.MethodGet, "/users", h.ListUsers, 1, model.RoleStudent)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/users?role=admin", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); len(resp.Errors["role"]) == 0 {
		t.Errorf("expected role field error, got %v", resp.Errors)
	}
}

func TestUserHandler_List_ByRole(t *testing.T) {
	mock := &mockUserService{list: []dto.UserResponse{{ID: 2, Username: "bob", Role: "mentor"}}}
	h := NewUserHandler(mock)
	r := newRouter(http.MethodGet, "/users", h.ListUsers, 1, model.RoleStudent)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/users?role=mentor", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.gotRole != "mentor" {
		t.Errorf("expected role mentor, got %q", mock.gotRole)
	}
}

func TestUserHandler_Me(t *testing.T) {
	mock := &mockUserService{me: &dto.UserResponse{ID: 1, Username: "alice", Role: "student"}}
	h := NewUserHandler(mock)
	r := newRouter(http.MethodGet, "/users/me", h.GetCurrentUser, 1, model.RoleStudent)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestMustGetActor_UnknownRole(t *testing.T) {
	h := NewUserHandler(&mockUserService{})
	r := newRouter(http.MethodGet, "/users/me", h.GetCurrentUser, 1, model.Role("admin"))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}
