// Package testcase 测试用例详情 - HTTP 处理
package testcase

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"testtrack/internal/model"
	"testtrack/internal/storage"
)

// CaseStore 定义 testcase handler 需要的存储接口（用于测试 mock）
type CaseStore interface {
	GetTestCase(ctx context.Context, groupID int64, tid string) (*model.TestCase, error)
	ListTestCaseFiles(ctx context.Context, groupID int64, tid string) ([]*model.TestCaseFile, error)
}

// Handler 测试用例详情处理器
type Handler struct {
	store CaseStore
}

// NewHandler 创建处理器
func NewHandler(store *storage.PostgresStore) *Handler {
	return &Handler{store: store}
}

// NewHandlerWithInterfaces 使用接口创建处理器（用于测试）
func NewHandlerWithInterfaces(store CaseStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/test-groups/{groupID}/cases/{tid}/detail", h.Detail)
}

// FileView 附属文档的表示形
type FileView struct {
	FileNo   int    `json:"fileNo"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
}

// DetailResponse 详情响应
type DetailResponse struct {
	Success      bool            `json:"success"`
	TestCase     *model.TestCase `json:"testCase"`
	ControlSpecs []FileView      `json:"controlSpecs"`
	DataFlows    []FileView      `json:"dataFlows"`
}

// Detail 返回用例字段与按类型区分的附属文档
// GET /api/v1/test-groups/{groupID}/cases/{tid}/detail
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	groupID, err := strconv.ParseInt(r.PathValue("groupID"), 10, 64)
	if err != nil || groupID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid test group id")
		return
	}
	tid := r.PathValue("tid")

	testCase, err := h.store.GetTestCase(ctx, groupID, tid)
	if err != nil {
		log.Printf("[testcase.detail.failed] group=%d tid=%s error=%v", groupID, tid, err)
		writeError(w, http.StatusInternalServerError, "failed to get test case")
		return
	}
	if testCase == nil {
		writeError(w, http.StatusNotFound, "test case not found")
		return
	}

	files, err := h.store.ListTestCaseFiles(ctx, groupID, tid)
	if err != nil {
		log.Printf("[testcase.detail.failed] group=%d tid=%s error=%v", groupID, tid, err)
		writeError(w, http.StatusInternalServerError, "failed to list test case files")
		return
	}

	resp := DetailResponse{
		Success:      true,
		TestCase:     testCase,
		ControlSpecs: []FileView{},
		DataFlows:    []FileView{},
	}
	for _, f := range files {
		view := FileView{FileNo: f.FileNo, FileName: f.FileName, FilePath: f.FilePath}
		switch f.FileType {
		case model.FileTypeControlSpec:
			resp.ControlSpecs = append(resp.ControlSpecs, view)
		case model.FileTypeDataFlow:
			resp.DataFlows = append(resp.DataFlows, view)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
