// Package importresult 导入批次记录 - HTTP 处理
package importresult

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"testtrack/internal/model"
	"testtrack/internal/storage"
)

const defaultLimit = 50

// ImportResultStore 定义 importresult handler 需要的存储接口（用于测试 mock）
type ImportResultStore interface {
	ListImportResults(ctx context.Context, limit, offset int) ([]*model.ImportResult, error)
	GetImportResult(ctx context.Context, id int64) (*model.ImportResult, error)
}

// Handler 导入批次记录处理器
type Handler struct {
	store ImportResultStore
}

// NewHandler 创建处理器
func NewHandler(store *storage.PostgresStore) *Handler {
	return &Handler{store: store}
}

// NewHandlerWithInterfaces 使用接口创建处理器（用于测试）
func NewHandlerWithInterfaces(store ImportResultStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/import-results", h.List)
	mux.HandleFunc("GET /api/v1/import-results/{id}", h.Get)
}

// List 列出批次记录（新到旧）
// GET /api/v1/import-results?limit=50&offset=0
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	results, err := h.store.ListImportResults(ctx, limit, offset)
	if err != nil {
		log.Printf("[importresult.list.failed] error=%v", err)
		writeError(w, http.StatusInternalServerError, "failed to list import results")
		return
	}
	if results == nil {
		results = []*model.ImportResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": results,
	})
}

// Get 获取单条批次记录
// GET /api/v1/import-results/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid import result id")
		return
	}

	result, err := h.store.GetImportResult(ctx, id)
	if err != nil {
		log.Printf("[importresult.get.failed] id=%d error=%v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to get import result")
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "import result not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
