// Package server 组装 HTTP API
//
// 路由组织：
//   - result: 结果整合读取与更新
//   - testcase: 用例详情
//   - importresult: 导入批次记录
//   - /health, /metrics: 运维端点
package server

import (
	"encoding/json"
	"net/http"

	"testtrack/api"
	"testtrack/internal/apiserver/importresult"
	"testtrack/internal/apiserver/result"
	"testtrack/internal/apiserver/testcase"
	"testtrack/internal/config"
	"testtrack/internal/objstore"
	"testtrack/internal/storage"
)

// Handler API 处理器
type Handler struct {
	store   *storage.PostgresStore
	blobs   *objstore.Client
	minio   config.MinIOConfig
	metrics *Metrics
}

// NewHandler 创建 Handler 实例
func NewHandler(store *storage.PostgresStore, blobs *objstore.Client, minio config.MinIOConfig) *Handler {
	return &Handler{
		store:   store,
		blobs:   blobs,
		minio:   minio,
		metrics: NewMetrics("testtrack"),
	}
}

// Router 组装全部路由
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", MetricsHandler())
	mux.Handle("GET /api/openapi/", http.StripPrefix("/api/", http.FileServerFS(api.OpenAPIFS)))
	mux.HandleFunc("GET /api/docs", h.Docs)

	resultHandler := result.NewHandler(h.store, h.blobs, h.minio.FileBucket)
	resultHandler.RegisterRoutes(mux)

	caseHandler := testcase.NewHandler(h.store)
	caseHandler.RegisterRoutes(mux)

	importHandler := importresult.NewHandler(h.store)
	importHandler.RegisterRoutes(mux)

	return h.metrics.MetricsMiddleware(mux)
}

// Health 健康检查接口
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Docs API 文档页面（Swagger UI）
// GET /api/docs
func (h *Handler) Docs(w http.ResponseWriter, r *http.Request) {
	data, err := api.DocsFS.ReadFile("docs/index.html")
	if err != nil {
		http.Error(w, "docs not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
