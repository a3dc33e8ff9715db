// Package result 测试结果的读取整合与更新
package result

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"testtrack/internal/model"
	"testtrack/internal/storage"
)

// ResultStore 定义 result handler 需要的存储接口（用于测试 mock）
type ResultStore interface {
	GetTestCase(ctx context.Context, groupID int64, tid string) (*model.TestCase, error)
	ListTestContents(ctx context.Context, groupID int64, tid string) ([]*model.TestContent, error)
	ListTestResults(ctx context.Context, groupID int64, tid string) ([]*model.TestResult, error)
	ListResultHistory(ctx context.Context, groupID int64, tid string) ([]*model.TestResultHistory, error)
	ListEvidences(ctx context.Context, groupID int64, tid string) ([]*model.TestEvidence, error)
	DeleteEvidence(ctx context.Context, groupID int64, tid string, ref model.EvidenceRef) (string, error)
	ApplyResultUpdate(ctx context.Context, groupID int64, tid string, edits []model.RoundEdit, newRound *model.NewRound) (int, error)
}

// EvidenceBlobs 证迹 blob 的删除接口
type EvidenceBlobs interface {
	Delete(ctx context.Context, bucket, key string) error
}

// Handler 结果领域 HTTP 处理器
type Handler struct {
	store      ResultStore
	blobs      EvidenceBlobs
	fileBucket string
}

// NewHandler 创建结果处理器
func NewHandler(store *storage.PostgresStore, blobs EvidenceBlobs, fileBucket string) *Handler {
	return &Handler{store: store, blobs: blobs, fileBucket: fileBucket}
}

// NewHandlerWithInterfaces 使用接口创建处理器（用于测试）
func NewHandlerWithInterfaces(store ResultStore, blobs EvidenceBlobs, fileBucket string) *Handler {
	return &Handler{store: store, blobs: blobs, fileBucket: fileBucket}
}

// RegisterRoutes 注册结果相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/test-groups/{groupID}/cases/{tid}/results", h.Get)
	mux.HandleFunc("POST /api/v1/test-groups/{groupID}/cases/{tid}/results", h.Update)
}

// Get 返回整合后的结果视图
// GET /api/v1/test-groups/{groupID}/cases/{tid}/results
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, tid, ok := pathScope(w, r)
	if !ok {
		return
	}

	testCase, err := h.store.GetTestCase(ctx, groupID, tid)
	if err != nil {
		log.Printf("[result.get.failed] group=%d tid=%s error=%v", groupID, tid, err)
		writeError(w, http.StatusInternalServerError, "failed to get test case")
		return
	}
	if testCase == nil {
		writeError(w, http.StatusNotFound, "test case not found")
		return
	}

	contents, err := h.store.ListTestContents(ctx, groupID, tid)
	if err != nil {
		log.Printf("[result.get.failed] group=%d tid=%s error=%v", groupID, tid, err)
		writeError(w, http.StatusInternalServerError, "failed to list test contents")
		return
	}
	results, err := h.store.ListTestResults(ctx, groupID, tid)
	if err != nil {
		log.Printf("[result.get.failed] group=%d tid=%s error=%v", groupID, tid, err)
		writeError(w, http.StatusInternalServerError, "failed to list test results")
		return
	}
	history, err := h.store.ListResultHistory(ctx, groupID, tid)
	if err != nil {
		log.Printf("[result.get.failed] group=%d tid=%s error=%v", groupID, tid, err)
		writeError(w, http.StatusInternalServerError, "failed to list result history")
		return
	}
	evidences, err := h.store.ListEvidences(ctx, groupID, tid)
	if err != nil {
		log.Printf("[result.get.failed] group=%d tid=%s error=%v", groupID, tid, err)
		writeError(w, http.StatusInternalServerError, "failed to list evidences")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": Reconcile(contents, results, history, evidences),
	})
}

// UpdateRequest 结果更新请求体
type UpdateRequest struct {
	ExistingRounds   []model.RoundEdit   `json:"existingRounds"`
	NewRound         *model.NewRound     `json:"newRound"`
	DeletedEvidences []model.EvidenceRef `json:"deletedEvidences"`
}

// Update 应用结果更新
// POST /api/v1/test-groups/{groupID}/cases/{tid}/results
//
// 流程：
//  1. 证迹删除（blob と行、ベストエフォート、事务外）
//  2. 単一事务で既存轮次编辑 + 新轮次追加
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, tid, ok := pathScope(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	testCase, err := h.store.GetTestCase(ctx, groupID, tid)
	if err != nil {
		log.Printf("[result.update.failed] group=%d tid=%s error=%v", groupID, tid, err)
		writeError(w, http.StatusInternalServerError, "failed to get test case")
		return
	}
	if testCase == nil {
		writeError(w, http.StatusNotFound, "test case not found")
		return
	}

	log.Printf("[result.update.start] group=%d tid=%s edits=%d deletes=%d new_round=%t",
		groupID, tid, len(req.ExistingRounds), len(req.DeletedEvidences), req.NewRound != nil)

	// 証迹删除は事务外・ベストエフォート。失敗しても更新は続行する。
	for _, ref := range req.DeletedEvidences {
		path, err := h.store.DeleteEvidence(ctx, groupID, tid, ref)
		if err != nil {
			log.Printf("[result.update.evidence.delete.failed] group=%d tid=%s case=%d round=%d no=%d error=%v",
				groupID, tid, ref.TestCaseNo, ref.HistoryCount, ref.EvidenceNo, err)
			continue
		}
		if path == "" {
			continue
		}
		if h.blobs != nil {
			if err := h.blobs.Delete(ctx, h.fileBucket, path); err != nil {
				log.Printf("[result.update.evidence.blob.failed] path=%s error=%v", path, err)
			}
		}
	}

	newCount, err := h.store.ApplyResultUpdate(ctx, groupID, tid, req.ExistingRounds, req.NewRound)
	if err != nil {
		log.Printf("[result.update.tx.failed] group=%d tid=%s error=%v", groupID, tid, err)
		writeError(w, http.StatusInternalServerError, "failed to update results")
		return
	}

	log.Printf("[result.update.complete] group=%d tid=%s new_round=%d", groupID, tid, newCount)

	resp := map[string]interface{}{"success": true}
	if newCount > 0 {
		resp["historyCount"] = newCount
	}
	writeJSON(w, http.StatusOK, resp)
}

// pathScope 解析路径上的 groupID 与 tid
func pathScope(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	groupID, err := strconv.ParseInt(r.PathValue("groupID"), 10, 64)
	if err != nil || groupID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid test group id")
		return 0, "", false
	}
	tid := r.PathValue("tid")
	if tid == "" {
		writeError(w, http.StatusBadRequest, "tid is required")
		return 0, "", false
	}
	return groupID, tid, true
}
