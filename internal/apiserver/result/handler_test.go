// Package result Handler 单元测试（Mock 隔离存储层）
package result

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"testtrack/internal/model"
)

// ============================================================================
// Mock 实现（实现 ResultStore / EvidenceBlobs 接口）
// ============================================================================

type mockResultStore struct {
	testCase  *model.TestCase
	contents  []*model.TestContent
	results   []*model.TestResult
	history   []*model.TestResultHistory
	evidences []*model.TestEvidence

	// 更新系呼び出しの記録
	appliedEdits    []model.RoundEdit
	appliedNewRound *model.NewRound
	deletedRefs     []model.EvidenceRef
	applyErr        error
}

func (m *mockResultStore) GetTestCase(ctx context.Context, groupID int64, tid string) (*model.TestCase, error) {
	return m.testCase, nil
}

func (m *mockResultStore) ListTestContents(ctx context.Context, groupID int64, tid string) ([]*model.TestContent, error) {
	return m.contents, nil
}

func (m *mockResultStore) ListTestResults(ctx context.Context, groupID int64, tid string) ([]*model.TestResult, error) {
	return m.results, nil
}

func (m *mockResultStore) ListResultHistory(ctx context.Context, groupID int64, tid string) ([]*model.TestResultHistory, error) {
	return m.history, nil
}

func (m *mockResultStore) ListEvidences(ctx context.Context, groupID int64, tid string) ([]*model.TestEvidence, error) {
	return m.evidences, nil
}

func (m *mockResultStore) DeleteEvidence(ctx context.Context, groupID int64, tid string, ref model.EvidenceRef) (string, error) {
	m.deletedRefs = append(m.deletedRefs, ref)
	for _, e := range m.evidences {
		if e.TestCaseNo == ref.TestCaseNo && e.HistoryCount == ref.HistoryCount && e.EvidenceNo == ref.EvidenceNo {
			return e.EvidencePath, nil
		}
	}
	return "", nil
}

func (m *mockResultStore) ApplyResultUpdate(ctx context.Context, groupID int64, tid string, edits []model.RoundEdit, newRound *model.NewRound) (int, error) {
	if m.applyErr != nil {
		return 0, m.applyErr
	}
	m.appliedEdits = edits
	m.appliedNewRound = newRound

	if newRound == nil || len(newRound.TestResults) == 0 {
		return 0, nil
	}
	// サーバ側導出：既存の最大轮次 + 1
	max := 0
	for _, h := range m.history {
		if h.HistoryCount > max {
			max = h.HistoryCount
		}
	}
	return max + 1, nil
}

type mockEvidenceBlobs struct {
	deleted []string
	err     error
}

func (m *mockEvidenceBlobs) Delete(ctx context.Context, bucket, key string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, bucket+"/"+key)
	return nil
}

func serve(store ResultStore, blobs EvidenceBlobs, method, target, body string) *httptest.ResponseRecorder {
	handler := NewHandlerWithInterfaces(store, blobs, "files")
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func baseCase() *model.TestCase {
	return &model.TestCase{TestGroupID: 1, TID: "1-1-1-1"}
}

// ============================================================================
// GET /results
// ============================================================================

func TestGet_ReturnsReconciledResults(t *testing.T) {
	store := &mockResultStore{
		testCase: baseCase(),
		contents: []*model.TestContent{content(1, true)},
		results:  []*model.TestResult{current(1, model.JudgmentOK, "値")},
		history:  []*model.TestResultHistory{round(1, 1, model.JudgmentOK, "値")},
	}

	rec := serve(store, &mockEvidenceBlobs{}, "GET", "/api/v1/test-groups/1/cases/1-1-1-1/results", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool                   `json:"success"`
		Results map[string]*CaseResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	cr, ok := resp.Results["1"]
	if !ok {
		t.Fatalf("case 1 missing: %v", resp.Results)
	}
	if cr.LatestValidResult.Judgment != model.JudgmentOK {
		t.Errorf("judgment = %s", cr.LatestValidResult.Judgment)
	}
}

func TestGet_UnknownCaseReturns404(t *testing.T) {
	store := &mockResultStore{}

	rec := serve(store, &mockEvidenceBlobs{}, "GET", "/api/v1/test-groups/1/cases/9-9-9-9/results", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGet_InvalidGroupIDReturns400(t *testing.T) {
	store := &mockResultStore{testCase: baseCase()}

	rec := serve(store, &mockEvidenceBlobs{}, "GET", "/api/v1/test-groups/abc/cases/1-1-1-1/results", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// ============================================================================
// POST /results
// ============================================================================

func TestUpdate_NewRoundNumberDerivedServerSide(t *testing.T) {
	store := &mockResultStore{
		testCase: baseCase(),
		history: []*model.TestResultHistory{
			round(1, 1, model.JudgmentOK, "1回目"),
			round(1, 2, model.JudgmentNG, "2回目"),
		},
	}

	// クライアントが違う轮次号を送っても max+1 が使われる
	body := `{"newRound": {"historyCount": 99, "testResults": [{"testCaseNo": 1, "judgment": "OK"}]}}`
	rec := serve(store, &mockEvidenceBlobs{}, "POST", "/api/v1/test-groups/1/cases/1-1-1-1/results", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if got := resp["historyCount"]; got != float64(3) {
		t.Errorf("historyCount = %v, want 3", got)
	}
	if store.appliedNewRound == nil || len(store.appliedNewRound.TestResults) != 1 {
		t.Fatalf("new round not applied: %+v", store.appliedNewRound)
	}
}

func TestUpdate_ExistingRoundEditsPassedThrough(t *testing.T) {
	store := &mockResultStore{testCase: baseCase()}

	body := `{"existingRounds": [{"historyCount": 2, "testResults": [{"testCaseNo": 1, "judgment": "NG", "result": "再確認"}]}]}`
	rec := serve(store, &mockEvidenceBlobs{}, "POST", "/api/v1/test-groups/1/cases/1-1-1-1/results", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}

	if len(store.appliedEdits) != 1 || store.appliedEdits[0].HistoryCount != 2 {
		t.Fatalf("edits = %+v", store.appliedEdits)
	}
	entry := store.appliedEdits[0].TestResults[0]
	if entry.Judgment != model.JudgmentNG || entry.Result == nil || *entry.Result != "再確認" {
		t.Errorf("entry = %+v", entry)
	}

	// 新轮次なしなら historyCount は返らない
	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if _, ok := resp["historyCount"]; ok {
		t.Error("historyCount should be absent without a new round")
	}
}

func TestUpdate_EvidenceDeletionIsBestEffort(t *testing.T) {
	store := &mockResultStore{
		testCase:  baseCase(),
		evidences: []*model.TestEvidence{evidence(1, 2, 1, "old.png")},
	}
	blobs := &mockEvidenceBlobs{}

	body := `{"deletedEvidences": [
		{"testCaseNo": 1, "historyCount": 2, "evidenceNo": 1},
		{"testCaseNo": 1, "historyCount": 2, "evidenceNo": 9}
	]}`
	rec := serve(store, blobs, "POST", "/api/v1/test-groups/1/cases/1-1-1-1/results", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}

	if len(store.deletedRefs) != 2 {
		t.Fatalf("deletedRefs = %+v", store.deletedRefs)
	}
	// 行が見つかった方だけ blob 削除が走る
	if len(blobs.deleted) != 1 || !strings.HasSuffix(blobs.deleted[0], "old.png") {
		t.Errorf("blob deletes = %v", blobs.deleted)
	}
}

func TestUpdate_BlobDeleteFailureDoesNotBlock(t *testing.T) {
	store := &mockResultStore{
		testCase:  baseCase(),
		evidences: []*model.TestEvidence{evidence(1, 1, 1, "old.png")},
	}
	blobs := &mockEvidenceBlobs{err: fmt.Errorf("minio down")}

	body := `{"deletedEvidences": [{"testCaseNo": 1, "historyCount": 1, "evidenceNo": 1}],
		"newRound": {"testResults": [{"testCaseNo": 1, "judgment": "OK"}]}}`
	rec := serve(store, blobs, "POST", "/api/v1/test-groups/1/cases/1-1-1-1/results", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}
	if store.appliedNewRound == nil {
		t.Error("new round should still be applied")
	}
}

func TestUpdate_TxFailureReturns500(t *testing.T) {
	store := &mockResultStore{testCase: baseCase(), applyErr: fmt.Errorf("deadlock")}

	body := `{"newRound": {"testResults": [{"testCaseNo": 1, "judgment": "OK"}]}}`
	rec := serve(store, &mockEvidenceBlobs{}, "POST", "/api/v1/test-groups/1/cases/1-1-1-1/results", body)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestUpdate_InvalidBodyReturns400(t *testing.T) {
	store := &mockResultStore{testCase: baseCase()}

	rec := serve(store, &mockEvidenceBlobs{}, "POST", "/api/v1/test-groups/1/cases/1-1-1-1/results", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
