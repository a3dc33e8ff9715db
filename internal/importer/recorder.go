// 批次记录与结果报告
//
// tt_import_results には 1 回の実行につき必ず 1 行残す。
// 結果報告（JSON・CSV）は出力 bucket へ書き出すが、
// 報告の書き出し失敗は批次自体を失敗にしない。
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"testtrack/internal/model"
)

// TIDResult 报告中一个 TID 的处理结果
type TIDResult struct {
	Row          int    `json:"row"`
	TID          string `json:"tid"`
	Success      bool   `json:"success"`
	Operation    string `json:"operation"`
	ContentCount int    `json:"contentCount,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Summary 成功批次的汇总报告
type Summary struct {
	TotalTestCases   int         `json:"totalTestCases"`
	TotalContents    int         `json:"totalContents"`
	SuccessCount     int         `json:"successCount"`
	ErrorCount       int         `json:"errorCount"`
	CreatedTestCases int         `json:"createdTestCases"`
	CreatedContents  int         `json:"createdContents"`
	UploadedFiles    int         `json:"uploadedFiles"`
	Results          []TIDResult `json:"results"`
	StartedAt        string      `json:"startedAt"`
	CompletedAt      string      `json:"completedAt"`
}

// ============================================================================
// runRecorder - tt_import_results の生命周期
// ============================================================================

type runRecorder struct {
	store     Store
	id        int64
	fileName  string
	executor  string
	finalized bool
}

func newRunRecorder(store Store, fileName, executor string) *runRecorder {
	return &runRecorder{store: store, fileName: fileName, executor: executor}
}

// start 以「実施中」状態でレコードを作成する
func (r *runRecorder) start(ctx context.Context) error {
	id, err := r.store.CreateImportResult(ctx, &model.ImportResult{
		FileName:     r.fileName,
		ImportStatus: model.ImportStatusInProgress,
		ImportType:   model.ImportTypeTestCase,
		ExecutorName: r.executor,
		Count:        0,
		Message:      "インポート処理を開始しました",
	})
	if err != nil {
		return err
	}
	r.id = id
	return nil
}

// succeed 成功で確定する
func (r *runRecorder) succeed(ctx context.Context, count int, message string) error {
	r.finalized = true
	return r.store.UpdateImportResult(ctx, r.id, model.ImportStatusSucceeded, count, message)
}

// fail 失敗で確定する
//
// レコード作成前の失敗は直接失敗行を挿入する。記録自体の失敗はログに残すだけ。
func (r *runRecorder) fail(ctx context.Context, message string) {
	if r.finalized {
		return
	}
	r.finalized = true

	var err error
	if r.id != 0 {
		err = r.store.UpdateImportResult(ctx, r.id, model.ImportStatusFailed, 0, message)
	} else {
		_, err = r.store.CreateImportResult(ctx, &model.ImportResult{
			FileName:     r.fileName,
			ImportStatus: model.ImportStatusFailed,
			ImportType:   model.ImportTypeTestCase,
			ExecutorName: r.executor,
			Count:        0,
			Message:      message,
		})
	}
	if err != nil {
		log.Printf("[import.record] failed to record failure: %v", err)
	}
}

// ============================================================================
// reportWriter - 結果報告の書き出し
// ============================================================================

type reportWriter struct {
	blobs  BlobStore
	bucket string
}

// writeFailure 校验・参照错误的 JSON + CSV 报告
func (w *reportWriter) writeFailure(ctx context.Context, ts time.Time, message string, errs []string) {
	slug := timestampSlug(ts)

	payload, err := json.MarshalIndent(map[string]interface{}{
		"error":  message,
		"errors": errs,
	}, "", "  ")
	if err != nil {
		log.Printf("[import.report] failed to marshal failure report: %v", err)
		return
	}
	jsonKey := fmt.Sprintf("test-case-import-results/result-%s.json", slug)
	if err := w.blobs.UploadBytes(ctx, w.bucket, jsonKey, payload, "application/json"); err != nil {
		log.Printf("[import.report] failed to write failure report: %v", err)
	}

	csvKey := fmt.Sprintf("test-case-import-results/result-%s.csv", slug)
	if err := w.blobs.UploadBytes(ctx, w.bucket, csvKey, failureCSV(errs), "text/csv"); err != nil {
		log.Printf("[import.report] failed to write failure csv report: %v", err)
	}

	log.Printf("[import.report] failure reports written json=%s csv=%s", jsonKey, csvKey)
}

// writeSummary 成功批次的 JSON + CSV 报告
func (w *reportWriter) writeSummary(ctx context.Context, ts time.Time, summary Summary) {
	slug := timestampSlug(ts)

	jsonPayload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Printf("[import.report] failed to marshal summary: %v", err)
		return
	}
	jsonKey := fmt.Sprintf("test-case-import-results/result-%s.json", slug)
	if err := w.blobs.UploadBytes(ctx, w.bucket, jsonKey, jsonPayload, "application/json"); err != nil {
		log.Printf("[import.report] failed to write json report: %v", err)
	}

	csvKey := fmt.Sprintf("test-case-import-results/result-%s.csv", slug)
	if err := w.blobs.UploadBytes(ctx, w.bucket, csvKey, resultCSV(summary.Results), "text/csv"); err != nil {
		log.Printf("[import.report] failed to write csv report: %v", err)
	}

	log.Printf("[import.report] reports written json=%s csv=%s", jsonKey, csvKey)
}

// resultCSV 把 TID 别结果编码为 CSV
func resultCSV(results []TIDResult) []byte {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	cw.Write([]string{"行番号", "TID", "結果", "操作", "テスト内容数", "エラー詳細"})
	for _, r := range results {
		outcome := "失敗"
		if r.Success {
			outcome = "成功"
		}
		cw.Write([]string{
			strconv.Itoa(r.Row),
			r.TID,
			outcome,
			r.Operation,
			strconv.Itoa(r.ContentCount),
			r.ErrorMessage,
		})
	}
	cw.Flush()
	return buf.Bytes()
}

// failureCSV 列构成与成功报告相同，1 エラー 1 行
//
// 校验・参照错误不对应单个 TID，行番号・TID 等列留空。
func failureCSV(errs []string) []byte {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	cw.Write([]string{"行番号", "TID", "結果", "操作", "テスト内容数", "エラー詳細"})
	for _, e := range errs {
		cw.Write([]string{"", "", "失敗", "error", "", e})
	}
	cw.Flush()
	return buf.Bytes()
}

// timestampSlug ISO 形式からキーに使えない文字を置き換えたもの
func timestampSlug(ts time.Time) string {
	utc := ts.UTC()
	return fmt.Sprintf("%s-%03dZ", utc.Format("2006-01-02T15-04-05"), utc.Nanosecond()/1e6)
}
