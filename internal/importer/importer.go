// 导入流水线的编排
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"testtrack/internal/config"
	"testtrack/internal/model"
	"testtrack/internal/storage"
)

// Store 导入批次需要的存储操作
type Store interface {
	GetTestGroup(ctx context.Context, id int64) (*model.TestGroup, error)
	CreateImportResult(ctx context.Context, r *model.ImportResult) (int64, error)
	UpdateImportResult(ctx context.Context, id int64, status model.ImportStatus, count int, message string) error
	RunImportTx(ctx context.Context, maxWait, txTimeout time.Duration, fn func(ctx context.Context, tx storage.BatchTx) error) error
}

// BlobStore 导入批次需要的对象存储操作
type BlobStore interface {
	DownloadBytes(ctx context.Context, bucket, key string) ([]byte, error)
	UploadBytes(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Params 一次批次执行的输入
type Params struct {
	// InputKey 输入 bucket 内的 ZIP 对象键
	InputKey string

	// TestGroupID 导入目标的测试组
	TestGroupID int64

	// ExecutorName 执行者名（记录用）
	ExecutorName string
}

// Importer 导入批次
type Importer struct {
	store  Store
	blobs  BlobStore
	minio  config.MinIOConfig
	budget config.ImportConfig
	now    func() time.Time
}

// New 创建导入批次
func New(store Store, blobs BlobStore, cfg *config.Config) *Importer {
	return &Importer{
		store:  store,
		blobs:  blobs,
		minio:  cfg.MinIO,
		budget: cfg.Import,
		now:    time.Now,
	}
}

// Run 执行一次导入批次
//
// 失敗時も tt_import_results に必ず終態を残す。
// 戻り値が非 nil のとき呼び出し側は非ゼロ終了すべき。
func (imp *Importer) Run(ctx context.Context, p Params) (err error) {
	startedAt := imp.now()
	log.Printf("[import.start] key=%s group=%d executor=%s", p.InputKey, p.TestGroupID, p.ExecutorName)

	rec := newRunRecorder(imp.store, p.InputKey, p.ExecutorName)
	reports := &reportWriter{blobs: imp.blobs, bucket: imp.minio.OutputBucket}

	defer func() {
		if err != nil {
			rec.fail(ctx, err.Error())
			importRunsTotal.WithLabelValues("failed").Inc()
		}
	}()

	// テストグループの存在確認
	group, err := imp.store.GetTestGroup(ctx, p.TestGroupID)
	if err != nil {
		return fmt.Errorf("failed to load test group: %w", err)
	}
	if group == nil {
		return fmt.Errorf("テストグループID %d が見つかりません", p.TestGroupID)
	}

	// 実行開始を記録
	if err := rec.start(ctx); err != nil {
		return fmt.Errorf("failed to create import record: %w", err)
	}
	log.Printf("[import.record] id=%d", rec.id)

	// ZIP 読み込みと展開
	zipData, err := imp.blobs.DownloadBytes(ctx, imp.minio.InputBucket, p.InputKey)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	archive, err := ExtractArchive(zipData)
	if err != nil {
		return err
	}
	log.Printf("[import.extract] files=%d", len(archive.Files))

	// CSV 解析
	rows, err := ParseManifest(archive.Manifest)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("CSVにデータが含まれていません")
	}
	log.Printf("[import.parse] rows=%d", len(rows))

	// 事前バリデーション
	if validationErrs := ValidateRows(rows); len(validationErrs) > 0 {
		message := fmt.Sprintf("バリデーションエラーが%d件発生したため実行されませんでした:\n%s",
			len(validationErrs), strings.Join(validationErrs, "\n"))
		reports.writeFailure(ctx, startedAt, message, validationErrs)
		return errors.New(message)
	}

	// TID ごとにグループ化
	groups := GroupByTID(rows)
	log.Printf("[import.group] test_cases=%d", len(groups))

	// 参照ファイルの存在確認
	if refErrs := CheckFileReferences(groups, archive.Files); len(refErrs) > 0 {
		message := fmt.Sprintf("ファイル存在エラーが%d件発生したため実行されませんでした:\n%s",
			len(refErrs), strings.Join(refErrs, "\n"))
		reports.writeFailure(ctx, startedAt, message, refErrs)
		return errors.New(message)
	}

	// 単一トランザクションで全件落库
	var (
		results       []TIDResult
		created       int
		totalContents int
		uploadedFiles int
	)
	err = imp.store.RunImportTx(ctx, imp.budget.MaxWait, imp.budget.TxTimeout, func(txCtx context.Context, tx storage.BatchTx) error {
		for i, g := range groups {
			rowNumber := i + 2
			log.Printf("[import.tid] %d/%d tid=%s", i+1, len(groups), g.TID)

			res, uploaded, importErr := imp.importOne(txCtx, tx, p.TestGroupID, g, archive.Files, rowNumber)
			if importErr != nil {
				results = append(results, TIDResult{
					Row:          rowNumber,
					TID:          g.TID,
					Operation:    "error",
					ErrorMessage: importErr.Error(),
				})
				return fmt.Errorf("%d行目（TID: %s）の処理中にエラーが発生したため全件ロールバックしました:\n- %s",
					rowNumber, g.TID, importErr.Error())
			}
			results = append(results, res)
			created++
			totalContents += len(g.Contents)
			uploadedFiles += uploaded
		}
		return nil
	})
	if err != nil {
		// ロールバック後もアップロード済み blob は残る
		log.Printf("[import.rollback] uploaded blobs are not removed, files=%d", uploadedFiles)
		return err
	}

	completedAt := imp.now()
	summary := Summary{
		TotalTestCases:   len(groups),
		TotalContents:    totalContents,
		SuccessCount:     created,
		ErrorCount:       0,
		CreatedTestCases: created,
		CreatedContents:  totalContents,
		UploadedFiles:    uploadedFiles,
		Results:          results,
		StartedAt:        startedAt.UTC().Format(time.RFC3339),
		CompletedAt:      completedAt.UTC().Format(time.RFC3339),
	}
	reports.writeSummary(ctx, startedAt, summary)

	message := fmt.Sprintf("%d件のテストケースを正常にインポートしました（テスト内容: %d件, ファイル: %d件）",
		created, totalContents, uploadedFiles)
	if err := rec.succeed(ctx, created, message); err != nil {
		return fmt.Errorf("failed to finalize import record: %w", err)
	}

	importRunsTotal.WithLabelValues("succeeded").Inc()
	importCasesCreated.Add(float64(created))
	importFilesUploaded.Add(float64(uploadedFiles))
	log.Printf("[import.done] cases=%d contents=%d files=%d", created, totalContents, uploadedFiles)
	return nil
}

// importOne 落库一个 TID 的全部数据，返回报告行与上传文件数
func (imp *Importer) importOne(ctx context.Context, tx storage.BatchTx, groupID int64, g GroupedTestCase, files FileSet, rowNumber int) (TIDResult, int, error) {
	exists, err := tx.TestCaseExists(ctx, groupID, g.TID)
	if err != nil {
		return TIDResult{}, 0, err
	}
	if exists {
		return TIDResult{}, 0, fmt.Errorf("TID「%s」は既に登録されています", g.TID)
	}

	if err := tx.CreateTestCase(ctx, &model.TestCase{
		TestGroupID:   groupID,
		TID:           g.TID,
		FirstLayer:    g.FirstLayer,
		SecondLayer:   g.SecondLayer,
		ThirdLayer:    g.ThirdLayer,
		FourthLayer:   g.FourthLayer,
		Purpose:       g.Purpose,
		RequestID:     g.RequestID,
		CheckItems:    g.CheckItems,
		TestProcedure: g.TestProcedure,
	}); err != nil {
		return TIDResult{}, 0, err
	}

	uploaded := 0

	// 制御仕様 → データフロー の順で file_no を連番にする
	fileNo := 1
	for _, specPath := range g.ControlSpecPaths {
		entry, ok := files.Lookup(specPath)
		if !ok {
			return TIDResult{}, uploaded, fmt.Errorf("制御仕様ファイル「%s」がZIP内に見つかりません", specPath)
		}
		key, err := imp.uploadCaseFile(ctx, groupID, g.TID, "control-spec", entry)
		if err != nil {
			return TIDResult{}, uploaded, err
		}
		uploaded++
		if err := tx.CreateTestCaseFile(ctx, &model.TestCaseFile{
			TestGroupID: groupID,
			TID:         g.TID,
			FileNo:      fileNo,
			FileName:    entry.OriginalName,
			FilePath:    key,
			FileType:    model.FileTypeControlSpec,
		}); err != nil {
			return TIDResult{}, uploaded, err
		}
		fileNo++
	}
	for _, flowPath := range g.DataFlowPaths {
		entry, ok := files.Lookup(flowPath)
		if !ok {
			return TIDResult{}, uploaded, fmt.Errorf("データフローファイル「%s」がZIP内に見つかりません", flowPath)
		}
		key, err := imp.uploadCaseFile(ctx, groupID, g.TID, "data-flow", entry)
		if err != nil {
			return TIDResult{}, uploaded, err
		}
		uploaded++
		if err := tx.CreateTestCaseFile(ctx, &model.TestCaseFile{
			TestGroupID: groupID,
			TID:         g.TID,
			FileNo:      fileNo,
			FileName:    entry.OriginalName,
			FilePath:    key,
			FileType:    model.FileTypeDataFlow,
		}); err != nil {
			return TIDResult{}, uploaded, err
		}
		fileNo++
	}

	for _, content := range g.Contents {
		if err := tx.CreateTestContent(ctx, &model.TestContent{
			TestGroupID:   groupID,
			TID:           g.TID,
			TestCaseNo:    content.TestCaseNo,
			TestCase:      content.TestCase,
			ExpectedValue: content.ExpectedValue,
			IsTarget:      content.IsTarget,
		}); err != nil {
			return TIDResult{}, uploaded, err
		}

		values := model.ResultValues{
			Result:            content.Result,
			Judgment:          content.Judgment,
			SoftwareVersion:   content.SoftwareVersion,
			HardwareVersion:   content.HardwareVersion,
			ComparatorVersion: content.ComparatorVersion,
			ExecutionDate:     content.ExecutionDate,
			Executor:          content.Executor,
			Note:              content.Note,
		}

		if err := tx.CreateTestResult(ctx, &model.TestResult{
			TestGroupID:  groupID,
			TID:          g.TID,
			TestCaseNo:   content.TestCaseNo,
			ResultValues: values,
		}); err != nil {
			return TIDResult{}, uploaded, err
		}

		// 導入時の履歴は history_count=1 固定
		if err := tx.CreateTestResultHistory(ctx, &model.TestResultHistory{
			TestGroupID:  groupID,
			TID:          g.TID,
			TestCaseNo:   content.TestCaseNo,
			HistoryCount: 1,
			ResultValues: values,
		}); err != nil {
			return TIDResult{}, uploaded, err
		}

		for evidenceNo, evidencePath := range content.EvidencePaths {
			entry, ok := files.Lookup(evidencePath)
			if !ok {
				return TIDResult{}, uploaded, fmt.Errorf("エビデンスファイル「%s」がZIP内に見つかりません", evidencePath)
			}
			key := fmt.Sprintf("evidences/%d/%s/%s", groupID, g.TID, imp.derivedName("evidence", entry.OriginalName))
			if err := imp.blobs.UploadBytes(ctx, imp.minio.FileBucket, key, entry.Data, ""); err != nil {
				return TIDResult{}, uploaded, fmt.Errorf("エビデンスファイル「%s」のアップロードに失敗しました: %w", evidencePath, err)
			}
			uploaded++
			if err := tx.CreateTestEvidence(ctx, &model.TestEvidence{
				TestGroupID:  groupID,
				TID:          g.TID,
				TestCaseNo:   content.TestCaseNo,
				HistoryCount: 1,
				EvidenceNo:   evidenceNo + 1,
				EvidenceName: entry.OriginalName,
				EvidencePath: key,
			}); err != nil {
				return TIDResult{}, uploaded, err
			}
		}
	}

	return TIDResult{
		Row:          rowNumber,
		TID:          g.TID,
		Success:      true,
		Operation:    "created",
		ContentCount: len(g.Contents),
	}, uploaded, nil
}

// uploadCaseFile 上传用例附属文档，返回对象键
func (imp *Importer) uploadCaseFile(ctx context.Context, groupID int64, tid, typeTag string, entry FileEntry) (string, error) {
	key := fmt.Sprintf("test-cases/%d/%s/%s", groupID, tid, imp.derivedName(typeTag, entry.OriginalName))
	if err := imp.blobs.UploadBytes(ctx, imp.minio.FileBucket, key, entry.Data, ""); err != nil {
		return "", fmt.Errorf("ファイル「%s」のアップロードに失敗しました: %w", entry.OriginalName, err)
	}
	return key, nil
}

// derivedName 保存名 = {種別}_{unixミリ秒}_{元のファイル名}
func (imp *Importer) derivedName(typeTag, originalName string) string {
	return fmt.Sprintf("%s_%d_%s", typeTag, imp.now().UnixMilli(), path.Base(originalName))
}
