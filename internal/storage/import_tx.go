// 导入批次事务
//
// 一次批次的所有 DB 写入都在单个事务内完成，任何一步失败则整体回滚。
// 连接获取与事务执行各有独立的时间预算，按数据量可在配置中调整。
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"testtrack/internal/model"
)

// BatchTx 导入批次事务内可用的写入操作
//
// 以窄接口暴露给 importer，便于用模拟实现验证批次的原子性。
type BatchTx interface {
	TestCaseExists(ctx context.Context, groupID int64, tid string) (bool, error)
	CreateTestCase(ctx context.Context, c *model.TestCase) error
	CreateTestCaseFile(ctx context.Context, f *model.TestCaseFile) error
	CreateTestContent(ctx context.Context, c *model.TestContent) error
	CreateTestResult(ctx context.Context, r *model.TestResult) error
	CreateTestResultHistory(ctx context.Context, h *model.TestResultHistory) error
	CreateTestEvidence(ctx context.Context, e *model.TestEvidence) error
}

// RunImportTx 在单个事务内执行 fn
//
// maxWait 限制连接获取的等待时间，txTimeout 限制事务整体的墙钟时间。
// fn 返回错误或超时都会回滚全部写入。
func (s *PostgresStore) RunImportTx(ctx context.Context, maxWait, txTimeout time.Duration, fn func(ctx context.Context, tx BatchTx) error) error {
	waitCtx, cancelWait := context.WithTimeout(ctx, maxWait)
	defer cancelWait()

	conn, err := s.db.Conn(waitCtx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	txCtx, cancelTx := context.WithTimeout(ctx, txTimeout)
	defer cancelTx()

	tx, err := conn.BeginTx(txCtx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(txCtx, &batchTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// batchTx BatchTx 的 PostgreSQL 实现
type batchTx struct {
	tx *sql.Tx
}

func (b *batchTx) TestCaseExists(ctx context.Context, groupID int64, tid string) (bool, error) {
	var exists bool
	err := b.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tt_test_cases WHERE test_group_id = $1 AND tid = $2)`,
		groupID, tid).Scan(&exists)
	return exists, err
}

func (b *batchTx) CreateTestCase(ctx context.Context, c *model.TestCase) error {
	query := `
		INSERT INTO tt_test_cases
			(test_group_id, tid, first_layer, second_layer, third_layer, fourth_layer,
			 purpose, request_id, check_items, test_procedure, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`
	_, err := b.tx.ExecContext(ctx, query,
		c.TestGroupID, c.TID, c.FirstLayer, c.SecondLayer, c.ThirdLayer, c.FourthLayer,
		c.Purpose, c.RequestID, c.CheckItems, c.TestProcedure)
	return err
}

func (b *batchTx) CreateTestCaseFile(ctx context.Context, f *model.TestCaseFile) error {
	query := `
		INSERT INTO tt_test_case_files
			(test_group_id, tid, file_no, file_name, file_path, file_type)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := b.tx.ExecContext(ctx, query,
		f.TestGroupID, f.TID, f.FileNo, f.FileName, f.FilePath, f.FileType)
	return err
}

func (b *batchTx) CreateTestContent(ctx context.Context, c *model.TestContent) error {
	query := `
		INSERT INTO tt_test_contents
			(test_group_id, tid, test_case_no, test_case, expected_value, is_target)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := b.tx.ExecContext(ctx, query,
		c.TestGroupID, c.TID, c.TestCaseNo, c.TestCase, c.ExpectedValue, c.IsTarget)
	return err
}

func (b *batchTx) CreateTestResult(ctx context.Context, r *model.TestResult) error {
	query := `
		INSERT INTO tt_test_results
			(test_group_id, tid, test_case_no, result, judgment, software_version,
			 hardware_version, comparator_version, execution_date, executor, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := b.tx.ExecContext(ctx, query,
		r.TestGroupID, r.TID, r.TestCaseNo, r.Result, r.Judgment.OrDefault(),
		r.SoftwareVersion, r.HardwareVersion, r.ComparatorVersion,
		r.ExecutionDate, r.Executor, r.Note)
	return err
}

func (b *batchTx) CreateTestResultHistory(ctx context.Context, h *model.TestResultHistory) error {
	query := `
		INSERT INTO tt_test_results_history
			(test_group_id, tid, test_case_no, history_count, result, judgment, software_version,
			 hardware_version, comparator_version, execution_date, executor, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := b.tx.ExecContext(ctx, query,
		h.TestGroupID, h.TID, h.TestCaseNo, h.HistoryCount, h.Result, h.Judgment.OrDefault(),
		h.SoftwareVersion, h.HardwareVersion, h.ComparatorVersion,
		h.ExecutionDate, h.Executor, h.Note)
	return err
}

func (b *batchTx) CreateTestEvidence(ctx context.Context, e *model.TestEvidence) error {
	query := `
		INSERT INTO tt_test_evidences
			(test_group_id, tid, test_case_no, history_count, evidence_no, evidence_name, evidence_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := b.tx.ExecContext(ctx, query,
		e.TestGroupID, e.TID, e.TestCaseNo, e.HistoryCount, e.EvidenceNo, e.EvidenceName, e.EvidencePath)
	return err
}
