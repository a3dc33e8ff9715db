// Package storage 提供数据存储层
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"testtrack/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore PostgreSQL 存储
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 创建 PostgreSQL 存储
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close 关闭连接
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping 健康检查
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// === TestGroup 操作 ===

// GetTestGroup 获取测试组（已删除的组视为不存在）
func (s *PostgresStore) GetTestGroup(ctx context.Context, id int64) (*model.TestGroup, error) {
	query := `SELECT id, group_name, is_deleted, created_at
			  FROM tt_test_groups WHERE id = $1 AND is_deleted = FALSE`
	g := &model.TestGroup{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.GroupName, &g.IsDeleted, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// === ImportResult 操作 ===

// CreateImportResult 创建导入批次记录，返回自增 ID
func (s *PostgresStore) CreateImportResult(ctx context.Context, r *model.ImportResult) (int64, error) {
	query := `
		INSERT INTO tt_import_results
			(file_name, import_status, import_type, executor_name, count, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		r.FileName, r.ImportStatus, r.ImportType, r.ExecutorName, r.Count, r.Message).Scan(&id)
	return id, err
}

// UpdateImportResult 更新批次记录的终态
func (s *PostgresStore) UpdateImportResult(ctx context.Context, id int64, status model.ImportStatus, count int, message string) error {
	query := `UPDATE tt_import_results
			  SET import_status = $1, count = $2, message = $3, updated_at = NOW()
			  WHERE id = $4`
	_, err := s.db.ExecContext(ctx, query, status, count, message, id)
	return err
}

// GetImportResult 获取单条批次记录
func (s *PostgresStore) GetImportResult(ctx context.Context, id int64) (*model.ImportResult, error) {
	query := `SELECT id, file_name, import_status, import_type, executor_name, count, message, created_at, updated_at
			  FROM tt_import_results WHERE id = $1`
	r := &model.ImportResult{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.FileName, &r.ImportStatus, &r.ImportType,
		&r.ExecutorName, &r.Count, &r.Message, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListImportResults 列出批次记录（新到旧）
func (s *PostgresStore) ListImportResults(ctx context.Context, limit, offset int) ([]*model.ImportResult, error) {
	query := `SELECT id, file_name, import_status, import_type, executor_name, count, message, created_at, updated_at
			  FROM tt_import_results ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.ImportResult
	for rows.Next() {
		r := &model.ImportResult{}
		if err := rows.Scan(&r.ID, &r.FileName, &r.ImportStatus, &r.ImportType,
			&r.ExecutorName, &r.Count, &r.Message, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// === TestCase 读取操作 ===

// GetTestCase 获取测试用例
func (s *PostgresStore) GetTestCase(ctx context.Context, groupID int64, tid string) (*model.TestCase, error) {
	query := `SELECT test_group_id, tid, first_layer, second_layer, third_layer, fourth_layer,
					 purpose, request_id, check_items, test_procedure, created_at
			  FROM tt_test_cases WHERE test_group_id = $1 AND tid = $2`
	c := &model.TestCase{}
	err := s.db.QueryRowContext(ctx, query, groupID, tid).Scan(
		&c.TestGroupID, &c.TID, &c.FirstLayer, &c.SecondLayer, &c.ThirdLayer, &c.FourthLayer,
		&c.Purpose, &c.RequestID, &c.CheckItems, &c.TestProcedure, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListTestCaseFiles 列出用例附属文档（file_no 升序）
func (s *PostgresStore) ListTestCaseFiles(ctx context.Context, groupID int64, tid string) ([]*model.TestCaseFile, error) {
	query := `SELECT test_group_id, tid, file_no, file_name, file_path, file_type
			  FROM tt_test_case_files WHERE test_group_id = $1 AND tid = $2
			  ORDER BY file_no`
	rows, err := s.db.QueryContext(ctx, query, groupID, tid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*model.TestCaseFile
	for rows.Next() {
		f := &model.TestCaseFile{}
		if err := rows.Scan(&f.TestGroupID, &f.TID, &f.FileNo, &f.FileName, &f.FilePath, &f.FileType); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ListTestContents 列出テスト内容（test_case_no 升序）
func (s *PostgresStore) ListTestContents(ctx context.Context, groupID int64, tid string) ([]*model.TestContent, error) {
	query := `SELECT test_group_id, tid, test_case_no, test_case, expected_value, is_target
			  FROM tt_test_contents WHERE test_group_id = $1 AND tid = $2
			  ORDER BY test_case_no`
	rows, err := s.db.QueryContext(ctx, query, groupID, tid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contents []*model.TestContent
	for rows.Next() {
		c := &model.TestContent{}
		if err := rows.Scan(&c.TestGroupID, &c.TID, &c.TestCaseNo, &c.TestCase, &c.ExpectedValue, &c.IsTarget); err != nil {
			return nil, err
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

// === TestResult 读取操作 ===

const resultValueColumns = `result, judgment, software_version, hardware_version, comparator_version,
		execution_date, executor, note`

// ListTestResults 列出当前结果（test_case_no 升序）
func (s *PostgresStore) ListTestResults(ctx context.Context, groupID int64, tid string) ([]*model.TestResult, error) {
	query := `SELECT test_group_id, tid, test_case_no, ` + resultValueColumns + `
			  FROM tt_test_results WHERE test_group_id = $1 AND tid = $2
			  ORDER BY test_case_no`
	rows, err := s.db.QueryContext(ctx, query, groupID, tid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.TestResult
	for rows.Next() {
		r := &model.TestResult{}
		if err := rows.Scan(&r.TestGroupID, &r.TID, &r.TestCaseNo,
			&r.Result, &r.Judgment, &r.SoftwareVersion, &r.HardwareVersion, &r.ComparatorVersion,
			&r.ExecutionDate, &r.Executor, &r.Note); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListResultHistory 列出轮次履历（test_case_no, history_count 升序）
func (s *PostgresStore) ListResultHistory(ctx context.Context, groupID int64, tid string) ([]*model.TestResultHistory, error) {
	query := `SELECT test_group_id, tid, test_case_no, history_count, ` + resultValueColumns + `
			  FROM tt_test_results_history WHERE test_group_id = $1 AND tid = $2
			  ORDER BY test_case_no, history_count`
	rows, err := s.db.QueryContext(ctx, query, groupID, tid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*model.TestResultHistory
	for rows.Next() {
		h := &model.TestResultHistory{}
		if err := rows.Scan(&h.TestGroupID, &h.TID, &h.TestCaseNo, &h.HistoryCount,
			&h.Result, &h.Judgment, &h.SoftwareVersion, &h.HardwareVersion, &h.ComparatorVersion,
			&h.ExecutionDate, &h.Executor, &h.Note); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ListEvidences 列出证迹（test_case_no, history_count, evidence_no 升序）
func (s *PostgresStore) ListEvidences(ctx context.Context, groupID int64, tid string) ([]*model.TestEvidence, error) {
	query := `SELECT test_group_id, tid, test_case_no, history_count, evidence_no, evidence_name, evidence_path
			  FROM tt_test_evidences WHERE test_group_id = $1 AND tid = $2
			  ORDER BY test_case_no, history_count, evidence_no`
	rows, err := s.db.QueryContext(ctx, query, groupID, tid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evidences []*model.TestEvidence
	for rows.Next() {
		e := &model.TestEvidence{}
		if err := rows.Scan(&e.TestGroupID, &e.TID, &e.TestCaseNo, &e.HistoryCount,
			&e.EvidenceNo, &e.EvidenceName, &e.EvidencePath); err != nil {
			return nil, err
		}
		evidences = append(evidences, e)
	}
	return evidences, rows.Err()
}

// DeleteEvidence 删除证迹行，返回被删行的 evidence_path
//
// 行不存在时返回空字符串，不视为错误。对象存储侧的删除由调用方执行。
func (s *PostgresStore) DeleteEvidence(ctx context.Context, groupID int64, tid string, ref model.EvidenceRef) (string, error) {
	query := `DELETE FROM tt_test_evidences
			  WHERE test_group_id = $1 AND tid = $2 AND test_case_no = $3
				AND history_count = $4 AND evidence_no = $5
			  RETURNING evidence_path`
	var path string
	err := s.db.QueryRowContext(ctx, query, groupID, tid, ref.TestCaseNo, ref.HistoryCount, ref.EvidenceNo).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return path, err
}
