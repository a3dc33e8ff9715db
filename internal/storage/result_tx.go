// 结果更新事务
//
// 既存轮次的编辑与新轮次的追加在同一个事务内执行，
// 任何一步失败则整个请求的写入全部回滚。
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"testtrack/internal/model"
)

// ApplyResultUpdate 在单个事务内应用结果更新
//
// 处理顺序：
//  1. 对每个既存轮次编辑，整体覆盖对应的履历行
//  2. 提交中 history_count 最大的一批，把值推入当前结果行
//  3. 有新轮次时，在事务内以 max+1 导出轮次号，
//     请求中携带的值只用于日志比对，不作为落库依据
//
// 返回新轮次的轮次号（无新轮次时为 0）。
func (s *PostgresStore) ApplyResultUpdate(ctx context.Context, groupID int64, tid string, edits []model.RoundEdit, newRound *model.NewRound) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 既存轮次编辑
	for _, edit := range edits {
		for _, entry := range edit.TestResults {
			query := `
				UPDATE tt_test_results_history
				SET result = $1, judgment = $2, software_version = $3, hardware_version = $4,
					comparator_version = $5, execution_date = $6, executor = $7, note = $8
				WHERE test_group_id = $9 AND tid = $10 AND test_case_no = $11 AND history_count = $12
			`
			_, err := tx.ExecContext(ctx, query,
				entry.Result, entry.Judgment.OrDefault(),
				entry.SoftwareVersion, entry.HardwareVersion, entry.ComparatorVersion,
				entry.ExecutionDate, entry.Executor, entry.Note,
				groupID, tid, entry.TestCaseNo, edit.HistoryCount)
			if err != nil {
				return 0, fmt.Errorf("update history round %d case %d: %w", edit.HistoryCount, entry.TestCaseNo, err)
			}
		}
	}

	// 轮次号最大的一批编辑推入当前结果
	if latest := latestEdit(edits); latest != nil {
		for _, entry := range latest.TestResults {
			if err := upsertCurrentResult(ctx, tx, groupID, tid, entry); err != nil {
				return 0, fmt.Errorf("push round %d to current, case %d: %w", latest.HistoryCount, entry.TestCaseNo, err)
			}
		}
	}

	// 新轮次追加
	newCount := 0
	if newRound != nil && len(newRound.TestResults) > 0 {
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(history_count), 0) + 1 FROM tt_test_results_history
			 WHERE test_group_id = $1 AND tid = $2`,
			groupID, tid).Scan(&newCount)
		if err != nil {
			return 0, fmt.Errorf("derive history_count: %w", err)
		}
		if newRound.HistoryCount != 0 && newRound.HistoryCount != newCount {
			log.Printf("[result.update] history_count mismatch tid=%s client=%d derived=%d",
				tid, newRound.HistoryCount, newCount)
		}

		for _, entry := range newRound.TestResults {
			if err := upsertCurrentResult(ctx, tx, groupID, tid, entry); err != nil {
				return 0, fmt.Errorf("upsert current, case %d: %w", entry.TestCaseNo, err)
			}

			histQuery := `
				INSERT INTO tt_test_results_history
					(test_group_id, tid, test_case_no, history_count, result, judgment, software_version,
					 hardware_version, comparator_version, execution_date, executor, note)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			`
			_, err := tx.ExecContext(ctx, histQuery,
				groupID, tid, entry.TestCaseNo, newCount,
				entry.Result, entry.Judgment.OrDefault(),
				entry.SoftwareVersion, entry.HardwareVersion, entry.ComparatorVersion,
				entry.ExecutionDate, entry.Executor, entry.Note)
			if err != nil {
				return 0, fmt.Errorf("insert history round %d case %d: %w", newCount, entry.TestCaseNo, err)
			}

			for i, path := range entry.EvidencePaths {
				evQuery := `
					INSERT INTO tt_test_evidences
						(test_group_id, tid, test_case_no, history_count, evidence_no, evidence_name, evidence_path)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
				`
				_, err := tx.ExecContext(ctx, evQuery,
					groupID, tid, entry.TestCaseNo, newCount, i+1, baseName(path), path)
				if err != nil {
					return 0, fmt.Errorf("insert evidence round %d case %d no %d: %w", newCount, entry.TestCaseNo, i+1, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return newCount, nil
}

// upsertCurrentResult 以提交值覆盖当前结果行，不存在时插入
func upsertCurrentResult(ctx context.Context, tx *sql.Tx, groupID int64, tid string, entry model.ResultEntry) error {
	query := `
		INSERT INTO tt_test_results
			(test_group_id, tid, test_case_no, result, judgment, software_version,
			 hardware_version, comparator_version, execution_date, executor, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (test_group_id, tid, test_case_no) DO UPDATE SET
			result = EXCLUDED.result,
			judgment = EXCLUDED.judgment,
			software_version = EXCLUDED.software_version,
			hardware_version = EXCLUDED.hardware_version,
			comparator_version = EXCLUDED.comparator_version,
			execution_date = EXCLUDED.execution_date,
			executor = EXCLUDED.executor,
			note = EXCLUDED.note
	`
	_, err := tx.ExecContext(ctx, query,
		groupID, tid, entry.TestCaseNo, entry.Result, entry.Judgment.OrDefault(),
		entry.SoftwareVersion, entry.HardwareVersion, entry.ComparatorVersion,
		entry.ExecutionDate, entry.Executor, entry.Note)
	return err
}

// latestEdit 返回轮次号最大的一批编辑
func latestEdit(edits []model.RoundEdit) *model.RoundEdit {
	var latest *model.RoundEdit
	for i := range edits {
		if latest == nil || edits[i].HistoryCount > latest.HistoryCount {
			latest = &edits[i]
		}
	}
	return latest
}

// baseName 取路径最后一段作为表示名
func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
