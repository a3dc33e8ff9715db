// Package model 定义核心数据模型
//
// result.go 包含测试结果侧的数据模型：
//   - ResultValues：一轮执行记录的值字段（current 与 history 共用）
//   - TestResult：当前结果（每个 case_no 一条）
//   - TestResultHistory：追加式的轮次履历
//   - TestEvidence：挂在 (case_no, history_count) 上的证迹文件
//   - RoundEdit / NewRound / ResultEntry：结果更新请求的载体
package model

import "time"

// ============================================================================
// ResultValues - 一轮执行的值字段
// ============================================================================

// ResultValues current 行与 history 行共用的值字段
//
// 指针字段为 NULL 容许列；Judgment 为空时落库前统一回落「未着手」。
type ResultValues struct {
	Result            *string    `json:"result" db:"result"`
	Judgment          Judgment   `json:"judgment" db:"judgment"`
	SoftwareVersion   *string    `json:"software_version" db:"software_version"`
	HardwareVersion   *string    `json:"hardware_version" db:"hardware_version"`
	ComparatorVersion *string    `json:"comparator_version" db:"comparator_version"`
	ExecutionDate     *time.Time `json:"execution_date" db:"execution_date"`
	Executor          *string    `json:"executor" db:"executor"`
	Note              *string    `json:"note" db:"note"`
}

// ============================================================================
// TestResult - 当前结果
// ============================================================================

// TestResult 每个 (test_group_id, tid, test_case_no) 的「当前」结果行
//
// 导入流水线写入基线（相当于第 1 轮），之后由结果更新路径覆盖。
type TestResult struct {
	TestGroupID int64  `json:"test_group_id" db:"test_group_id"`
	TID         string `json:"tid" db:"tid"`
	TestCaseNo  int    `json:"test_case_no" db:"test_case_no"`
	ResultValues
}

// ============================================================================
// TestResultHistory - 轮次履历
// ============================================================================

// TestResultHistory 追加式履历，history_count 从 1 开始
//
// 同一轮注册的所有 case_no 共享同一个 history_count，
// 即轮次是批量时间戳而不是按 case 独立推进的序号。
type TestResultHistory struct {
	TestGroupID  int64  `json:"test_group_id" db:"test_group_id"`
	TID          string `json:"tid" db:"tid"`
	TestCaseNo   int    `json:"test_case_no" db:"test_case_no"`
	HistoryCount int    `json:"history_count" db:"history_count"`
	ResultValues
}

// ============================================================================
// TestEvidence - 证迹文件
// ============================================================================

// TestEvidence 挂在一个具体 (case_no, history_count) 上的证迹
//
// evidence_no 在该作用域内从 1 连续编号。
type TestEvidence struct {
	TestGroupID  int64  `json:"test_group_id" db:"test_group_id"`
	TID          string `json:"tid" db:"tid"`
	TestCaseNo   int    `json:"test_case_no" db:"test_case_no"`
	HistoryCount int    `json:"history_count" db:"history_count"`
	EvidenceNo   int    `json:"evidence_no" db:"evidence_no"`
	EvidenceName string `json:"evidence_name" db:"evidence_name"`
	EvidencePath string `json:"evidence_path" db:"evidence_path"`
}

// ============================================================================
// 结果更新请求载体
// ============================================================================

// ResultEntry 结果更新请求中一个 case_no 的提交值
//
// リクエストの wire 形式は camelCase。EvidencePaths は新規ラウンドのみ有効：
// アップロード済みの証迹パスを順に 1 から採番して落库する。
type ResultEntry struct {
	TestCaseNo        int        `json:"testCaseNo"`
	Result            *string    `json:"result"`
	Judgment          Judgment   `json:"judgment"`
	SoftwareVersion   *string    `json:"softwareVersion"`
	HardwareVersion   *string    `json:"hardwareVersion"`
	ComparatorVersion *string    `json:"comparatorVersion"`
	ExecutionDate     *time.Time `json:"executionDate"`
	Executor          *string    `json:"executor"`
	Note              *string    `json:"note"`
	EvidencePaths     []string   `json:"evidencePaths,omitempty"`
}

// Values 把提交值转换为落库用的值字段
func (e ResultEntry) Values() ResultValues {
	return ResultValues{
		Result:            e.Result,
		Judgment:          e.Judgment.OrDefault(),
		SoftwareVersion:   e.SoftwareVersion,
		HardwareVersion:   e.HardwareVersion,
		ComparatorVersion: e.ComparatorVersion,
		ExecutionDate:     e.ExecutionDate,
		Executor:          e.Executor,
		Note:              e.Note,
	}
}

// RoundEdit 对既存轮次的整体覆盖编辑
type RoundEdit struct {
	HistoryCount int           `json:"historyCount"`
	TestResults  []ResultEntry `json:"testResults"`
}

// NewRound 追加一个新轮次
//
// HistoryCount 由服务端在事务内以 max+1 重新导出，
// 请求中携带的值只用于日志比对，不作为落库依据。
type NewRound struct {
	HistoryCount int           `json:"historyCount,omitempty"`
	TestResults  []ResultEntry `json:"testResults"`
}

// EvidenceRef 证迹删除请求的定位键
type EvidenceRef struct {
	TestCaseNo   int `json:"testCaseNo"`
	HistoryCount int `json:"historyCount"`
	EvidenceNo   int `json:"evidenceNo"`
}
