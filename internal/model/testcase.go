// Package model 定义核心数据模型
//
// testcase.go 包含测试用例侧的数据模型：
//   - TestGroup：测试组（导入与结果的顶层作用域）
//   - TestCase：一个 TID 对应的测试用例
//   - TestCaseFile：用例附属的制御仕様・データフロー文档
//   - TestContent：用例内按 case_no 排列的テスト内容
package model

import "time"

// ============================================================================
// TestGroup - 测试组
// ============================================================================

// TestGroup 测试组
//
// 所有用例・结果表都以 (test_group_id, tid) 为作用域。
// 组本身的 CRUD 由周边应用管理，本核心只读取存在性。
type TestGroup struct {
	ID        int64     `json:"id" db:"id"`
	GroupName string    `json:"group_name" db:"group_name"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ============================================================================
// TestCase - 测试用例（TID 单位）
// ============================================================================

// TestCase 一个 (test_group_id, tid) 对应一条
//
// 只由导入流水线创建，核心不更新・不删除。
// 分类 4 层・目的・要求ID 来自 CSV 中该 TID 的首行。
type TestCase struct {
	TestGroupID   int64     `json:"test_group_id" db:"test_group_id"`
	TID           string    `json:"tid" db:"tid"`
	FirstLayer    string    `json:"first_layer" db:"first_layer"`
	SecondLayer   string    `json:"second_layer" db:"second_layer"`
	ThirdLayer    string    `json:"third_layer" db:"third_layer"`
	FourthLayer   string    `json:"fourth_layer" db:"fourth_layer"`
	Purpose       string    `json:"purpose" db:"purpose"`
	RequestID     string    `json:"request_id" db:"request_id"`
	CheckItems    string    `json:"check_items" db:"check_items"`
	TestProcedure string    `json:"test_procedure" db:"test_procedure"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ============================================================================
// TestCaseFile - 用例附属文档
// ============================================================================

// FileType 附属文档类型
type FileType int

const (
	// FileTypeControlSpec 制御仕様
	FileTypeControlSpec FileType = 0

	// FileTypeDataFlow データフロー
	FileTypeDataFlow FileType = 1
)

// TestCaseFile 用例附属文档
//
// file_no 在一个 TID 内连续编号，制御仕様在前・データフロー在后，
// 两个列表共用同一个计数器。
type TestCaseFile struct {
	TestGroupID int64    `json:"test_group_id" db:"test_group_id"`
	TID         string   `json:"tid" db:"tid"`
	FileNo      int      `json:"file_no" db:"file_no"`
	FileName    string   `json:"file_name" db:"file_name"`
	FilePath    string   `json:"file_path" db:"file_path"`
	FileType    FileType `json:"file_type" db:"file_type"`
}

// ============================================================================
// TestContent - テスト内容（case_no 单位）
// ============================================================================

// TestContent 一个 (test_group_id, tid, test_case_no) 对应一条
//
// is_target=false 表示导入时判定为「対象外」。
// test_case_no 升序是画面表示・处理的规范顺序。
type TestContent struct {
	TestGroupID   int64  `json:"test_group_id" db:"test_group_id"`
	TID           string `json:"tid" db:"tid"`
	TestCaseNo    int    `json:"test_case_no" db:"test_case_no"`
	TestCase      string `json:"test_case" db:"test_case"`
	ExpectedValue string `json:"expected_value" db:"expected_value"`
	IsTarget      bool   `json:"is_target" db:"is_target"`
}
