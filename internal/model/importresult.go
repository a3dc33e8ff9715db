// Package model 定义核心数据模型
//
// importresult.go 包含导入批次的生命周期记录：
//   - ImportResult：一次批次执行对应一条
//   - ImportStatus / ImportType：状态・种别枚举
package model

import "time"

// ImportStatus 批次执行状态
//
// 数值与既存 DB 存储保持一致：0=实施中、1=成功、2=失败。
// 批次进程退出后不允许残留「实施中」状态。
type ImportStatus int

const (
	// ImportStatusInProgress 实施中
	ImportStatusInProgress ImportStatus = 0

	// ImportStatusSucceeded 成功
	ImportStatusSucceeded ImportStatus = 1

	// ImportStatusFailed 失败
	ImportStatusFailed ImportStatus = 2
)

// String 返回状态的表示名
func (s ImportStatus) String() string {
	switch s {
	case ImportStatusInProgress:
		return "in_progress"
	case ImportStatusSucceeded:
		return "succeeded"
	case ImportStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ImportType 导入种别
type ImportType int

const (
	// ImportTypeTestCase テストケースインポート
	ImportTypeTestCase ImportType = 1
)

// ImportResult 一次批次执行的生命周期记录
//
// 批次开始前创建（status=实施中），结束时恰好更新一次为成功或失败。
// 创建本身失败时由兜底路径直接插入失败行，保证任何一次执行都有记录。
type ImportResult struct {
	ID           int64        `json:"id" db:"id"`
	FileName     string       `json:"file_name" db:"file_name"`
	ImportStatus ImportStatus `json:"import_status" db:"import_status"`
	ImportType   ImportType   `json:"import_type" db:"import_type"`
	ExecutorName string       `json:"executor_name" db:"executor_name"`
	Count        int          `json:"count" db:"count"`
	Message      string       `json:"message" db:"message"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}
