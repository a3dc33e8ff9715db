// Package model 定义核心数据模型
//
// judgment.go 包含判定枚举的定义：
//   - Judgment：一次测试执行对一个テスト内容 (case_no) 的判定结果
//
// 判定值使用日文字面量，与导入 CSV・画面表示・DB 中的存储值完全一致。
package model

// Judgment 表示一个 case_no 在某一轮执行中的判定
//
// 「対象外」与「再実施対象外」语义不同：
//   - 対象外：该 case_no 永久不在测试范围内（导入时 is_target=false）
//   - 再実施対象外：该 case_no 不参与这一轮的再执行，之前的结果仍然有效
type Judgment string

const (
	// JudgmentNotStarted 未着手：尚未执行
	JudgmentNotStarted Judgment = "未着手"

	// JudgmentPending 保留：执行后暂不判定
	JudgmentPending Judgment = "保留"

	// JudgmentQA QA中：品质保证确认中
	JudgmentQA Judgment = "QA中"

	// JudgmentOK OK：符合期待值
	JudgmentOK Judgment = "OK"

	// JudgmentReferenceOK 参照OK：参照其他结果判定为 OK
	JudgmentReferenceOK Judgment = "参照OK"

	// JudgmentNG NG：不符合期待值
	JudgmentNG Judgment = "NG"

	// JudgmentRetestExcluded 再実施対象外：本轮再执行不包含此项
	JudgmentRetestExcluded Judgment = "再実施対象外"

	// JudgmentExcluded 対象外：永久排除在测试范围外
	JudgmentExcluded Judgment = "対象外"
)

// Judgments 返回全部合法判定值（CSV 校验用）
func Judgments() []Judgment {
	return []Judgment{
		JudgmentNotStarted,
		JudgmentPending,
		JudgmentQA,
		JudgmentOK,
		JudgmentReferenceOK,
		JudgmentNG,
		JudgmentRetestExcluded,
		JudgmentExcluded,
	}
}

// IsValid 判定值是否在枚举范围内
func (j Judgment) IsValid() bool {
	for _, v := range Judgments() {
		if j == v {
			return true
		}
	}
	return false
}

// IsRetestExcluded 是否为「再実施対象外」
func (j Judgment) IsRetestExcluded() bool {
	return j == JudgmentRetestExcluded
}

// OrDefault 空判定回落为「未着手」
func (j Judgment) OrDefault() Judgment {
	if j == "" {
		return JudgmentNotStarted
	}
	return j
}
