// Package result 测试结果的读取整合与更新
//
// reconcile.go 是只读的整合逻辑：
// 以テスト内容を起点に、当前结果・轮次履历・证迹を
// case_no 单位の表示用ビューへ畳み込む。DB には触れない。
package result

import (
	"sort"

	"testtrack/internal/model"
)

// EvidenceView 证迹的表示形
type EvidenceView struct {
	HistoryCount int    `json:"historyCount"`
	EvidenceNo   int    `json:"evidenceNo"`
	EvidenceName string `json:"evidenceName"`
	EvidencePath string `json:"evidencePath"`
}

// LatestView latestValidResult 的表示形
//
// TestCase / ExpectedValue はテスト内容由来の表示用フィールド。
// HistoryCount 表示值来自哪一轮（0 = 当前行或无结果）。
// EvidenceHistoryCount 表示证迹来自哪一轮；回落时两者可能不一致，
// 一并返回让调用侧能够检测。
type LatestView struct {
	TestCaseNo    int    `json:"testCaseNo"`
	IsTarget      bool   `json:"isTarget"`
	TestCase      string `json:"test_case"`
	ExpectedValue string `json:"expected_value"`
	model.ResultValues
	HistoryCount         int            `json:"historyCount"`
	EvidenceHistoryCount int            `json:"evidenceHistoryCount"`
	Evidences            []EvidenceView `json:"evidences"`
}

// HistoryView 一轮履历的表示形，证迹为该轮自身的
type HistoryView struct {
	HistoryCount  int    `json:"historyCount"`
	TestCase      string `json:"test_case"`
	ExpectedValue string `json:"expected_value"`
	model.ResultValues
	Evidences []EvidenceView `json:"evidences"`
}

// CaseResult 一个 case_no 的整合结果
type CaseResult struct {
	LatestValidResult LatestView    `json:"latestValidResult"`
	AllHistory        []HistoryView `json:"allHistory"`
	HistoryCounts     []int         `json:"historyCounts"`
}

// Reconcile 把当前结果・履历・证迹畳み込んで case_no 别ビューにする
//
// 回落規則：当前判定が「再実施対象外」かつ履历があるとき、
// その case の履历を history_count 降順に走査し、
// 判定が「再実施対象外」でない最初の轮次の値を latestValidResult とする。
// 見つからなければ当前の値のまま。
// latestValidResult の証迹は常に最大轮次のもの（既存挙動の維持）。
func Reconcile(
	contents []*model.TestContent,
	results []*model.TestResult,
	history []*model.TestResultHistory,
	evidences []*model.TestEvidence,
) map[int]*CaseResult {
	currentByCase := map[int]*model.TestResult{}
	for _, r := range results {
		currentByCase[r.TestCaseNo] = r
	}

	historyByCase := map[int][]*model.TestResultHistory{}
	for _, h := range history {
		historyByCase[h.TestCaseNo] = append(historyByCase[h.TestCaseNo], h)
	}
	for _, hs := range historyByCase {
		sort.Slice(hs, func(i, j int) bool { return hs[i].HistoryCount < hs[j].HistoryCount })
	}

	evidenceByRound := map[int]map[int][]EvidenceView{}
	for _, e := range evidences {
		if evidenceByRound[e.TestCaseNo] == nil {
			evidenceByRound[e.TestCaseNo] = map[int][]EvidenceView{}
		}
		evidenceByRound[e.TestCaseNo][e.HistoryCount] = append(evidenceByRound[e.TestCaseNo][e.HistoryCount], EvidenceView{
			HistoryCount: e.HistoryCount,
			EvidenceNo:   e.EvidenceNo,
			EvidenceName: e.EvidenceName,
			EvidencePath: e.EvidencePath,
		})
	}

	out := map[int]*CaseResult{}

	for _, content := range contents {
		caseNo := content.TestCaseNo
		hs := historyByCase[caseNo]

		latest := LatestView{
			TestCaseNo:    caseNo,
			IsTarget:      content.IsTarget,
			TestCase:      content.TestCase,
			ExpectedValue: content.ExpectedValue,
		}

		if current, ok := currentByCase[caseNo]; ok {
			latest.ResultValues = current.ResultValues

			// 再実施対象外の当前値は、直近の有効轮次の値で差し替える
			if current.Judgment == model.JudgmentRetestExcluded && len(hs) > 0 {
				for i := len(hs) - 1; i >= 0; i-- {
					if !hs[i].Judgment.IsRetestExcluded() {
						latest.ResultValues = hs[i].ResultValues
						latest.HistoryCount = hs[i].HistoryCount
						break
					}
				}
			}

			if len(hs) > 0 {
				maxRound := hs[len(hs)-1].HistoryCount
				latest.EvidenceHistoryCount = maxRound
				latest.Evidences = evidenceByRound[caseNo][maxRound]
			}
		}

		cr := &CaseResult{LatestValidResult: latest}
		for _, h := range hs {
			cr.AllHistory = append(cr.AllHistory, HistoryView{
				HistoryCount:  h.HistoryCount,
				TestCase:      content.TestCase,
				ExpectedValue: content.ExpectedValue,
				ResultValues:  h.ResultValues,
				Evidences:     evidenceByRound[caseNo][h.HistoryCount],
			})
			cr.HistoryCounts = append(cr.HistoryCounts, h.HistoryCount)
		}

		out[caseNo] = cr
	}

	return out
}
