// Package result 整合逻辑测试
package result

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testtrack/internal/model"
)

func strptr(s string) *string { return &s }

func content(caseNo int, isTarget bool) *model.TestContent {
	return &model.TestContent{TestGroupID: 1, TID: "1-1-1-1", TestCaseNo: caseNo, IsTarget: isTarget}
}

func current(caseNo int, judgment model.Judgment, result string) *model.TestResult {
	return &model.TestResult{
		TestGroupID: 1, TID: "1-1-1-1", TestCaseNo: caseNo,
		ResultValues: model.ResultValues{Judgment: judgment, Result: strptr(result)},
	}
}

func round(caseNo, hc int, judgment model.Judgment, result string) *model.TestResultHistory {
	return &model.TestResultHistory{
		TestGroupID: 1, TID: "1-1-1-1", TestCaseNo: caseNo, HistoryCount: hc,
		ResultValues: model.ResultValues{Judgment: judgment, Result: strptr(result)},
	}
}

func evidence(caseNo, hc, no int, name string) *model.TestEvidence {
	return &model.TestEvidence{
		TestGroupID: 1, TID: "1-1-1-1", TestCaseNo: caseNo, HistoryCount: hc,
		EvidenceNo: no, EvidenceName: name, EvidencePath: "evidences/1/1-1-1-1/" + name,
	}
}

func TestReconcile_CurrentValueWhenNotRetestExcluded(t *testing.T) {
	out := Reconcile(
		[]*model.TestContent{content(1, true)},
		[]*model.TestResult{current(1, model.JudgmentOK, "今の値")},
		[]*model.TestResultHistory{round(1, 1, model.JudgmentOK, "1回目")},
		nil,
	)

	require.Contains(t, out, 1)
	latest := out[1].LatestValidResult
	assert.Equal(t, model.JudgmentOK, latest.Judgment)
	assert.Equal(t, "今の値", *latest.Result)
	assert.Equal(t, 0, latest.HistoryCount, "当前行由来は 0")
	assert.Equal(t, []int{1}, out[1].HistoryCounts)
}

func TestReconcile_FallbackToLatestValidRound(t *testing.T) {
	// [OK, 再実施対象外, 再実施対象外] → 1 回目の値に回落
	history := []*model.TestResultHistory{
		round(1, 1, model.JudgmentOK, "1回目"),
		round(1, 2, model.JudgmentRetestExcluded, "2回目"),
		round(1, 3, model.JudgmentRetestExcluded, "3回目"),
	}
	out := Reconcile(
		[]*model.TestContent{content(1, true)},
		[]*model.TestResult{current(1, model.JudgmentRetestExcluded, "今の値")},
		history,
		nil,
	)

	latest := out[1].LatestValidResult
	assert.Equal(t, model.JudgmentOK, latest.Judgment)
	assert.Equal(t, "1回目", *latest.Result)
	assert.Equal(t, 1, latest.HistoryCount, "値の由来轮次が分かる")
	assert.Equal(t, []int{1, 2, 3}, out[1].HistoryCounts)
}

func TestReconcile_AllRoundsRetestExcludedKeepsCurrent(t *testing.T) {
	history := []*model.TestResultHistory{
		round(1, 1, model.JudgmentRetestExcluded, "1回目"),
		round(1, 2, model.JudgmentRetestExcluded, "2回目"),
	}
	out := Reconcile(
		[]*model.TestContent{content(1, true)},
		[]*model.TestResult{current(1, model.JudgmentRetestExcluded, "今の値")},
		history,
		nil,
	)

	latest := out[1].LatestValidResult
	assert.Equal(t, model.JudgmentRetestExcluded, latest.Judgment)
	assert.Equal(t, "今の値", *latest.Result)
	assert.Equal(t, 0, latest.HistoryCount)
}

func TestReconcile_ExcludedDoesNotTriggerFallback(t *testing.T) {
	// 「対象外」は回落の対象にならない（「再実施対象外」のみ）
	out := Reconcile(
		[]*model.TestContent{content(1, false)},
		[]*model.TestResult{current(1, model.JudgmentExcluded, "今の値")},
		[]*model.TestResultHistory{round(1, 1, model.JudgmentOK, "1回目")},
		nil,
	)

	latest := out[1].LatestValidResult
	assert.Equal(t, model.JudgmentExcluded, latest.Judgment)
	assert.Equal(t, "今の値", *latest.Result)
}

func TestReconcile_EvidenceAlwaysFromMaxRound(t *testing.T) {
	// 値は 1 回目へ回落しても、证迹は最大轮次（3 回目）のまま
	history := []*model.TestResultHistory{
		round(1, 1, model.JudgmentOK, "1回目"),
		round(1, 2, model.JudgmentRetestExcluded, "2回目"),
		round(1, 3, model.JudgmentRetestExcluded, "3回目"),
	}
	evidences := []*model.TestEvidence{
		evidence(1, 1, 1, "round1.png"),
		evidence(1, 3, 1, "round3.png"),
	}
	out := Reconcile(
		[]*model.TestContent{content(1, true)},
		[]*model.TestResult{current(1, model.JudgmentRetestExcluded, "今の値")},
		history, evidences,
	)

	latest := out[1].LatestValidResult
	assert.Equal(t, 1, latest.HistoryCount)
	assert.Equal(t, 3, latest.EvidenceHistoryCount)
	require.Len(t, latest.Evidences, 1)
	assert.Equal(t, "round3.png", latest.Evidences[0].EvidenceName)

	// 各轮次の履历には各自の证迹が付く
	require.Len(t, out[1].AllHistory, 3)
	require.Len(t, out[1].AllHistory[0].Evidences, 1)
	assert.Equal(t, "round1.png", out[1].AllHistory[0].Evidences[0].EvidenceName)
	assert.Empty(t, out[1].AllHistory[1].Evidences)
}

func TestReconcile_ContentFieldsMergedIntoViews(t *testing.T) {
	c := content(1, true)
	c.TestCase = "ケース本文"
	c.ExpectedValue = "期待値本文"

	out := Reconcile(
		[]*model.TestContent{c},
		[]*model.TestResult{current(1, model.JudgmentOK, "今の値")},
		[]*model.TestResultHistory{
			round(1, 1, model.JudgmentOK, "1回目"),
			round(1, 2, model.JudgmentNG, "2回目"),
		},
		nil,
	)

	latest := out[1].LatestValidResult
	assert.Equal(t, "ケース本文", latest.TestCase)
	assert.Equal(t, "期待値本文", latest.ExpectedValue)

	require.Len(t, out[1].AllHistory, 2)
	for _, h := range out[1].AllHistory {
		assert.Equal(t, "ケース本文", h.TestCase)
		assert.Equal(t, "期待値本文", h.ExpectedValue)
	}

	// 画面側は test_case / expected_value キーで読む
	payload, err := json.Marshal(latest)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"test_case":"ケース本文"`)
	assert.Contains(t, string(payload), `"expected_value":"期待値本文"`)
}

func TestReconcile_ResultWithoutContentIsDropped(t *testing.T) {
	// テスト内容を起点に畳み込むため、内容のない case_no の結果は出力されない
	out := Reconcile(
		[]*model.TestContent{content(1, true)},
		[]*model.TestResult{
			current(1, model.JudgmentOK, "今の値"),
			current(9, model.JudgmentOK, "迷子の値"),
		},
		nil, nil,
	)

	require.Len(t, out, 1)
	assert.Contains(t, out, 1)
	assert.NotContains(t, out, 9)
}

func TestReconcile_ContentWithoutResultSynthesizesEmptyLatest(t *testing.T) {
	out := Reconcile(
		[]*model.TestContent{content(1, true), content(2, false)},
		nil, nil, nil,
	)

	require.Len(t, out, 2)
	latest := out[2].LatestValidResult
	assert.Equal(t, 2, latest.TestCaseNo)
	assert.False(t, latest.IsTarget)
	assert.Nil(t, latest.Result)
	assert.Empty(t, latest.Judgment)
	assert.Empty(t, out[2].AllHistory)
	assert.Empty(t, out[2].HistoryCounts)
}
