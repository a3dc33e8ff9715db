// Package importer 行校验测试
package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validRow 返回一行能通过全部校验的数据
func validRow() Row {
	return Row{
		TID:           "1-1-1-1",
		No:            "1",
		FirstLayer:    "機能",
		SecondLayer:   "サブ機能",
		ThirdLayer:    "画面",
		FourthLayer:   "項目",
		Purpose:       "動作確認",
		RequestID:     "REQ-001",
		CheckItems:    "表示内容",
		ControlSpec:   "spec.pdf",
		DataFlow:      "flow.pdf",
		TestProcedure: "手順1",
		TestCase:      "ケース1",
		ExpectedValue: "期待どおり",
	}
}

func TestValidateRows_ValidRow(t *testing.T) {
	rows := []Row{validRow()}
	assert.Empty(t, ValidateRows(rows))
}

func TestValidateRows_AggregatesAllErrors(t *testing.T) {
	// 3 行 × 各 2 エラー = 6 件が一括で返る
	bad := func() Row {
		r := validRow()
		r.TID = "1-1"   // 形式不正
		r.Purpose = "" // 必須欠落
		return r
	}
	rows := []Row{bad(), bad(), bad()}

	errs := ValidateRows(rows)
	require.Len(t, errs, 6)

	// 行番号はヘッダー行を考慮して 2 始まり
	assert.True(t, strings.HasPrefix(errs[0], "2行目:"))
	assert.True(t, strings.HasPrefix(errs[2], "3行目:"))
	assert.True(t, strings.HasPrefix(errs[4], "4行目:"))
}

func TestValidateRows_TID(t *testing.T) {
	cases := []struct {
		tid     string
		wantErr string
	}{
		{"", "TIDは必須です"},
		{"1-1-1", "半角ハイフン"},
		{"a-b-c-d", "半角ハイフン"},
		{"1-1-1-1", ""},
		{"10-20-30-40", ""},
	}
	for _, c := range cases {
		r := validRow()
		r.TID = c.tid
		errs := ValidateRows([]Row{r})
		if c.wantErr == "" {
			assert.Empty(t, errs, "tid=%q", c.tid)
		} else {
			require.Len(t, errs, 1, "tid=%q", c.tid)
			assert.Contains(t, errs[0], c.wantErr)
		}
	}
}

func TestValidateRows_No(t *testing.T) {
	for _, no := range []string{"0", "-1", "abc", "1.5"} {
		r := validRow()
		r.No = no
		errs := ValidateRows([]Row{r})
		require.Len(t, errs, 1, "no=%q", no)
		assert.Contains(t, errs[0], "Noは正の整数である必要があります")
	}

	r := validRow()
	r.No = ""
	errs := ValidateRows([]Row{r})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Noは必須です")
}

func TestValidateRows_LengthCapIsRuneCount(t *testing.T) {
	// 255 文字の全角はセーフ、256 文字でアウト
	r := validRow()
	r.FirstLayer = strings.Repeat("あ", 255)
	assert.Empty(t, ValidateRows([]Row{r}))

	r.FirstLayer = strings.Repeat("あ", 256)
	errs := ValidateRows([]Row{r})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "第1層は255文字以内")
}

func TestValidateRows_JudgmentDefaultAndEnum(t *testing.T) {
	// 空は「未着手」に正規化されエラーなし
	r := validRow()
	r.Judgment = ""
	rows := []Row{r}
	assert.Empty(t, ValidateRows(rows))
	assert.Equal(t, "未着手", rows[0].Judgment)

	// 列挙外はエラー
	r2 := validRow()
	r2.Judgment = "合格"
	errs := ValidateRows([]Row{r2})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "判定は")
}

func TestValidateRows_ExecutionDate(t *testing.T) {
	cases := []struct {
		date string
		ok   bool
	}{
		{"", true},
		{"2025/01/01", true},
		{"2025/1/1", true},
		{"2025-01-01", false},
		{"2025/13/01", false},
		{"2025/2/30", false},
	}
	for _, c := range cases {
		r := validRow()
		r.ExecutionDate = c.date
		errs := ValidateRows([]Row{r})
		if c.ok {
			assert.Empty(t, errs, "date=%q", c.date)
		} else {
			require.Len(t, errs, 1, "date=%q", c.date)
			assert.Contains(t, errs[0], "実施日はyyyy/mm/dd形式")
		}
	}
}

func TestParseDate(t *testing.T) {
	d := ParseDate("2025/01/10")
	require.NotNil(t, d)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, 10, d.Day())

	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("2025/2/30"))
}
