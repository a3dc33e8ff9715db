// 行校验
//
// 1 行につき全ルールを評価してエラーを積み上げ、
// 全行分をまとめてから成否を一度だけ判定する。
// エラーメッセージの行番号はヘッダー行を考慮して index+2。
package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"testtrack/internal/model"
)

var (
	tidPattern  = regexp.MustCompile(`^[0-9]+-[0-9]+-[0-9]+-[0-9]+$`)
	datePattern = regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`)
)

// ValidateRows 校验全部行，返回聚合后的错误列表
//
// 判定が空の行はここで「未着手」に正規化される。
func ValidateRows(rows []Row) []string {
	var allErrors []string
	for i := range rows {
		rowNumber := i + 2
		allErrors = append(allErrors, validateRow(&rows[i], rowNumber)...)
	}
	return allErrors
}

// validateRow 校验单行的全部规则
func validateRow(row *Row, rowNumber int) []string {
	var errs []string

	appendErr := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf("%d行目: ", rowNumber)+fmt.Sprintf(format, args...))
	}

	if row.TID == "" {
		appendErr("TIDは必須です")
	} else if !tidPattern.MatchString(row.TID) {
		appendErr("TIDは半角ハイフンつながりの半角数字である必要があります（例: 1-1-1-1）")
	}

	if row.No == "" {
		appendErr("Noは必須です")
	} else if no, err := strconv.Atoi(row.No); err != nil || no <= 0 {
		appendErr("Noは正の整数である必要があります")
	}

	requireCapped := func(value, label string) {
		if value == "" {
			appendErr("%sは必須です", label)
		} else if len([]rune(value)) > 255 {
			appendErr("%sは255文字以内である必要があります", label)
		}
	}
	requireCapped(row.FirstLayer, "第1層")
	requireCapped(row.SecondLayer, "第2層")
	requireCapped(row.ThirdLayer, "第3層")
	requireCapped(row.FourthLayer, "第4層")
	requireCapped(row.Purpose, "目的")
	requireCapped(row.RequestID, "要求ID")

	require := func(value, label string) {
		if value == "" {
			appendErr("%sは必須です", label)
		}
	}
	require(row.CheckItems, "確認観点")
	require(row.ControlSpec, "制御仕様")
	require(row.DataFlow, "データフロー")
	require(row.TestProcedure, "テスト手順")
	require(row.TestCase, "テストケース")
	require(row.ExpectedValue, "期待値")

	if row.Judgment == "" {
		row.Judgment = string(model.JudgmentNotStarted)
	} else if !model.Judgment(row.Judgment).IsValid() {
		appendErr("判定は「未着手、保留、QA中、OK、参照OK、NG、再実施対象外、対象外」のいずれかである必要があります")
	}

	if !isValidDate(row.ExecutionDate) {
		appendErr("実施日はyyyy/mm/dd形式である必要があります（例: 2025/01/01）")
	}

	capped := func(value, label string) {
		if len([]rune(value)) > 255 {
			appendErr("%sは255文字以内である必要があります", label)
		}
	}
	capped(row.SoftwareVersion, "ソフトVer.")
	capped(row.HardwareVersion, "ハードVer.")
	capped(row.ComparatorVersion, "コンパラVer.")
	capped(row.Executor, "実施者")

	return errs
}

// isValidDate 空または yyyy/mm/dd 形式の実在日付なら true
func isValidDate(dateStr string) bool {
	if strings.TrimSpace(dateStr) == "" {
		return true
	}
	if !datePattern.MatchString(dateStr) {
		return false
	}
	return ParseDate(dateStr) != nil
}

// ParseDate 把 yyyy/mm/dd 解析为 UTC 日付
//
// 空文字列や実在しない日付（2025/2/30 等）は nil を返す。
func ParseDate(dateStr string) *time.Time {
	if strings.TrimSpace(dateStr) == "" {
		return nil
	}
	parts := strings.Split(dateStr, "/")
	if len(parts) != 3 {
		return nil
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return nil
	}
	return &t
}
