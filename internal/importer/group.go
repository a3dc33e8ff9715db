// TID 分组
//
// 校验通过的行按 TID 聚合成 GroupedTestCase。
// 表头字段・制御仕様・データフロー的路径列表只取该 TID 的首行，
// 各行依次作为一条テスト内容追加。
package importer

import (
	"strconv"
	"strings"
	"time"

	"testtrack/internal/model"
)

// Content 一条テスト内容（含导入时的初始结果值）
type Content struct {
	TestCaseNo        int
	TestCase          string
	ExpectedValue     string
	IsTarget          bool
	Result            *string
	Judgment          model.Judgment
	SoftwareVersion   *string
	HardwareVersion   *string
	ComparatorVersion *string
	ExecutionDate     *time.Time
	Executor          *string
	Note              *string
	EvidencePaths     []string
}

// GroupedTestCase 一个 TID 的全部导入数据
type GroupedTestCase struct {
	TID              string
	FirstLayer       string
	SecondLayer      string
	ThirdLayer       string
	FourthLayer      string
	Purpose          string
	RequestID        string
	CheckItems       string
	TestProcedure    string
	ControlSpecPaths []string
	DataFlowPaths    []string
	Contents         []Content
}

// GroupByTID 按 TID 聚合，保持首次出现的顺序
func GroupByTID(rows []Row) []GroupedTestCase {
	index := map[string]int{}
	var groups []GroupedTestCase

	for _, row := range rows {
		i, seen := index[row.TID]
		if !seen {
			groups = append(groups, GroupedTestCase{
				TID:              row.TID,
				FirstLayer:       row.FirstLayer,
				SecondLayer:      row.SecondLayer,
				ThirdLayer:       row.ThirdLayer,
				FourthLayer:      row.FourthLayer,
				Purpose:          row.Purpose,
				RequestID:        row.RequestID,
				CheckItems:       row.CheckItems,
				TestProcedure:    row.TestProcedure,
				ControlSpecPaths: ParseFilePaths(row.ControlSpec),
				DataFlowPaths:    ParseFilePaths(row.DataFlow),
			})
			i = len(groups) - 1
			index[row.TID] = i
		}

		no, _ := strconv.Atoi(row.No)
		judgment := model.Judgment(row.Judgment).OrDefault()

		groups[i].Contents = append(groups[i].Contents, Content{
			TestCaseNo:        no,
			TestCase:          row.TestCase,
			ExpectedValue:     row.ExpectedValue,
			IsTarget:          judgment != model.JudgmentExcluded,
			Result:            optional(row.Result),
			Judgment:          judgment,
			SoftwareVersion:   optional(row.SoftwareVersion),
			HardwareVersion:   optional(row.HardwareVersion),
			ComparatorVersion: optional(row.ComparatorVersion),
			ExecutionDate:     ParseDate(row.ExecutionDate),
			Executor:          optional(row.Executor),
			Note:              optional(row.Note),
			EvidencePaths:     ParseFilePaths(row.Evidence),
		})
	}

	return groups
}

// ParseFilePaths 把分号分隔的路径列表拆开，空要素は捨てる
func ParseFilePaths(pathStr string) []string {
	if strings.TrimSpace(pathStr) == "" {
		return nil
	}
	var paths []string
	for _, p := range strings.Split(pathStr, ";") {
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// optional 空文字列を nil にする
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
