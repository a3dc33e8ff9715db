// 清单 CSV 的解析
//
// ヘッダー行を先頭に持つ CSV を行構造体へ正規化する。
// 日本語ヘッダーと英語の正規名の両方を受け付け、未知のヘッダーは無視、
// 全行で空の列は取り込み対象から外す。
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"strings"
)

// Row 清单 CSV 的一行（正规化后）
//
// 全字段为字符串，缺失的列以空字符串补齐。
type Row struct {
	TID               string
	No                string
	FirstLayer        string
	SecondLayer       string
	ThirdLayer        string
	FourthLayer       string
	Purpose           string
	RequestID         string
	CheckItems        string
	ControlSpec       string
	DataFlow          string
	TestProcedure     string
	TestCase          string
	ExpectedValue     string
	Result            string
	Judgment          string
	ExecutionDate     string
	SoftwareVersion   string
	HardwareVersion   string
	ComparatorVersion string
	Executor          string
	Evidence          string
	Note              string
}

// columnMapping 把表头映射到正规字段名
//
// 日本語表記と英語の正規名の両方を受け付ける。
var columnMapping = map[string]string{
	"TID":        "tid",
	"No":         "no",
	"第1層":        "first_layer",
	"第2層":        "second_layer",
	"第3層":        "third_layer",
	"第4層":        "fourth_layer",
	"目的":         "purpose",
	"要求ID":       "request_id",
	"確認観点":       "check_items",
	"制御仕様":       "control_spec",
	"データフロー":     "data_flow",
	"テスト手順":      "test_procedure",
	"テストケース":     "test_case",
	"期待値":        "expected_value",
	"結果":         "result",
	"判定":         "judgment",
	"実施日":        "execution_date",
	"ソフトVer.":    "software_version",
	"ハードVer.":    "hardware_version",
	"コンパラVer.":   "comparator_version",
	"実施者":        "executor",
	"エビデンス":      "evidence",
	"備考":         "note",
	"tid":        "tid",
	"no":         "no",
	"first_layer":        "first_layer",
	"second_layer":       "second_layer",
	"third_layer":        "third_layer",
	"fourth_layer":       "fourth_layer",
	"purpose":            "purpose",
	"request_id":         "request_id",
	"check_items":        "check_items",
	"control_spec":       "control_spec",
	"data_flow":          "data_flow",
	"test_procedure":     "test_procedure",
	"test_case":          "test_case",
	"expected_value":     "expected_value",
	"result":             "result",
	"judgment":           "judgment",
	"execution_date":     "execution_date",
	"software_version":   "software_version",
	"hardware_version":   "hardware_version",
	"comparator_version": "comparator_version",
	"executor":           "executor",
	"evidence":           "evidence",
	"note":               "note",
}

// ParseManifest 解析清单 CSV
//
// BOM を許容し、セルはトリム、全セル空の行はスキップする。
func ParseManifest(data []byte) ([]Row, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSVのパースに失敗しました: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var raw []map[string]string
	for _, record := range records[1:] {
		row := map[string]string{}
		empty := true
		for i, h := range headers {
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			if value != "" {
				empty = false
			}
			row[h] = value
		}
		if empty {
			continue
		}
		raw = append(raw, row)
	}

	raw = dropEmptyColumns(headers, raw)

	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, normalizeRow(r))
	}
	return rows, nil
}

// dropEmptyColumns 去除在所有行中都为空的列
func dropEmptyColumns(headers []string, records []map[string]string) []map[string]string {
	if len(records) == 0 {
		return records
	}

	var emptyColumns []string
	for _, h := range headers {
		allEmpty := true
		for _, r := range records {
			if r[h] != "" {
				allEmpty = false
				break
			}
		}
		if allEmpty {
			emptyColumns = append(emptyColumns, h)
		}
	}
	if len(emptyColumns) == 0 {
		return records
	}

	log.Printf("[import.manifest] ignoring empty columns: %s", strings.Join(emptyColumns, ", "))

	for _, r := range records {
		for _, h := range emptyColumns {
			delete(r, h)
		}
	}
	return records
}

// normalizeRow 按表头映射填充行结构体，未知表头忽略
func normalizeRow(raw map[string]string) Row {
	row := Row{}
	for key, value := range raw {
		switch columnMapping[key] {
		case "tid":
			row.TID = value
		case "no":
			row.No = value
		case "first_layer":
			row.FirstLayer = value
		case "second_layer":
			row.SecondLayer = value
		case "third_layer":
			row.ThirdLayer = value
		case "fourth_layer":
			row.FourthLayer = value
		case "purpose":
			row.Purpose = value
		case "request_id":
			row.RequestID = value
		case "check_items":
			row.CheckItems = value
		case "control_spec":
			row.ControlSpec = value
		case "data_flow":
			row.DataFlow = value
		case "test_procedure":
			row.TestProcedure = value
		case "test_case":
			row.TestCase = value
		case "expected_value":
			row.ExpectedValue = value
		case "result":
			row.Result = value
		case "judgment":
			row.Judgment = value
		case "execution_date":
			row.ExecutionDate = value
		case "software_version":
			row.SoftwareVersion = value
		case "hardware_version":
			row.HardwareVersion = value
		case "comparator_version":
			row.ComparatorVersion = value
		case "executor":
			row.Executor = value
		case "evidence":
			row.Evidence = value
		case "note":
			row.Note = value
		}
	}
	return row
}
