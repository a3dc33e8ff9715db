// 参照文件确认
//
// CSV が参照する全ファイル（制御仕様・データフロー・エビデンス）が
// ZIP 内に存在することを落库前に一括確認する。
package importer

import "fmt"

// CheckFileReferences 确认全部参照路径都在文件集合内
//
// 不足は全件集約して返す。1 件でもあれば落库は行われない。
func CheckFileReferences(groups []GroupedTestCase, files FileSet) []string {
	var errs []string

	check := func(path string) {
		if _, ok := files.Lookup(path); !ok {
			errs = append(errs, fmt.Sprintf("ファイル \"%s\" がZIP内に見つかりません", path))
		}
	}

	for _, group := range groups {
		for _, p := range group.ControlSpecPaths {
			check(p)
		}
		for _, p := range group.DataFlowPaths {
			check(p)
		}
		for _, content := range group.Contents {
			for _, p := range content.EvidencePaths {
				check(p)
			}
		}
	}

	return errs
}
