// Package importer 实现测试用例导入批次的流水线
//
// 流水线阶段：ZIP 展开 → CSV 解析 → 行校验 → TID 分组 → 参照文件确认 →
// 单事务落库 → 批次记录与报告输出。
// 校验类错误全部聚合后一次性判定，不逐条中断。
package importer

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FileEntry ZIP 内的一个非 CSV 文件
//
// Path 为正规化后的键（去除开头的 ./），OriginalName 保留展开时的原始名。
type FileEntry struct {
	Path         string
	OriginalName string
	Data         []byte
}

// FileSet 以正规化路径为键的文件集合
type FileSet map[string]FileEntry

// Lookup 按正规化后的路径查找
func (fs FileSet) Lookup(path string) (FileEntry, bool) {
	e, ok := fs[NormalizePath(path)]
	return e, ok
}

// NormalizePath 去除路径开头的 ./
func NormalizePath(path string) string {
	return strings.TrimPrefix(path, "./")
}

// Archive 展开后的导入包
type Archive struct {
	// Manifest 清单 CSV 的内容
	Manifest []byte

	// Files CSV 以外的全部文件
	Files FileSet
}

// ExtractArchive 展开 ZIP
//
// 目录条目跳过；.csv（大小写不问）必须恰好一个，零个或多个都是致命错误。
func ExtractArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("ZIPファイルの展開に失敗しました: %w", err)
	}

	var manifest []byte
	files := FileSet{}

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("ZIPエントリ %s の読み込みに失敗しました: %w", entry.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("ZIPエントリ %s の読み込みに失敗しました: %w", entry.Name, err)
		}

		if strings.HasSuffix(strings.ToLower(entry.Name), ".csv") {
			if manifest != nil {
				return nil, errors.New("ZIPファイル内にCSVファイルが複数含まれています。CSVファイルは1つだけにしてください")
			}
			manifest = content
			continue
		}

		normalized := NormalizePath(entry.Name)
		files[normalized] = FileEntry{
			Path:         normalized,
			OriginalName: entry.Name,
			Data:         content,
		}
	}

	if manifest == nil {
		return nil, errors.New("ZIPファイル内にCSVファイルが見つかりません")
	}

	return &Archive{Manifest: manifest, Files: files}, nil
}
