// Package deployments 嵌入部署相关文件到二进制
package deployments

import _ "embed"

// SchemaSQL PostgreSQL 全量建表脚本
//
//go:embed schema.sql
var SchemaSQL string
