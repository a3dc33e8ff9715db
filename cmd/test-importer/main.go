// Package main 测试用例导入批次入口
//
// 1 回の起動 = 1 つの ZIP = 1 行の tt_import_results。
// 入力は環境変数で受け取る：
//   - INPUT_KEY: 入力 bucket 内の ZIP オブジェクトキー（必須）
//   - TEST_GROUP_ID: 導入先テストグループ ID（必須、正整数）
//   - EXECUTOR_NAME: 実行者名（省略時 "system"）
//
// 失敗時は非ゼロで終了する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"testtrack/internal/config"
	"testtrack/internal/importer"
	"testtrack/internal/objstore"
	"testtrack/internal/storage"
)

func main() {
	cfg := config.Load()

	log.Printf("Starting test case import batch... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	inputKey := os.Getenv("INPUT_KEY")
	if inputKey == "" {
		log.Fatal("INPUT_KEY is required")
	}

	groupID, err := strconv.ParseInt(os.Getenv("TEST_GROUP_ID"), 10, 64)
	if err != nil || groupID <= 0 {
		log.Fatal("TEST_GROUP_ID must be a positive integer")
	}

	executorName := os.Getenv("EXECUTOR_NAME")
	if executorName == "" {
		executorName = "system"
	}

	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer store.Close()
	log.Println("Connected to PostgreSQL")

	blobs, err := objstore.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("Failed to create MinIO client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	imp := importer.New(store, blobs, cfg)
	if err := imp.Run(ctx, importer.Params{
		InputKey:     inputKey,
		TestGroupID:  groupID,
		ExecutorName: executorName,
	}); err != nil {
		log.Printf("Import batch failed: %v", err)
		store.Close()
		os.Exit(1)
	}

	log.Println("Import batch completed")
}
