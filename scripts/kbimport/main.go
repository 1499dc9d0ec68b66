// 批量导入知识库条目
//
// 用法: go run ./scripts/kbimport -file scripts/kbimport/sample.yaml

package main

import (
	"context"
	"edu_assistant_backend/internal/config"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/pkg/database"
	"edu_assistant_backend/pkg/logger"
	"flag"
	"io"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type entryFile struct {
	Entries []service.KnowledgeEntryInput `yaml:"entries"`
}

func parseEntries(r io.Reader) ([]service.KnowledgeEntryInput, error) {
	var f entryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return f.Entries, nil
}

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	file := flag.String("file", "", "YAML 文件路径")
	flag.Parse()
	if *file == "" {
		log.Fatal("缺少 -file 参数")
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.InitLogger(cfg.Server.Mode, "logs/kbimport.log")
	defer logger.Log.Sync()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("无法读取文件: %v", err)
	}
	defer f.Close()

	entries, err := parseEntries(f)
	if err != nil {
		log.Fatalf("解析 YAML 失败: %v", err)
	}

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	kb := service.NewKnowledgeBaseService(repository.NewKnowledgeEntryRepository(db), repository.NewCourseRepository(db))
	n, err := kb.Import(context.Background(), entries)
	if err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	log.Printf("导入完成，共 %d 条", n)
}
