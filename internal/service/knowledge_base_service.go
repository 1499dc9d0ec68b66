package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/util"
	"fmt"
	"strings"
)

type KnowledgeBaseService struct {
	EntryRepo  *repository.KnowledgeEntryRepository
	CourseRepo *repository.CourseRepository
}

func NewKnowledgeBaseService(entryRepo *repository.KnowledgeEntryRepository, courseRepo *repository.CourseRepository) *KnowledgeBaseService {
	return &KnowledgeBaseService{EntryRepo: entryRepo, CourseRepo: courseRepo}
}

type KnowledgeEntryInput struct {
	Title    string   `json:"title" yaml:"title"`
	Content  string   `json:"content" yaml:"content"`
	Category string   `json:"category" yaml:"category"`
	Tags     []string `json:"tags" yaml:"tags"`
	Source   string   `json:"source" yaml:"source"`
	CourseID *uint    `json:"courseId" yaml:"course_id"`
}

func normalizeTags(tags []string) string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return strings.Join(out, ",")
}

func (s *KnowledgeBaseService) toEntry(in KnowledgeEntryInput) (*model.KnowledgeEntry, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, util.ErrKnowledgeEntryInvalid
	}
	return &model.KnowledgeEntry{
		Title:    title,
		Content:  content,
		Category: strings.TrimSpace(in.Category),
		Tags:     normalizeTags(in.Tags),
		Source:   in.Source,
		CourseID: in.CourseID,
	}, nil
}

// Add 写入一条知识库条目
func (s *KnowledgeBaseService) Add(ctx context.Context, in KnowledgeEntryInput) (*model.KnowledgeEntry, error) {
	entry, err := s.toEntry(in)
	if err != nil {
		return nil, err
	}
	if entry.CourseID != nil {
		if _, err := s.CourseRepo.WithContext(ctx).FindByID(*entry.CourseID); err != nil {
			return nil, notFound(err, util.ErrCourseNotFound)
		}
	}
	if err := s.EntryRepo.WithContext(ctx).Create(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Import 批量导入，任意条目无效时整体拒绝
func (s *KnowledgeBaseService) Import(ctx context.Context, inputs []KnowledgeEntryInput) (int, error) {
	entries := make([]model.KnowledgeEntry, 0, len(inputs))
	for i, in := range inputs {
		entry, err := s.toEntry(in)
		if err != nil {
			return 0, fmt.Errorf("entry %d: %w", i+1, err)
		}
		entries = append(entries, *entry)
	}
	if err := s.EntryRepo.WithContext(ctx).CreateBatch(entries, 100); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *KnowledgeBaseService) Search(ctx context.Context, query string, courseID *uint, category string, limit int) ([]model.KnowledgeEntry, error) {
	return s.EntryRepo.WithContext(ctx).Search(repository.KnowledgeEntryFilter{
		Query:    query,
		CourseID: courseID,
		Category: category,
		Limit:    limit,
	})
}
