package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/util"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActivityService struct {
	ActivityRepo *repository.LearningActivityRepository
	KPRepo       *repository.KnowledgePointRepository
	CourseRepo   *repository.CourseRepository
}

func NewActivityService(activityRepo *repository.LearningActivityRepository, kpRepo *repository.KnowledgePointRepository, courseRepo *repository.CourseRepository) *ActivityService {
	return &ActivityService{ActivityRepo: activityRepo, KPRepo: kpRepo, CourseRepo: courseRepo}
}

type RecordActivityRequest struct {
	KnowledgePointID uint                   `json:"knowledgePointId" binding:"required"`
	ActivityType     model.ActivityType     `json:"activityType" binding:"required"`
	DurationSeconds  int                    `json:"durationSeconds"`
	Metadata         map[string]interface{} `json:"metadata"`
	// 为空时取当前时间
	Timestamp *time.Time `json:"timestamp"`
}

// RecordActivity 记录学习行为，学生须在读知识点所属课程
func (s *ActivityService) RecordActivity(ctx context.Context, studentID uint, req RecordActivityRequest) (*model.LearningActivity, error) {
	if !req.ActivityType.Valid() {
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidActivityType, req.ActivityType)
	}
	if req.DurationSeconds < 0 {
		return nil, fmt.Errorf("%w: 时长不能为负", util.ErrValidation)
	}

	kp, err := s.KPRepo.WithContext(ctx).FindByID(req.KnowledgePointID)
	if err != nil {
		return nil, notFound(err, util.ErrKnowledgePointNotFound)
	}
	if err := requireEnrollment(s.CourseRepo.WithContext(ctx), studentID, kp.CourseID); err != nil {
		return nil, err
	}

	activity := &model.LearningActivity{
		StudentID:        studentID,
		CourseID:         kp.CourseID,
		KnowledgePointID: kp.ID,
		ActivityType:     req.ActivityType,
		DurationSeconds:  req.DurationSeconds,
		Timestamp:        time.Now(),
	}
	if req.Timestamp != nil {
		activity.Timestamp = *req.Timestamp
	}
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata 无效: %v", util.ErrValidation, err)
		}
		activity.Metadata = datatypes.JSON(raw)
	}

	if err := s.ActivityRepo.WithContext(ctx).Create(activity); err != nil {
		return nil, err
	}
	return activity, nil
}

func (s *ActivityService) CountForKnowledgePoint(ctx context.Context, studentID, kpID uint) (int64, error) {
	return s.ActivityRepo.WithContext(ctx).CountForKnowledgePoint(studentID, kpID)
}

// LatestForKnowledgePoint 无记录时返回 nil
func (s *ActivityService) LatestForKnowledgePoint(ctx context.Context, studentID, kpID uint) (*time.Time, error) {
	a, err := s.ActivityRepo.WithContext(ctx).LatestForKnowledgePoint(studentID, kpID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a.Timestamp, nil
}

func (s *ActivityService) ListRecent(ctx context.Context, studentID uint, limit int) ([]model.LearningActivity, error) {
	return s.ActivityRepo.WithContext(ctx).ListByStudent(studentID, limit)
}
