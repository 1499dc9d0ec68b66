package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/util"
	"edu_assistant_backend/pkg/logger"
	"edu_assistant_backend/pkg/monitoring"
	"edu_assistant_backend/pkg/tracing"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MasteryService struct {
	MasteryRepo  *repository.MasteryRepository
	ActivityRepo *repository.LearningActivityRepository
	Redis        *redis.Client

	mu       sync.RWMutex
	params   MasteryParams
	cacheTTL time.Duration
	rnd      func() float64
	running  atomic.Bool
}

func NewMasteryService(masteryRepo *repository.MasteryRepository, activityRepo *repository.LearningActivityRepository, rdb *redis.Client, params MasteryParams, cacheTTL time.Duration) *MasteryService {
	return &MasteryService{
		MasteryRepo:  masteryRepo,
		ActivityRepo: activityRepo,
		Redis:        rdb,
		params:       params,
		cacheTTL:     cacheTTL,
		rnd:          rand.Float64,
	}
}

// UpdateParams 配置热更新时调用，对下一次计算生效
func (s *MasteryService) UpdateParams(p MasteryParams) {
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
	logger.Log.Info("Mastery params updated",
		zap.Float64("base", p.BaseProficiency),
		zap.Float64("saturation", p.ActivitySaturation))
}

func (s *MasteryService) Params() MasteryParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Signals 读取单个 (学生, 知识点) 的三类信号及最近一次活动时间
func (s *MasteryService) Signals(ctx context.Context, studentID, kpID uint) (MasterySignals, *time.Time, error) {
	var sig MasterySignals
	activities := s.ActivityRepo.WithContext(ctx)
	count, err := activities.CountForKnowledgePoint(studentID, kpID)
	if err != nil {
		return sig, nil, err
	}
	sig.ActivityCount = count

	var last *time.Time
	if count > 0 {
		latest, err := activities.LatestForKnowledgePoint(studentID, kpID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return sig, nil, err
		}
		if err == nil {
			ts := latest.Timestamp
			last = &ts
		}
	}

	repo := s.MasteryRepo.WithContext(ctx)
	if sig.AssignmentRatio, err = repo.AssignmentRatio(studentID, kpID); err != nil {
		return sig, nil, err
	}
	if sig.QuestionRatio, err = repo.QuestionRatio(studentID, kpID); err != nil {
		return sig, nil, err
	}
	return sig, last, nil
}

// Recompute 重算并写入单个 (学生, 知识点) 的掌握度
func (s *MasteryService) Recompute(ctx context.Context, studentID, kpID uint) (*model.StudentKnowledgePoint, error) {
	sig, last, err := s.Signals(ctx, studentID, kpID)
	if err != nil {
		return nil, err
	}

	skp := &model.StudentKnowledgePoint{
		StudentID:        studentID,
		KnowledgePointID: kpID,
		MasteryLevel:     ComputeMastery(sig, s.Params(), s.rnd),
		LastInteraction:  last,
	}
	if err := s.MasteryRepo.WithContext(ctx).Upsert(skp); err != nil {
		return nil, err
	}
	return skp, nil
}

type RecomputeResult struct {
	Pairs    int           `json:"pairs"`
	Students int           `json:"students"`
	Pruned   int64         `json:"pruned"`
	Duration time.Duration `json:"duration"`
}

// RecomputeAll 全量重算所有在读学生在其课程知识点上的掌握度
func (s *MasteryService) RecomputeAll(ctx context.Context) (*RecomputeResult, error) {
	return s.recompute(ctx, nil)
}

func (s *MasteryService) RecomputeStudent(ctx context.Context, studentID uint) (*RecomputeResult, error) {
	return s.recompute(ctx, &studentID)
}

func (s *MasteryService) recompute(ctx context.Context, studentID *uint) (*RecomputeResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, util.ErrRecomputeRunning
	}
	defer s.running.Store(false)

	ctx, span := tracing.StartSpan(ctx, "mastery.Recompute")
	start := time.Now()

	pairs, err := s.MasteryRepo.WithContext(ctx).ActivePairs(studentID)
	if err != nil {
		tracing.EndSpan(span, err)
		return nil, err
	}

	students := make(map[uint]struct{})
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			tracing.EndSpan(span, err)
			return nil, err
		}
		if _, err := s.Recompute(ctx, p.StudentID, p.KnowledgePointID); err != nil {
			err = fmt.Errorf("recompute student %d knowledge point %d: %w", p.StudentID, p.KnowledgePointID, err)
			tracing.EndSpan(span, err)
			return nil, err
		}
		students[p.StudentID] = struct{}{}
		monitoring.MasteryRowsUpserted.Inc()
	}

	// 退课学生与已删除知识点的旧记录
	prunedStudents, pruned, err := s.MasteryRepo.WithContext(ctx).PruneStale(studentID)
	if err != nil {
		tracing.EndSpan(span, err)
		return nil, err
	}

	for id := range students {
		s.invalidate(ctx, id)
	}
	for _, id := range prunedStudents {
		if _, ok := students[id]; !ok {
			s.invalidate(ctx, id)
		}
	}

	result := &RecomputeResult{Pairs: len(pairs), Students: len(students), Pruned: pruned, Duration: time.Since(start)}
	span.SetAttributes(attribute.Int("pairs", result.Pairs), attribute.Int("students", result.Students))
	tracing.EndSpan(span, nil)
	if studentID == nil {
		monitoring.MasteryRecomputeDuration.Observe(result.Duration.Seconds())
	}

	logger.Log.Info("Mastery recompute finished",
		zap.Int("pairs", result.Pairs),
		zap.Int("students", result.Students),
		zap.Int64("pruned", result.Pruned),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func masteryCacheKey(studentID uint) string {
	return fmt.Sprintf(util.MasteryCacheKeyFmt, studentID)
}

// GetStudentMastery 优先读取 Redis 缓存，Redis 不可用时直接查库
func (s *MasteryService) GetStudentMastery(ctx context.Context, studentID uint) ([]model.StudentKnowledgePoint, error) {
	key := masteryCacheKey(studentID)
	if s.Redis != nil {
		data, err := s.Redis.Get(ctx, key).Bytes()
		if err == nil {
			var cached []model.StudentKnowledgePoint
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Mastery cache read failed", zap.Error(err), zap.Uint("studentId", studentID))
		}
	}

	list, err := s.MasteryRepo.WithContext(ctx).ListByStudent(studentID)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(list); err == nil {
			if err := s.Redis.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
				logger.Log.Warn("Mastery cache write failed", zap.Error(err), zap.Uint("studentId", studentID))
			}
		}
	}
	return list, nil
}

func (s *MasteryService) invalidate(ctx context.Context, studentID uint) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, masteryCacheKey(studentID)).Err(); err != nil {
		logger.Log.Warn("Mastery cache invalidation failed", zap.Error(err), zap.Uint("studentId", studentID))
	}
}
