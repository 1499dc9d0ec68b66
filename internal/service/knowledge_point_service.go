package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/util"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type KnowledgePointService struct {
	DB             *gorm.DB
	KPRepo         *repository.KnowledgePointRepository
	CourseRepo     *repository.CourseRepository
	AssignmentRepo *repository.AssignmentRepository
}

func NewKnowledgePointService(db *gorm.DB, kpRepo *repository.KnowledgePointRepository, courseRepo *repository.CourseRepository, assignmentRepo *repository.AssignmentRepository) *KnowledgePointService {
	return &KnowledgePointService{DB: db, KPRepo: kpRepo, CourseRepo: courseRepo, AssignmentRepo: assignmentRepo}
}

type KnowledgePointRequest struct {
	CourseID    uint   `json:"courseId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parentId"`
}

type KnowledgePointUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *uint   `json:"parentId"`
	// 为 true 时移动到根节点，忽略 ParentID
	DetachParent bool `json:"detachParent"`
}

type KnowledgePointLink struct {
	KnowledgePointID uint     `json:"knowledgePointId" binding:"required"`
	Weight           *float64 `json:"weight"`
}

const defaultLinkWeight = 1.0

func (s *KnowledgePointService) requireCourseTeacher(tx *gorm.DB, actor Actor, courseID uint) error {
	course, err := s.CourseRepo.WithTx(tx).FindByID(courseID)
	if err != nil {
		return notFound(err, util.ErrCourseNotFound)
	}
	if !actor.canManage(course) {
		return util.ErrNotCourseTeacher
	}
	return nil
}

func (s *KnowledgePointService) Create(ctx context.Context, actor Actor, req KnowledgePointRequest) (*model.KnowledgePoint, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: 名称不能为空", util.ErrValidation)
	}

	kp := &model.KnowledgePoint{
		CourseID:    req.CourseID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ParentID:    req.ParentID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireCourseTeacher(tx, actor, req.CourseID); err != nil {
			return err
		}
		repo := s.KPRepo.WithTx(tx)
		if req.ParentID != nil {
			parent, err := repo.FindByID(*req.ParentID)
			if err != nil {
				return notFound(err, util.ErrKnowledgePointNotFound)
			}
			if parent.CourseID != req.CourseID {
				return util.ErrKnowledgePointCourse
			}
		}
		return repo.Create(kp)
	})
	if err != nil {
		return nil, err
	}
	return kp, nil
}

// Update 修改父节点时沿父链向上检查，拒绝形成环
func (s *KnowledgePointService) Update(ctx context.Context, actor Actor, id uint, req KnowledgePointUpdate) (*model.KnowledgePoint, error) {
	var kp *model.KnowledgePoint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.KPRepo.WithTx(tx)
		var err error
		kp, err = repo.FindByID(id)
		if err != nil {
			return notFound(err, util.ErrKnowledgePointNotFound)
		}
		if err := s.requireCourseTeacher(tx, actor, kp.CourseID); err != nil {
			return err
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: 名称不能为空", util.ErrValidation)
			}
			kp.Name = name
		}
		if req.Description != nil {
			kp.Description = *req.Description
		}

		switch {
		case req.DetachParent:
			kp.ParentID = nil
		case req.ParentID != nil:
			parent, err := repo.FindByID(*req.ParentID)
			if err != nil {
				return notFound(err, util.ErrKnowledgePointNotFound)
			}
			if parent.CourseID != kp.CourseID {
				return util.ErrKnowledgePointCourse
			}
			if err := s.checkCycle(repo, kp.ID, parent.ID); err != nil {
				return err
			}
			kp.ParentID = &parent.ID
		}

		return repo.Save(kp)
	})
	if err != nil {
		return nil, err
	}
	return kp, nil
}

// checkCycle 从新父节点向上遍历，遇到自身即成环；已存在的环也会被发现
func (s *KnowledgePointService) checkCycle(repo *repository.KnowledgePointRepository, id, newParentID uint) error {
	visited := map[uint]bool{}
	current := &newParentID
	for current != nil {
		if *current == id || visited[*current] {
			return util.ErrKnowledgePointCycle
		}
		visited[*current] = true

		parent, err := repo.ParentOf(*current)
		if err != nil {
			return notFound(err, util.ErrKnowledgePointNotFound)
		}
		current = parent
	}
	return nil
}

// Delete 仍有子节点时拒绝删除
func (s *KnowledgePointService) Delete(ctx context.Context, actor Actor, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.KPRepo.WithTx(tx)
		kp, err := repo.FindByID(id)
		if err != nil {
			return notFound(err, util.ErrKnowledgePointNotFound)
		}
		if err := s.requireCourseTeacher(tx, actor, kp.CourseID); err != nil {
			return err
		}
		children, err := repo.CountChildren(id)
		if err != nil {
			return err
		}
		if children > 0 {
			return util.ErrKnowledgePointHasChildren
		}
		return repo.Delete(id)
	})
}

func (s *KnowledgePointService) ListByCourse(ctx context.Context, courseID uint) ([]model.KnowledgePoint, error) {
	return s.KPRepo.WithContext(ctx).ListByCourse(courseID)
}

// Tree 以课程知识点列表构建森林，子节点按 ID 排序；环上的节点不可达，不会出现在结果中
func (s *KnowledgePointService) Tree(ctx context.Context, courseID uint) ([]model.KnowledgePoint, error) {
	kps, err := s.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	children := make(map[uint][]uint)
	byID := make(map[uint]model.KnowledgePoint, len(kps))
	var roots []uint
	for _, kp := range kps {
		byID[kp.ID] = kp
	}
	for _, kp := range kps {
		if kp.ParentID != nil {
			if _, ok := byID[*kp.ParentID]; ok {
				children[*kp.ParentID] = append(children[*kp.ParentID], kp.ID)
				continue
			}
		}
		roots = append(roots, kp.ID)
	}

	var build func(id uint) model.KnowledgePoint
	build = func(id uint) model.KnowledgePoint {
		node := byID[id]
		for _, c := range children[id] {
			node.Children = append(node.Children, build(c))
		}
		return node
	}

	tree := make([]model.KnowledgePoint, 0, len(roots))
	for _, id := range roots {
		tree = append(tree, build(id))
	}
	return tree, nil
}

// SetAssignmentKnowledgePoints 整体替换作业的知识点关联；重复的知识点以最后一次为准
func (s *KnowledgePointService) SetAssignmentKnowledgePoints(ctx context.Context, actor Actor, assignmentID uint, links []KnowledgePointLink) ([]model.AssignmentKnowledgePoint, error) {
	weights := make(map[uint]float64, len(links))
	var order []uint
	for _, l := range links {
		w := defaultLinkWeight
		if l.Weight != nil {
			w = *l.Weight
		}
		if w <= 0 {
			return nil, util.ErrInvalidWeight
		}
		if _, seen := weights[l.KnowledgePointID]; !seen {
			order = append(order, l.KnowledgePointID)
		}
		weights[l.KnowledgePointID] = w
	}

	rows := make([]model.AssignmentKnowledgePoint, 0, len(order))
	for _, id := range order {
		rows = append(rows, model.AssignmentKnowledgePoint{AssignmentID: assignmentID, KnowledgePointID: id, Weight: weights[id]})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, err := s.AssignmentRepo.WithTx(tx).FindByID(assignmentID)
		if err != nil {
			return notFound(err, util.ErrAssignmentNotFound)
		}
		if err := s.requireCourseTeacher(tx, actor, assignment.CourseID); err != nil {
			return err
		}

		repo := s.KPRepo.WithTx(tx)
		if len(order) > 0 {
			n, err := repo.CountInCourse(assignment.CourseID, order)
			if err != nil {
				return err
			}
			if n != int64(len(order)) {
				return util.ErrKnowledgePointCourse
			}
		}
		return repo.ReplaceAssignmentLinks(assignmentID, rows)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *KnowledgePointService) ListAssignmentKnowledgePoints(ctx context.Context, assignmentID uint) ([]model.AssignmentKnowledgePoint, error) {
	return s.KPRepo.WithContext(ctx).ListAssignmentLinks(assignmentID)
}
