package testutil

import (
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/pkg/database"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// NewTestDB 每个测试独立的内存 SQLite，单连接保证同一个库
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:edu_test_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, role model.UserRole) *model.User {
	t.Helper()
	n := seq.Add(1)
	u := &model.User{
		Name:     fmt.Sprintf("%s-%d", role, n),
		Email:    fmt.Sprintf("%s%d@example.com", role, n),
		Password: "x",
		Role:     role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateCourse(t *testing.T, db *gorm.DB, teacherID uint) *model.Course {
	t.Helper()
	c := &model.Course{
		Code:      fmt.Sprintf("C%d", seq.Add(1)),
		Name:      "Data Structures",
		TeacherID: teacherID,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func Enroll(t *testing.T, db *gorm.DB, studentID, courseID uint) *model.Enrollment {
	t.Helper()
	e := &model.Enrollment{StudentID: studentID, CourseID: courseID, IsActive: true, EnrolledAt: time.Now()}
	require.NoError(t, db.Create(e).Error)
	return e
}

// CreateAssignment 直接写库，questions 按传入顺序编号，选择题需自带 Options
func CreateAssignment(t *testing.T, db *gorm.DB, courseID uint, questions ...model.Question) *model.Assignment {
	t.Helper()
	a := &model.Assignment{CourseID: courseID, Title: "Quiz", TotalPoints: 100}
	require.NoError(t, db.Omit("Questions").Create(a).Error)
	for i := range questions {
		q := questions[i]
		q.AssignmentID = a.ID
		q.Order = i + 1
		require.NoError(t, db.Create(&q).Error)
		a.Questions = append(a.Questions, q)
	}
	return a
}

func CreateKnowledgePoint(t *testing.T, db *gorm.DB, courseID uint, parentID *uint) *model.KnowledgePoint {
	t.Helper()
	kp := &model.KnowledgePoint{CourseID: courseID, Name: fmt.Sprintf("kp-%d", seq.Add(1)), ParentID: parentID}
	require.NoError(t, db.Create(kp).Error)
	return kp
}
