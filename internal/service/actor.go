package service

import (
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

// Actor 发起操作的已认证用户
type Actor struct {
	UserID uint
	Role   model.UserRole
}

func ActorFromClaims(claims *util.Claims) Actor {
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.Admin
}

// canManage 课程授课教师或管理员
func (a Actor) canManage(course *model.Course) bool {
	return a.IsAdmin() || (a.Role == model.Teacher && course.TeacherID == a.UserID)
}

// notFound 把 gorm 的 ErrRecordNotFound 替换为业务错误
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
