package model

import "time"

// swagger:model Course
type Course struct {
	BaseModel
	Code        string `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	TeacherID   uint   `gorm:"index;not null" json:"teacherId"`
	Teacher     *User  `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Enrollment 学生选课记录，退课只置 IsActive=false，不删除
type Enrollment struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_enrollment_student_course" json:"studentId"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_student_course;index" json:"courseId"`
	IsActive   bool      `gorm:"not null;default:true" json:"isActive"`
	EnrolledAt time.Time `gorm:"not null" json:"enrolledAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Course     *Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
