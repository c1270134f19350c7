package dto

import (
	"time"

	"github.com/google/uuid"

	"uniconnect.app/campus/internal/entity"
)

// AnnotatedNotification is a notification as seen by one viewer. The
// viewer's read state is resolved; the membership sets are not exposed.
type AnnotatedNotification struct {
	ID                  uuid.UUID         `json:"id"`
	Title               string            `json:"title"`
	Message             string            `json:"message"`
	Type                string            `json:"type"`
	Priority            string            `json:"priority"`
	Course              string            `json:"course"`
	CourseCode          string            `json:"course_code,omitempty"`
	CreatedBy           string            `json:"created_by"`
	Timestamp           time.Time         `json:"timestamp"`
	TargetUserType      *string           `json:"target_user_type,omitempty"`
	TargetAcademicLevel *string           `json:"target_academic_level,omitempty"`
	ForAllUsers         bool              `json:"for_all_users"`
	ExpiresAt           *time.Time        `json:"expires_at,omitempty"`
	ActionURL           string            `json:"action_url,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	Read                bool              `json:"read"`
}

func Annotate(n entity.Notification, viewerID string) AnnotatedNotification {
	return AnnotatedNotification{
		ID:                  n.ID,
		Title:               n.Title,
		Message:             n.Message,
		Type:                n.Type,
		Priority:            n.Priority,
		Course:              n.Course,
		CourseCode:          n.CourseCode,
		CreatedBy:           n.CreatedBy,
		Timestamp:           n.Timestamp,
		TargetUserType:      n.TargetUserType,
		TargetAcademicLevel: n.TargetAcademicLevel,
		ForAllUsers:         n.ForAllUsers,
		ExpiresAt:           n.ExpiresAt,
		ActionURL:           n.ActionURL,
		Metadata:            n.Metadata,
		Read:                n.IsReadBy(viewerID),
	}
}

const (
	SortNewest   = "newest"
	SortOldest   = "oldest"
	SortPriority = "priority"
	SortCourse   = "course"
)

const (
	FilterAll    = "all"
	FilterRead   = "read"
	FilterUnread = "unread"
)

// ListOptions selects the presentation order and filters of an inbox list.
// Empty fields mean newest first with no filtering.
type ListOptions struct {
	SortBy     string `form:"sort_by" binding:"omitempty,oneof=newest oldest priority course"`
	TypeFilter string `form:"type"`
	ReadFilter string `form:"read" binding:"omitempty,oneof=all read unread"`
}

// Targeting selects who receives a notification.
type Targeting struct {
	Recipients          []string `json:"recipients"`
	TargetUserType      *string  `json:"target_user_type"`
	TargetAcademicLevel *string  `json:"target_academic_level"`
	ForAllUsers         bool     `json:"for_all_users"`
}

type CreateNotificationRequest struct {
	Title      string            `json:"title" validate:"required,max=200"`
	Message    string            `json:"message" validate:"required"`
	Type       string            `json:"type" validate:"omitempty,max=50"`
	Priority   string            `json:"priority" validate:"omitempty,max=20"`
	Course     string            `json:"course" validate:"max=150"`
	CourseCode string            `json:"course_code" validate:"max=50"`
	ExpiresAt  *time.Time        `json:"expires_at"`
	ActionURL  string            `json:"action_url"`
	Metadata   map[string]string `json:"metadata"`
	Targeting
}

type AssignmentNotificationRequest struct {
	AssignmentID string    `json:"assignment_id" validate:"required"`
	Title        string    `json:"title" validate:"required"`
	Course       string    `json:"course" validate:"required"`
	CourseCode   string    `json:"course_code"`
	DueDate      time.Time `json:"due_date" validate:"required"`
	Targeting
}

type ExamNotificationRequest struct {
	ExamID     string    `json:"exam_id" validate:"required"`
	Course     string    `json:"course" validate:"required"`
	CourseCode string    `json:"course_code"`
	ExamDate   time.Time `json:"exam_date" validate:"required"`
	Venue      string    `json:"venue"`
	Targeting
}

type MaterialNotificationRequest struct {
	MaterialID string `json:"material_id" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Course     string `json:"course" validate:"required"`
	CourseCode string `json:"course_code"`
	Targeting
}

type InboxResponse struct {
	Success       bool                    `json:"success"`
	Notifications []AnnotatedNotification `json:"notifications"`
	UnreadCount   int                     `json:"unread_count"`
}
