package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/internal/modules/notification/dto"
	notifRepo "uniconnect.app/campus/internal/modules/notification/repository"
	search "uniconnect.app/campus/internal/modules/search/service"
	"uniconnect.app/campus/pkg/apperror"
	"uniconnect.app/campus/pkg/metrics"
	appValidator "uniconnect.app/campus/pkg/validator"
)

// deadlineGrace keeps assignment and exam notifications visible for a day
// after the event.
const deadlineGrace = 24 * time.Hour

const dateLayout = "Mon, 02 Jan 2006 15:04"

// Authoring builds notification records and inserts them into the shared
// store. It never delivers push messages.
type Authoring struct {
	repo      notifRepo.NotificationRepository
	index     search.NotificationIndex
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	log       *zap.Logger
	now       func() time.Time
}

type AuthoringOption func(*Authoring)

func WithAuthoringClock(now func() time.Time) AuthoringOption {
	return func(s *Authoring) { s.now = now }
}

// WithAuthoringIndex indexes every created notification for search.
func WithAuthoringIndex(index search.NotificationIndex) AuthoringOption {
	return func(s *Authoring) { s.index = index }
}

func NewAuthoring(repo notifRepo.NotificationRepository, log *zap.Logger, opts ...AuthoringOption) *Authoring {
	s := &Authoring{
		repo:      repo,
		validate:  validator.New(),
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Authoring) cleanText(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

// Create validates req, fills defaults and inserts the notification.
func (s *Authoring) Create(ctx context.Context, req dto.CreateNotificationRequest, authorID string) (*entity.Notification, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, apperror.Validation("author is required")
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.Validation(appValidator.FormatValidationError(err))
	}

	// Markup is stripped after validation so input that was only tags is
	// reported as such instead of as a missing field.
	if req.Title = s.cleanText(req.Title); req.Title == "" {
		return nil, apperror.Validation("title must contain text, not only markup")
	}
	if req.Message = s.cleanText(req.Message); req.Message == "" {
		return nil, apperror.Validation("message must contain text, not only markup")
	}

	notification := &entity.Notification{
		Title:               req.Title,
		Message:             req.Message,
		Type:                valueOrDefault(req.Type, entity.NotificationTypeAnnouncement),
		Priority:            valueOrDefault(req.Priority, entity.PriorityNormal),
		Course:              strings.TrimSpace(req.Course),
		CourseCode:          strings.TrimSpace(req.CourseCode),
		CreatedBy:           authorID,
		Timestamp:           s.now().UTC(),
		TargetUserType:      nonEmpty(req.TargetUserType),
		TargetAcademicLevel: nonEmpty(req.TargetAcademicLevel),
		ForAllUsers:         req.ForAllUsers,
		ExpiresAt:           req.ExpiresAt,
		ActionURL:           req.ActionURL,
		Metadata:            req.Metadata,
		Recipients:          recipientsOrEmpty(req.Recipients),
		ReadBy:              []string{},
		DeletedBy:           []string{},
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		s.log.Error("failed to create notification", zap.String("author_id", authorID), zap.Error(err))
		return nil, err
	}
	metrics.IncrementNotificationsCreated(notification.Type)

	if s.index != nil {
		if err := s.index.IndexNotification(notification); err != nil {
			s.log.Warn("failed to index notification", zap.String("notification_id", notification.ID.String()), zap.Error(err))
		}
	}

	s.log.Info("notification created",
		zap.String("notification_id", notification.ID.String()),
		zap.String("type", notification.Type),
		zap.String("author_id", authorID),
	)
	return notification, nil
}

func (s *Authoring) ForAssignment(ctx context.Context, req dto.AssignmentNotificationRequest, authorID string) (*entity.Notification, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.Validation(appValidator.FormatValidationError(err))
	}

	expires := req.DueDate.Add(deadlineGrace)
	return s.Create(ctx, dto.CreateNotificationRequest{
		Title:      fmt.Sprintf("New Assignment: %s", req.Title),
		Message:    fmt.Sprintf("%s: %q is due %s", req.Course, req.Title, req.DueDate.Format(dateLayout)),
		Type:       entity.NotificationTypeAssignment,
		Priority:   entity.PriorityHigh,
		Course:     req.Course,
		CourseCode: req.CourseCode,
		ExpiresAt:  &expires,
		ActionURL:  "/assignments/" + req.AssignmentID,
		Metadata: map[string]string{
			"assignmentId": req.AssignmentID,
			"dueDate":      req.DueDate.UTC().Format(time.RFC3339),
		},
		Targeting: req.Targeting,
	}, authorID)
}

func (s *Authoring) ForExam(ctx context.Context, req dto.ExamNotificationRequest, authorID string) (*entity.Notification, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.Validation(appValidator.FormatValidationError(err))
	}

	message := fmt.Sprintf("%s exam is scheduled for %s", req.Course, req.ExamDate.Format(dateLayout))
	if venue := strings.TrimSpace(req.Venue); venue != "" {
		message += " at " + venue
	}

	expires := req.ExamDate.Add(deadlineGrace)
	return s.Create(ctx, dto.CreateNotificationRequest{
		Title:      fmt.Sprintf("Upcoming Exam: %s", req.Course),
		Message:    message,
		Type:       entity.NotificationTypeExam,
		Priority:   entity.PriorityUrgent,
		Course:     req.Course,
		CourseCode: req.CourseCode,
		ExpiresAt:  &expires,
		ActionURL:  "/exams/" + req.ExamID,
		Metadata: map[string]string{
			"examId":   req.ExamID,
			"examDate": req.ExamDate.UTC().Format(time.RFC3339),
			"venue":    req.Venue,
		},
		Targeting: req.Targeting,
	}, authorID)
}

func (s *Authoring) ForMaterial(ctx context.Context, req dto.MaterialNotificationRequest, authorID string) (*entity.Notification, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.Validation(appValidator.FormatValidationError(err))
	}

	return s.Create(ctx, dto.CreateNotificationRequest{
		Title:      fmt.Sprintf("New Material: %s", req.Title),
		Message:    fmt.Sprintf("New course material %q has been shared for %s", req.Title, req.Course),
		Type:       entity.NotificationTypeMaterial,
		Priority:   entity.PriorityNormal,
		Course:     req.Course,
		CourseCode: req.CourseCode,
		ActionURL:  "/materials/" + req.MaterialID,
		Metadata: map[string]string{
			"materialId": req.MaterialID,
		},
		Targeting: req.Targeting,
	}, authorID)
}

func valueOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func recipientsOrEmpty(recipients []string) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
