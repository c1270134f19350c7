package bootstrap

import (
	"context"
	"time"

	"go.uber.org/zap"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/internal/modules/notification/dto"
	notifRepo "uniconnect.app/campus/internal/modules/notification/repository"
	notifService "uniconnect.app/campus/internal/modules/notification/service"
)

// SeedAuthorID is the author recorded on seeded notifications.
const SeedAuthorID = "system"

// SeedNotifications fills an empty store with a small demo inbox. It does
// nothing when any notification already exists.
func SeedNotifications(ctx context.Context, repo notifRepo.NotificationRepository, authoring *notifService.Authoring, log *zap.Logger) error {
	existing, err := repo.FindAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("notifications already exist, skipping seed", zap.Int("count", len(existing)))
		return nil
	}

	students := "student"
	level300 := "300"
	now := time.Now().UTC()

	if _, err := authoring.Create(ctx, dto.CreateNotificationRequest{
		Title:     "Welcome to UniConnect",
		Message:   "Course updates, deadlines and campus announcements will appear here.",
		Targeting: dto.Targeting{ForAllUsers: true},
	}, SeedAuthorID); err != nil {
		return err
	}

	if _, err := authoring.ForAssignment(ctx, dto.AssignmentNotificationRequest{
		AssignmentID: "demo-assignment-1",
		Title:        "Lab Report 1",
		Course:       "Operating Systems",
		CourseCode:   "CS301",
		DueDate:      now.Add(7 * 24 * time.Hour),
		Targeting:    dto.Targeting{TargetUserType: &students, TargetAcademicLevel: &level300},
	}, SeedAuthorID); err != nil {
		return err
	}

	if _, err := authoring.ForExam(ctx, dto.ExamNotificationRequest{
		ExamID:     "demo-exam-1",
		Course:     "Database Systems",
		CourseCode: "CS305",
		ExamDate:   now.Add(14 * 24 * time.Hour),
		Venue:      "Main Hall",
		Targeting:  dto.Targeting{TargetUserType: &students},
	}, SeedAuthorID); err != nil {
		return err
	}

	if _, err := authoring.ForMaterial(ctx, dto.MaterialNotificationRequest{
		MaterialID: "demo-material-1",
		Title:      "Week 1 Slides",
		Course:     "Operating Systems",
		CourseCode: "CS301",
		Targeting:  dto.Targeting{TargetUserType: &students, TargetAcademicLevel: &level300},
	}, SeedAuthorID); err != nil {
		return err
	}

	if _, err := authoring.Create(ctx, dto.CreateNotificationRequest{
		Title:     "Faculty meeting",
		Message:   "Staff meeting moved to Thursday 2pm.",
		Type:      entity.NotificationTypeAnnouncement,
		Priority:  entity.PriorityHigh,
		Targeting: dto.Targeting{TargetUserType: stringPtr("lecturer")},
	}, SeedAuthorID); err != nil {
		return err
	}

	log.Info("demo notifications seeded", zap.Int("count", 5))
	return nil
}

func stringPtr(s string) *string {
	return &s
}
