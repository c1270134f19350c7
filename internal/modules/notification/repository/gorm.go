package repository

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/internal/modules/notification/changefeed"
	"uniconnect.app/campus/pkg/apperror"
)

type notificationRepository struct {
	db   *gorm.DB
	feed changefeed.Feed
	log  *zap.Logger
}

// NewNotificationRepository returns a gorm backed store. Membership sets live
// in the notification_marks table keyed by (notification, user, kind).
func NewNotificationRepository(db *gorm.DB, feed changefeed.Feed, log *zap.Logger) NotificationRepository {
	return &notificationRepository{db: db, feed: feed, log: log}
}

func (r *notificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	recipients := dedupe(notification.Recipients)
	notification.Marks = make([]entity.NotificationMark, 0, len(recipients))
	for _, userID := range recipients {
		notification.Marks = append(notification.Marks, entity.NotificationMark{
			NotificationID: notification.ID,
			UserID:         userID,
			Kind:           entity.MarkRecipient,
		})
	}

	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return storeError(err)
	}

	notification.HydrateMarks()
	notification.Marks = nil
	r.publish(ctx, changefeed.OpCreated, notification.ID)
	return nil
}

func (r *notificationRepository) FindAll(ctx context.Context) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := r.db.WithContext(ctx).
		Preload("Marks").
		Order("created_at desc").
		Find(&notifications).Error
	if err != nil {
		return nil, storeError(err)
	}

	for i := range notifications {
		notifications[i].HydrateMarks()
		notifications[i].Marks = nil
	}
	return notifications, nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	var notification entity.Notification
	if err := r.db.WithContext(ctx).Preload("Marks").First(&notification, "id = ?", id).Error; err != nil {
		return nil, storeError(err)
	}
	notification.HydrateMarks()
	notification.Marks = nil
	return &notification, nil
}

func (r *notificationRepository) AddMark(ctx context.Context, id uuid.UUID, kind entity.MarkKind, userID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensureExists(tx, id); err != nil {
			return err
		}
		mark := entity.NotificationMark{NotificationID: id, UserID: userID, Kind: kind}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mark).Error
	})
	if err != nil {
		return storeError(err)
	}

	r.publish(ctx, changefeed.OpUpdated, id)
	return nil
}

func (r *notificationRepository) RemoveMark(ctx context.Context, id uuid.UUID, kind entity.MarkKind, userID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensureExists(tx, id); err != nil {
			return err
		}
		return tx.Where("notification_id = ? AND user_id = ? AND kind = ?", id, userID, kind).
			Delete(&entity.NotificationMark{}).Error
	})
	if err != nil {
		return storeError(err)
	}

	r.publish(ctx, changefeed.OpUpdated, id)
	return nil
}

func (r *notificationRepository) AddMarks(ctx context.Context, ids []uuid.UUID, kind entity.MarkKind, userID string) error {
	if len(ids) == 0 {
		return nil
	}

	var existing []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Notification{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
			return err
		}
		if len(existing) == 0 {
			return nil
		}

		marks := make([]entity.NotificationMark, 0, len(existing))
		for _, id := range existing {
			marks = append(marks, entity.NotificationMark{NotificationID: id, UserID: userID, Kind: kind})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&marks).Error
	})
	if err != nil {
		return storeError(err)
	}

	if len(existing) > 0 {
		r.publish(ctx, changefeed.OpUpdated, existing...)
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notification_id = ?", id).Delete(&entity.NotificationMark{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&entity.Notification{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return storeError(err)
	}

	r.publish(ctx, changefeed.OpDeleted, id)
	return nil
}

func (r *notificationRepository) Subscribe(ctx context.Context, fn SnapshotFunc) (func(), error) {
	return subscribe(ctx, r.feed, r.FindAll, fn)
}

func (r *notificationRepository) ensureExists(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&entity.Notification{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

// publish signals subscribers. The write has already been committed, so a
// failed signal is logged and not returned.
func (r *notificationRepository) publish(ctx context.Context, op string, ids ...uuid.UUID) {
	event := changefeed.Event{Op: op, NotificationIDs: idStrings(ids)}
	if err := r.feed.Publish(ctx, event); err != nil {
		r.log.Warn("failed to publish notification change",
			zap.String("op", op),
			zap.Strings("notification_ids", event.NotificationIDs),
			zap.Error(err),
		)
	}
}
