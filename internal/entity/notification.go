package entity

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationTypeAnnouncement = "announcement"
	NotificationTypeAssignment   = "assignment"
	NotificationTypeMaterial     = "material"
	NotificationTypeExam         = "exam"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// MarkKind names one of the per-user membership sets attached to a notification.
type MarkKind string

const (
	MarkRecipient MarkKind = "recipient"
	MarkRead      MarkKind = "read"
	MarkDeleted   MarkKind = "deleted"
)

// Notification is a record of the shared notification feed. Apart from the
// read and deleted membership sets it is never edited after creation.
type Notification struct {
	ID                  uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Title               string            `gorm:"size:200;not null" json:"title"`
	Message             string            `gorm:"type:text;not null" json:"message"`
	Type                string            `gorm:"size:50;not null" json:"type"`
	Priority            string            `gorm:"size:20;not null" json:"priority"`
	Course              string            `gorm:"size:150" json:"course,omitempty"`
	CourseCode          string            `gorm:"size:50" json:"course_code,omitempty"`
	CreatedBy           string            `gorm:"size:100;not null;index" json:"created_by"`
	Timestamp           time.Time         `gorm:"column:created_at;not null;index" json:"timestamp"`
	TargetUserType      *string           `gorm:"size:50" json:"target_user_type,omitempty"`
	TargetAcademicLevel *string           `gorm:"size:50" json:"target_academic_level,omitempty"`
	ForAllUsers         bool              `gorm:"not null;default:false" json:"for_all_users"`
	ExpiresAt           *time.Time        `gorm:"index" json:"expires_at,omitempty"`
	ActionURL           string            `gorm:"type:text" json:"action_url,omitempty"`
	Metadata            map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`

	Marks []NotificationMark `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE" json:"-"`

	// Membership sets, hydrated from Marks by the repository.
	Recipients []string `gorm:"-" json:"recipients"`
	ReadBy     []string `gorm:"-" json:"read_by"`
	DeletedBy  []string `gorm:"-" json:"deleted_by"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NotificationMark is one (notification, user, kind) membership row. The
// composite primary key makes inserting an existing mark a no-op.
type NotificationMark struct {
	NotificationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         string    `gorm:"size:100;primaryKey"`
	Kind           MarkKind  `gorm:"size:20;primaryKey"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// HydrateMarks rebuilds the membership sets from the loaded mark rows.
func (n *Notification) HydrateMarks() {
	n.Recipients = []string{}
	n.ReadBy = []string{}
	n.DeletedBy = []string{}
	for _, m := range n.Marks {
		switch m.Kind {
		case MarkRecipient:
			n.Recipients = append(n.Recipients, m.UserID)
		case MarkRead:
			n.ReadBy = append(n.ReadBy, m.UserID)
		case MarkDeleted:
			n.DeletedBy = append(n.DeletedBy, m.UserID)
		}
	}
}

// Members returns the membership set for kind.
func (n *Notification) Members(kind MarkKind) []string {
	switch kind {
	case MarkRecipient:
		return n.Recipients
	case MarkRead:
		return n.ReadBy
	case MarkDeleted:
		return n.DeletedBy
	}
	return nil
}

// SetMembers replaces the membership set for kind.
func (n *Notification) SetMembers(kind MarkKind, members []string) {
	switch kind {
	case MarkRecipient:
		n.Recipients = members
	case MarkRead:
		n.ReadBy = members
	case MarkDeleted:
		n.DeletedBy = members
	}
}

func (n *Notification) IsReadBy(userID string) bool {
	return slices.Contains(n.ReadBy, userID)
}

func (n *Notification) IsDeletedBy(userID string) bool {
	return slices.Contains(n.DeletedBy, userID)
}

func (n *Notification) IsRecipient(userID string) bool {
	return slices.Contains(n.Recipients, userID)
}

// Expired reports whether the notification has passed its expiry at now.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}

// Clone returns a deep copy so callers cannot alias the store's slices.
func (n Notification) Clone() Notification {
	out := n
	out.Marks = nil
	out.Recipients = slices.Clone(n.Recipients)
	out.ReadBy = slices.Clone(n.ReadBy)
	out.DeletedBy = slices.Clone(n.DeletedBy)
	if n.Metadata != nil {
		out.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			out.Metadata[k] = v
		}
	}
	if n.TargetUserType != nil {
		v := *n.TargetUserType
		out.TargetUserType = &v
	}
	if n.TargetAcademicLevel != nil {
		v := *n.TargetAcademicLevel
		out.TargetAcademicLevel = &v
	}
	if n.ExpiresAt != nil {
		v := *n.ExpiresAt
		out.ExpiresAt = &v
	}
	return out
}
