package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"uniconnect.app/campus/internal/modules/notification/dto"
)

func item(priority, course, typ string, read bool, at time.Time) dto.AnnotatedNotification {
	return dto.AnnotatedNotification{
		ID:        uuid.New(),
		Priority:  priority,
		Course:    course,
		Type:      typ,
		Read:      read,
		Timestamp: at,
	}
}

func priorities(list []dto.AnnotatedNotification) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.Priority
	}
	return out
}

func TestSortAndFilter_Priority(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	list := []dto.AnnotatedNotification{
		item("low", "", "announcement", false, base),
		item("urgent", "", "announcement", false, base.Add(time.Minute)),
		item("normal", "", "announcement", false, base.Add(2*time.Minute)),
		item("high", "", "announcement", false, base.Add(3*time.Minute)),
	}

	got := SortAndFilter(list, dto.ListOptions{SortBy: dto.SortPriority})

	assert.Equal(t, []string{"urgent", "high", "normal", "low"}, priorities(got))
	assert.Equal(t, "low", list[0].Priority, "input must not be reordered")
}

func TestSortAndFilter_UnknownPriorityRanksAsNormal(t *testing.T) {
	base := time.Now()
	list := []dto.AnnotatedNotification{
		item("low", "", "", false, base),
		item("whenever", "", "", false, base),
		item("high", "", "", false, base),
	}

	got := SortAndFilter(list, dto.ListOptions{SortBy: dto.SortPriority})

	assert.Equal(t, []string{"high", "whenever", "low"}, priorities(got))
}

func TestSortAndFilter_NewestAndOldest(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := item("normal", "", "", false, base)
	b := item("normal", "", "", false, base.Add(time.Hour))
	c := item("normal", "", "", false, base.Add(2*time.Hour))
	list := []dto.AnnotatedNotification{b, a, c}

	newest := SortAndFilter(list, dto.ListOptions{})
	assert.Equal(t, []uuid.UUID{c.ID, b.ID, a.ID}, []uuid.UUID{newest[0].ID, newest[1].ID, newest[2].ID})

	oldest := SortAndFilter(list, dto.ListOptions{SortBy: dto.SortOldest})
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, []uuid.UUID{oldest[0].ID, oldest[1].ID, oldest[2].ID})
}

func TestSortAndFilter_CourseEmptyFirst(t *testing.T) {
	now := time.Now()
	list := []dto.AnnotatedNotification{
		item("normal", "Physics", "", false, now),
		item("normal", "", "", false, now),
		item("normal", "Algebra", "", false, now),
	}

	got := SortAndFilter(list, dto.ListOptions{SortBy: dto.SortCourse})

	assert.Equal(t, "", got[0].Course)
	assert.Equal(t, "Algebra", got[1].Course)
	assert.Equal(t, "Physics", got[2].Course)
}

func TestSortAndFilter_Filters(t *testing.T) {
	now := time.Now()
	list := []dto.AnnotatedNotification{
		item("normal", "", "exam", true, now),
		item("normal", "", "exam", false, now),
		item("normal", "", "assignment", false, now),
	}

	assert.Len(t, SortAndFilter(list, dto.ListOptions{TypeFilter: "exam"}), 2)
	assert.Len(t, SortAndFilter(list, dto.ListOptions{TypeFilter: dto.FilterAll}), 3)
	assert.Len(t, SortAndFilter(list, dto.ListOptions{ReadFilter: dto.FilterUnread}), 2)
	assert.Len(t, SortAndFilter(list, dto.ListOptions{ReadFilter: dto.FilterRead}), 1)
	assert.Len(t, SortAndFilter(list, dto.ListOptions{TypeFilter: "exam", ReadFilter: dto.FilterUnread}), 1)
	assert.Empty(t, SortAndFilter(list, dto.ListOptions{TypeFilter: "material"}))
}

func TestUnreadCount(t *testing.T) {
	now := time.Now()
	list := []dto.AnnotatedNotification{
		item("normal", "", "", true, now),
		item("normal", "", "", false, now),
		item("normal", "", "", true, now),
		item("normal", "", "", false, now),
		item("normal", "", "", false, now),
	}

	assert.Equal(t, 3, UnreadCount(list))
	assert.Equal(t, 0, UnreadCount(nil))
}
