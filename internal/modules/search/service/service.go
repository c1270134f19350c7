package search

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"uniconnect.app/campus/internal/entity"
)

const notificationsIndex = "notifications"

// NotificationIndex is a full-text index over notification text. It only
// narrows candidates; visibility is always decided by the inbox.
type NotificationIndex interface {
	IndexNotification(n *entity.Notification) error
	DeleteNotification(id string) error
	SearchNotificationIDs(query string, limit int64) ([]string, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
	log       *zap.Logger
}

func NewMeiliSearchService(client meilisearch.ServiceManager, log *zap.Logger) NotificationIndex {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
	}
	s.initIndex()
	return s
}

func (s *meiliSearchService) initIndex() {
	sortableAttrs := []string{"timestamp"}
	if _, err := s.client.Index(notificationsIndex).UpdateSortableAttributes(&sortableAttrs); err != nil {
		s.log.Warn("failed to update notifications sortable attributes", zap.Error(err))
		return
	}
	s.log.Info("meilisearch notifications index initialized")
}

type meiliNotificationDoc struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Course     string `json:"course"`
	CourseCode string `json:"course_code"`
	Timestamp  int64  `json:"timestamp"`
}

func (s *meiliSearchService) cleanText(content string) string {
	sanitized := s.sanitizer.Sanitize(content)
	return strings.Join(strings.Fields(html.UnescapeString(sanitized)), " ")
}

func (s *meiliSearchService) IndexNotification(n *entity.Notification) error {
	doc := meiliNotificationDoc{
		ID:         n.ID.String(),
		Title:      s.cleanText(n.Title),
		Message:    s.cleanText(n.Message),
		Type:       n.Type,
		Course:     n.Course,
		CourseCode: n.CourseCode,
		Timestamp:  n.Timestamp.Unix(),
	}

	task, err := s.client.Index(notificationsIndex).AddDocuments([]meiliNotificationDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	s.log.Debug("indexed notification", zap.String("notification_id", doc.ID), zap.Int64("task_uid", task.TaskUID))
	return nil
}

func (s *meiliSearchService) DeleteNotification(id string) error {
	_, err := s.client.Index(notificationsIndex).DeleteDocument(id)
	return err
}

func (s *meiliSearchService) SearchNotificationIDs(query string, limit int64) ([]string, error) {
	raw, err := s.client.Index(notificationsIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit:                limit,
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Hits []struct {
			ID string `json:"id"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
