package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/internal/modules/notification/dto"
	notifService "uniconnect.app/campus/internal/modules/notification/service"
	"uniconnect.app/campus/pkg/apperror"
	"uniconnect.app/campus/pkg/response"
)

type NotificationHandler struct {
	inbox     *notifService.Inbox
	authoring *notifService.Authoring
	log       *zap.Logger
	upgrader  websocket.Upgrader
}

func NewNotificationHandler(inbox *notifService.Inbox, authoring *notifService.Authoring, log *zap.Logger, checkOrigin func(r *http.Request) bool) *NotificationHandler {
	return &NotificationHandler{
		inbox:     inbox,
		authoring: authoring,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// REST Endpoints

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	var opts dto.ListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		response.ResponseError(c, h.log, apperror.Validation(err.Error()))
		return
	}

	list, err := h.inbox.GetAll(c.Request.Context(), viewer)
	if err != nil {
		// The empty list is still sent so clients can render "no notifications".
		c.JSON(apperror.MapErrorToStatus(err), gin.H{
			"success":       false,
			"error":         err.Error(),
			"kind":          apperror.Kind(err),
			"notifications": list,
			"unread_count":  0,
		})
		return
	}

	c.JSON(http.StatusOK, dto.InboxResponse{
		Success:       true,
		Notifications: notifService.SortAndFilter(list, opts),
		UnreadCount:   notifService.UnreadCount(list),
	})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	list, err := h.inbox.GetAll(c.Request.Context(), viewer)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": notifService.UnreadCount(list)})
}

func (h *NotificationHandler) GetNotification(c *gin.Context) {
	viewer, id, ok := h.viewerAndID(c)
	if !ok {
		return
	}

	notification, err := h.inbox.Get(c.Request.Context(), viewer, id)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, notification)
}

func (h *NotificationHandler) Search(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	query := c.Query("q")
	if query == "" {
		response.ResponseError(c, h.log, apperror.Validation("q is required"))
		return
	}

	list, err := h.inbox.Search(c.Request.Context(), viewer, query)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, list)
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	viewer, id, ok := h.viewerAndID(c)
	if !ok {
		return
	}

	if err := h.inbox.MarkRead(c.Request.Context(), id, viewer.ID); err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, nil)
}

func (h *NotificationHandler) MarkAsUnread(c *gin.Context) {
	viewer, id, ok := h.viewerAndID(c)
	if !ok {
		return
	}

	if err := h.inbox.MarkUnread(c.Request.Context(), id, viewer.ID); err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, nil)
}

// MarkAllAsRead uses the viewer's inbox at request time as the snapshot.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	current, err := h.inbox.GetAll(c.Request.Context(), viewer)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	marked, err := h.inbox.MarkAllRead(c.Request.Context(), viewer, current)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"marked": marked})
}

func (h *NotificationHandler) SoftDelete(c *gin.Context) {
	viewer, id, ok := h.viewerAndID(c)
	if !ok {
		return
	}

	if err := h.inbox.SoftDelete(c.Request.Context(), id, viewer.ID); err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, nil)
}

func (h *NotificationHandler) HardDelete(c *gin.Context) {
	viewer, id, ok := h.viewerAndID(c)
	if !ok {
		return
	}

	if err := h.inbox.HardDelete(c.Request.Context(), id, viewer.ID); err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, nil)
}

func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req dto.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, h.log, apperror.Validation(err.Error()))
		return
	}
	h.respondCreated(c, func(authorID string) (any, error) {
		return h.authoring.Create(c.Request.Context(), req, authorID)
	})
}

func (h *NotificationHandler) CreateAssignmentNotification(c *gin.Context) {
	var req dto.AssignmentNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, h.log, apperror.Validation(err.Error()))
		return
	}
	h.respondCreated(c, func(authorID string) (any, error) {
		return h.authoring.ForAssignment(c.Request.Context(), req, authorID)
	})
}

func (h *NotificationHandler) CreateExamNotification(c *gin.Context) {
	var req dto.ExamNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, h.log, apperror.Validation(err.Error()))
		return
	}
	h.respondCreated(c, func(authorID string) (any, error) {
		return h.authoring.ForExam(c.Request.Context(), req, authorID)
	})
}

func (h *NotificationHandler) CreateMaterialNotification(c *gin.Context) {
	var req dto.MaterialNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ResponseError(c, h.log, apperror.Validation(err.Error()))
		return
	}
	h.respondCreated(c, func(authorID string) (any, error) {
		return h.authoring.ForMaterial(c.Request.Context(), req, authorID)
	})
}

func (h *NotificationHandler) respondCreated(c *gin.Context, create func(authorID string) (any, error)) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	notification, err := create(viewer.ID)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, notification)
}

func (h *NotificationHandler) viewerAndID(c *gin.Context) (viewer entity.Viewer, id uuid.UUID, ok bool) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return viewer, uuid.Nil, false
	}

	id, err = uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, h.log, apperror.New(http.StatusBadRequest, "invalid notification id", apperror.ErrBadRequest))
		return viewer, uuid.Nil, false
	}

	return viewer, id, true
}
