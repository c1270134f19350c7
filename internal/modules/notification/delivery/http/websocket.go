package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"uniconnect.app/campus/internal/modules/notification/dto"
	notifService "uniconnect.app/campus/internal/modules/notification/service"
	"uniconnect.app/campus/pkg/response"
)

const writeWait = 10 * time.Second

// HandleWebSocket streams the viewer's inbox. Every message is a complete
// snapshot; a slow client only ever receives the latest one.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, h.log, err)
		return
	}

	// Upgrade connection
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("failed to upgrade websocket", zap.String("viewer_id", viewer.ID), zap.Error(err))
		return
	}
	defer conn.Close()

	updates := make(chan []dto.AnnotatedNotification, 1)
	sub, err := h.inbox.Open(c.Request.Context(), viewer, func(list []dto.AnnotatedNotification) {
		select {
		case updates <- list:
		default:
			// Replace the pending snapshot with the newer one.
			select {
			case <-updates:
			default:
			}
			updates <- list
		}
	})
	// Stays nil when the subscription failed to open.
	var ended <-chan struct{}
	if err == nil {
		defer sub.Cancel()
		ended = sub.Done()
	}

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				// Client disconnected or error
				return
			}
		}
	}()

	for {
		select {
		case list := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			payload := dto.InboxResponse{
				Success:       err == nil,
				Notifications: list,
				UnreadCount:   notifService.UnreadCount(list),
			}
			if werr := conn.WriteJSON(payload); werr != nil {
				h.log.Debug("failed to write websocket message", zap.String("viewer_id", viewer.ID), zap.Error(werr))
				return
			}
			// A failed subscription queued one empty snapshot. Close after
			// sending it so the client reconnects.
			if err != nil {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "notification store unavailable"),
					time.Now().Add(writeWait))
				return
			}
		case <-ended:
			// Disposed on sign-out or shutdown.
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"),
				time.Now().Add(writeWait))
			return
		case <-clientClosed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
