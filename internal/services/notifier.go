package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/cache"
	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/realtime"
	"github.com/yukikurage/timesheet-api/internal/repository"
)

// Message is a notification to deliver.
type Message struct {
	Type    models.NotificationType
	Title   string
	Message string
	Link    string
}

// Notifier persists notifications and pushes them to connected clients.
// Delivery failures are logged and never reported to the caller.
type Notifier struct {
	repo *repository.Repository
	hub  *realtime.Hub
	log  *zap.Logger
}

// NewNotifier creates a Notifier. hub may be nil when no client can be
// connected (CLI).
func NewNotifier(repo *repository.Repository, hub *realtime.Hub, log *zap.Logger) *Notifier {
	return &Notifier{repo: repo, hub: hub, log: log}
}

// Notify delivers msg to every user in userIDs.
func (n *Notifier) Notify(ctx context.Context, userIDs []uint64, msg Message) {
	for _, userID := range uniqueUint64(userIDs) {
		notification := &models.Notification{
			UserID:  userID,
			Type:    msg.Type,
			Title:   msg.Title,
			Message: msg.Message,
			Link:    msg.Link,
		}
		if err := n.repo.Notification.Create(ctx, notification); err != nil {
			n.log.Warn("Failed to store notification",
				zap.Uint64("user_id", userID),
				zap.String("type", string(msg.Type)),
				zap.Error(err),
			)
			continue
		}
		if n.hub != nil {
			if err := n.hub.Publish(userID, "notification", notification); err != nil {
				n.log.Warn("Failed to publish notification", zap.Uint64("user_id", userID), zap.Error(err))
			}
		}
	}
}

// NotifyRoles delivers msg to every user holding one of roles, except
// the actor.
func (n *Notifier) NotifyRoles(ctx context.Context, roles []models.Role, actorID uint64, msg Message) {
	users, err := n.repo.User.ListByRoles(ctx, roles...)
	if err != nil {
		n.log.Warn("Failed to resolve notification recipients", zap.Error(err))
		return
	}
	ids := make([]uint64, 0, len(users))
	for _, u := range users {
		if u.ID != actorID {
			ids = append(ids, u.ID)
		}
	}
	n.Notify(ctx, ids, msg)
}

// List returns the caller's notifications, newest first.
func (n *Notifier) List(ctx context.Context, userID uint64, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error) {
	return n.repo.Notification.ListByUser(ctx, userID, unreadOnly, page, pageSize)
}

// MarkRead marks one notification of the caller as read.
func (n *Notifier) MarkRead(ctx context.Context, userID, id uint64) error {
	if err := n.repo.Notification.MarkRead(ctx, userID, id); err != nil {
		if isNotFound(err) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

// MarkAllRead marks every notification of the caller as read.
func (n *Notifier) MarkAllRead(ctx context.Context, userID uint64) error {
	return n.repo.Notification.MarkAllRead(ctx, userID)
}

// invalidate marks tags stale, logging failures
func invalidate(ctx context.Context, inv cache.Invalidator, log *zap.Logger, tags ...string) {
	if inv == nil || len(tags) == 0 {
		return
	}
	if err := inv.InvalidateTags(ctx, tags...); err != nil {
		log.Warn("Cache invalidation failed", zap.Strings("tags", tags), zap.Error(err))
	}
}
