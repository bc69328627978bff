package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"bantudesa/pkg/db/option"
	"bantudesa/pkg/db/pagination"
	"bantudesa/pkg/errutil"
	"bantudesa/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	now  func() time.Time

	notifications repository.Repository[Notification]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		now:  time.Now,

		notifications: repository.ProvideStore[Notification](p.DB),
	}
}

// Notify persists msg so the recipient sees it in their inbox.
func (s *Service) Notify(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.UserID) == "" {
		return errutil.ValidationFailed("notification recipient is required", nil)
	}

	n := &Notification{
		ID:        s.node.Generate().String(),
		UserID:    msg.UserID,
		Title:     msg.Title,
		Message:   msg.Body,
		Category:  msg.Category,
		CreatedAt: s.now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		zap.L().Error("failed to store notification", zap.String("user_id", msg.UserID), zap.Error(err))
		return errutil.Internal("failed to store notification", err)
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, page pagination.Pagination) ([]*Notification, *pagination.PageInfo, error) {
	page = page.Normalize()
	rows, err := s.notifications.Find(ctx, &Notification{UserID: userID},
		option.WithSortBy(option.QuerySortBy{OrderBy: "desc"}),
		option.ApplyPagination(page),
	)
	if err != nil {
		if errors.Is(err, option.ErrInvalidCursor) {
			return nil, nil, errutil.ValidationFailed("invalid cursor", err)
		}
		return nil, nil, errutil.Internal("failed to list notifications", err)
	}

	rows, info := pagination.BuildCursorPageInfo(rows, page.Limit, func(n *Notification) pagination.Cursor {
		return pagination.NewCursor(n.CreatedAt, n.ID)
	})
	return rows, info, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return errutil.Internal("failed to update notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("notification not found", nil)
	}
	return nil
}
