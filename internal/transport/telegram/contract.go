package telegram

import (
	"context"

	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
	"github.com/kailas-cloud/limitwatch/internal/usecase/conversation"
)

// Conversation handles chat events for one user at a time.
type Conversation interface {
	Start(ctx context.Context, userID int64) conversation.Response
	SelectProject(ctx context.Context, userID int64, projectID string) conversation.Response
	Status(ctx context.Context, userID int64) conversation.Response
	SetLimit(ctx context.Context, userID int64) conversation.Response
	AddLimit(ctx context.Context, userID int64) conversation.Response
	Help(ctx context.Context, userID int64) conversation.Response
	Cancel(ctx context.Context, userID int64) conversation.Response
	Text(ctx context.Context, userID int64, text string) conversation.Response
	QuickPick(ctx context.Context, userID int64, mode domquota.Mode, value int64) conversation.Response
}
