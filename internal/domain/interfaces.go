package domain

import (
	"context"
	"time"

	"funnelbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender is the raw Bot API surface the service layer builds on.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// UserRepository is the persistence contract of the funnel core. All
// operations are fallible; storage errors are surfaced to the caller and
// never collapsed into "not found".
type UserRepository interface {
	UpsertUser(ctx context.Context, telegramID int64, identity models.Identity) error
	SetSubscribed(ctx context.Context, telegramID int64, subscribed bool) error
	SetContentReceived(ctx context.Context, telegramID int64) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	AppendMessage(ctx context.Context, telegramID int64, text string, fromAdmin bool) error
	GetStats(ctx context.Context) (*models.Stats, error)
}

// MembershipChecker answers whether a user currently belongs to a channel.
// The returned status is one of the models.MemberStatus* values.
type MembershipChecker interface {
	GetMembership(ctx context.Context, channelID string, userID int64) (string, error)
}

// Notifier delivers outbound messages. Sends are bounded by the underlying
// client's timeout; transient failures are returned, never retried here.
type Notifier interface {
	SendText(chatID int64, text string) error
	SendDocument(chatID int64, filePath, caption string) error
}

// Sequencer runs delayed per-user delivery steps.
type Sequencer interface {
	Schedule(userID int64, steps []SequenceStep) error
	Cancel(userID int64) bool
	Scheduled(userID int64) bool
}

// SequenceStep is one timed action of a delayed sequence. Delay is
// relative to the previous step (cumulative from scheduling time).
type SequenceStep struct {
	Name  string
	Delay time.Duration
	Run   func(ctx context.Context) error
}

// StateRepository keeps short-lived per-user state outside the funnel
// core: inbound rate-limit windows.
type StateRepository interface {
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// EventPublisher emits domain events for loosely-coupled consumers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SheetsWriter mirrors the user table into an external spreadsheet.
type SheetsWriter interface {
	UpdateUsersSheet(ctx context.Context, users []*models.User) error
}

// SyncWorker schedules background user-table synchronization.
type SyncWorker interface {
	EnqueueUserSync(ctx context.Context) error
}
