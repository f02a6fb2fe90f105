package models

const (
	// MemberStatus values as reported by the Telegram Bot API for
	// getChatMember. Creator/administrator/member count as subscribed.
	MemberStatusCreator       = "creator"
	MemberStatusAdministrator = "administrator"
	MemberStatusMember        = "member"
	MemberStatusLeft          = "left"
	MemberStatusKicked        = "kicked"
	MemberStatusRestricted    = "restricted"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах

	// RecentUsersLimit сколько последних пользователей показывать в /users
	RecentUsersLimit = 10
)

// IsSubscribedStatus reports whether a chat-member status grants access
// to the gated content.
func IsSubscribedStatus(status string) bool {
	switch status {
	case MemberStatusCreator, MemberStatusAdministrator, MemberStatusMember:
		return true
	}
	return false
}
