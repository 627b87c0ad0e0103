package model

import "time"

// LinkedVia records how a session was authenticated.
type LinkedVia string

const (
	LinkedViaCode    LinkedVia = "code"
	LinkedViaLogin   LinkedVia = "login"
	LinkedViaUnknown LinkedVia = "unknown"
)

// Session is the persisted authentication state for one Telegram user.
// It is serialized as JSON both into the sessions table and into the
// flat-file fallback store.
type Session struct {
	TelegramUserID int64      `json:"telegram_user_id"`
	Authenticated  bool       `json:"authenticated"`
	LinkedVia      LinkedVia  `json:"linked_via"`
	BotToken       string     `json:"bot_token,omitempty"`
	TokenExpires   *time.Time `json:"token_expires,omitempty"`
	UserData       UserData   `json:"user_data"`
}

// UserData carries identity details attached to a session.
type UserData struct {
	Name             string `json:"name,omitempty"`
	TelegramUsername string `json:"telegram_username,omitempty"`
	WebsiteUserID    string `json:"website_user_id,omitempty"`
	Email            string `json:"email,omitempty"`
}

// Expired reports whether the stored token has passed its expiry.
// A session without an expiry timestamp never expires locally; the
// website rejects a stale token on its own.
func (s Session) Expired(now time.Time) bool {
	return s.TokenExpires != nil && now.After(*s.TokenExpires)
}

// Live reports whether the session can authorize API calls right now.
func (s Session) Live(now time.Time) bool {
	return s.Authenticated && !s.Expired(now)
}

// SessionRecord is a row of the sessions table: the session serialized
// as one JSON blob keyed by Telegram user id.
type SessionRecord struct {
	TelegramUserID int64  `gorm:"primaryKey"`
	Data           string `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName keeps the table name used by earlier bot revisions.
func (SessionRecord) TableName() string { return "sessions" }

// LinkedUser mirrors session identity into a flat reporting table.
// Writes to it are best effort and never fail the session upsert.
type LinkedUser struct {
	TelegramUserID int64 `gorm:"primaryKey"`
	WebsiteUserID  string
	Username       string
	BotToken       string
	TokenExpires   *time.Time
	Linked         bool
	LastSeen       time.Time
	CreatedAt      time.Time
}

func (LinkedUser) TableName() string { return "telegram_users" }

// CommandUsage is an append-only analytics record of one command invocation.
type CommandUsage struct {
	ID             uint `gorm:"primaryKey"`
	TelegramUserID int64
	Command        string
	Success        bool `gorm:"default:true"`
	CreatedAt      time.Time
}

func (CommandUsage) TableName() string { return "command_usage" }
