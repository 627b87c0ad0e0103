package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kycut-bot/internal/model"
)

// SessionStore persists Telegram user sessions. SQLite is the primary
// backend; when it cannot be opened at startup the store switches to a
// JSON flat file for the rest of the process lifetime. That decision is
// made once in NewSessionStore and never re-attempted.
//
// The single mutex guards every mutating path because the embedded
// connection is shared across concurrent handler invocations; in file
// mode it additionally covers the whole read-modify-write cycle so
// concurrent upserts cannot drop each other's records.
type SessionStore struct {
	mu       sync.Mutex
	db       *gorm.DB
	jsonPath string
}

// NewSessionStore opens the SQLite store at dsn, falling back to the
// JSON file at jsonPath if the database is unavailable.
func NewSessionStore(dsn, jsonPath string) *SessionStore {
	db, err := NewDB(dsn)
	if err != nil {
		log.Printf("[warn] sqlite unavailable (%v); using JSON fallback %s", err, jsonPath)
		store := &SessionStore{jsonPath: jsonPath}
		if _, statErr := os.Stat(jsonPath); errors.Is(statErr, os.ErrNotExist) {
			if writeErr := store.writeAllFile(map[string]model.Session{}); writeErr != nil {
				log.Printf("[warn] create sessions file: %v", writeErr)
			}
		}
		return store
	}
	log.Println("[info] session database initialized")
	return &SessionStore{db: db, jsonPath: jsonPath}
}

// FileMode reports whether the store is running on the JSON fallback.
func (s *SessionStore) FileMode() bool { return s.db == nil }

// Set upserts the session for its Telegram user id. All fields are
// replaced in one statement. The linked-users mirror row is updated
// best effort; its failure never fails the primary write.
func (s *SessionStore) Set(ctx context.Context, userID int64, sess model.Session) error {
	sess.TelegramUserID = userID

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		all, err := s.readAllFile()
		if err != nil {
			return fmt.Errorf("read sessions file: %w", err)
		}
		all[strconv.FormatInt(userID, 10)] = sess
		return s.writeAllFile(all)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	record := model.SessionRecord{TelegramUserID: userID, Data: string(data)}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	mirror := model.LinkedUser{
		TelegramUserID: userID,
		WebsiteUserID:  sess.UserData.WebsiteUserID,
		Username:       sess.UserData.TelegramUsername,
		BotToken:       sess.BotToken,
		TokenExpires:   sess.TokenExpires,
		Linked:         sess.Authenticated,
		LastSeen:       time.Now(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "telegram_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"website_user_id", "username", "bot_token", "token_expires", "linked", "last_seen",
		}),
	}).Create(&mirror).Error; err != nil {
		log.Printf("[warn] update telegram_users mirror for %d: %v", userID, err)
	}

	return nil
}

// Get returns the stored session, or ok=false when none exists.
// A missing key is not an error.
func (s *SessionStore) Get(ctx context.Context, userID int64) (model.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		all, err := s.readAllFile()
		if err != nil {
			return model.Session{}, false, fmt.Errorf("read sessions file: %w", err)
		}
		sess, ok := all[strconv.FormatInt(userID, 10)]
		return sess, ok, nil
	}

	var record model.SessionRecord
	err := s.db.WithContext(ctx).First(&record, "telegram_user_id = ?", userID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.Session{}, false, nil
	case err != nil:
		return model.Session{}, false, fmt.Errorf("find session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(record.Data), &sess); err != nil {
		return model.Session{}, false, fmt.Errorf("decode session %d: %w", userID, err)
	}
	return sess, true, nil
}

// Delete removes the session. Deleting an absent id is not an error.
func (s *SessionStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		all, err := s.readAllFile()
		if err != nil {
			return fmt.Errorf("read sessions file: %w", err)
		}
		delete(all, strconv.FormatInt(userID, 10))
		return s.writeAllFile(all)
	}

	if err := s.db.WithContext(ctx).Delete(&model.SessionRecord{}, "telegram_user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SetLink stores the Telegram-to-website user mapping in the mirror table.
func (s *SessionStore) SetLink(ctx context.Context, userID int64, websiteUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		all, err := s.readAllFile()
		if err != nil {
			return fmt.Errorf("read sessions file: %w", err)
		}
		key := strconv.FormatInt(userID, 10)
		sess := all[key]
		sess.TelegramUserID = userID
		sess.UserData.WebsiteUserID = websiteUserID
		all[key] = sess
		return s.writeAllFile(all)
	}

	link := model.LinkedUser{
		TelegramUserID: userID,
		WebsiteUserID:  websiteUserID,
		Linked:         websiteUserID != "",
		LastSeen:       time.Now(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"website_user_id", "linked", "last_seen"}),
	}).Create(&link).Error; err != nil {
		return fmt.Errorf("upsert link: %w", err)
	}
	return nil
}

// GetLink returns the linked website user id, or ok=false when unknown.
func (s *SessionStore) GetLink(ctx context.Context, userID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		all, err := s.readAllFile()
		if err != nil {
			return "", false
		}
		sess, ok := all[strconv.FormatInt(userID, 10)]
		if !ok || sess.UserData.WebsiteUserID == "" {
			return "", false
		}
		return sess.UserData.WebsiteUserID, true
	}

	var link model.LinkedUser
	err := s.db.WithContext(ctx).First(&link, "telegram_user_id = ?", userID).Error
	if err != nil || link.WebsiteUserID == "" {
		return "", false
	}
	return link.WebsiteUserID, true
}

// LogCommand appends one command-usage record. Failures are logged and
// swallowed; analytics must never surface to the caller.
func (s *SessionStore) LogCommand(ctx context.Context, userID int64, command string, success bool) {
	if s.db == nil {
		return
	}
	usage := model.CommandUsage{TelegramUserID: userID, Command: command, Success: success}
	if err := s.db.WithContext(ctx).Create(&usage).Error; err != nil {
		log.Printf("[warn] log command usage: %v", err)
	}
}

// LoadAll returns every stored session keyed by Telegram user id,
// skipping rows that no longer decode.
func (s *SessionStore) LoadAll(ctx context.Context) (map[int64]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64]model.Session)

	if s.db == nil {
		all, err := s.readAllFile()
		if err != nil {
			return nil, fmt.Errorf("read sessions file: %w", err)
		}
		for key, sess := range all {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}
			out[id] = sess
		}
		return out, nil
	}

	var records []model.SessionRecord
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for _, record := range records {
		var sess model.Session
		if err := json.Unmarshal([]byte(record.Data), &sess); err != nil {
			log.Printf("[warn] skip undecodable session %d: %v", record.TelegramUserID, err)
			continue
		}
		out[record.TelegramUserID] = sess
	}
	return out, nil
}

func (s *SessionStore) readAllFile() (map[string]model.Session, error) {
	raw, err := os.ReadFile(s.jsonPath)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]model.Session{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]model.Session{}, nil
	}
	var all map[string]model.Session
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (s *SessionStore) writeAllFile(all map[string]model.Session) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return err
	}
	return os.WriteFile(s.jsonPath, raw, 0o644)
}
