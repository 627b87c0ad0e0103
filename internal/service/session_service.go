package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"kycut-bot/internal/httpapi"
	"kycut-bot/internal/model"
)

var (
	// ErrInvalidCode is returned before any network call when a linking
	// code does not have exactly 8 characters.
	ErrInvalidCode = errors.New("linking code must be exactly 8 characters")

	// ErrNotAuthenticated marks operations that need a linked session.
	ErrNotAuthenticated = errors.New("authentication required")
)

const (
	cacheTTL      = 30 * time.Minute
	cacheCapacity = 4096
)

// SessionStore is the persistence capability SessionService depends on.
// *repository.SessionStore satisfies it.
type SessionStore interface {
	Set(ctx context.Context, userID int64, sess model.Session) error
	Get(ctx context.Context, userID int64) (model.Session, bool, error)
	Delete(ctx context.Context, userID int64) error
	SetLink(ctx context.Context, userID int64, websiteUserID string) error
	LogCommand(ctx context.Context, userID int64, command string, success bool)
	LoadAll(ctx context.Context) (map[int64]model.Session, error)
}

// SessionService owns the per-user authentication state machine:
// unauthenticated -> linked via code | linked via login -> unauthenticated.
// Expiry is evaluated lazily on each authenticated operation. A bounded
// TTL cache fronts the store; the store stays authoritative and every
// cache miss falls through to it.
type SessionService struct {
	store SessionStore
	api   *httpapi.Client
	cache *ttlcache.Cache[int64, model.Session]
	now   func() time.Time
}

func NewSessionService(store SessionStore, api *httpapi.Client) *SessionService {
	cache := ttlcache.New[int64, model.Session](
		ttlcache.WithTTL[int64, model.Session](cacheTTL),
		ttlcache.WithCapacity[int64, model.Session](cacheCapacity),
	)
	go cache.Start()

	return &SessionService{
		store: store,
		api:   api,
		cache: cache,
		now:   time.Now,
	}
}

// Close stops the cache eviction loop started by NewSessionService.
// Call once at shutdown.
func (s *SessionService) Close() {
	s.cache.Stop()
}

// Hydrate preloads the cache from the persistent store at startup.
func (s *SessionService) Hydrate(ctx context.Context) error {
	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	for id, sess := range all {
		s.cache.Set(id, sess, ttlcache.DefaultTTL)
	}
	log.Printf("[info] loaded %d persisted sessions", len(all))
	return nil
}

// Session returns the user's session, consulting the cache first and
// falling back to the store on a miss.
func (s *SessionService) Session(ctx context.Context, userID int64) (model.Session, bool) {
	if item := s.cache.Get(userID); item != nil {
		return item.Value(), true
	}
	sess, ok, err := s.store.Get(ctx, userID)
	if err != nil {
		log.Printf("[warn] load session %d: %v", userID, err)
		return model.Session{}, false
	}
	if ok {
		s.cache.Set(userID, sess, ttlcache.DefaultTTL)
	}
	return sess, ok
}

// IsAuthenticated reports whether the user has a live session. A stored
// session whose token expiry has passed counts as unauthenticated.
func (s *SessionService) IsAuthenticated(ctx context.Context, userID int64) bool {
	sess, ok := s.Session(ctx, userID)
	if !ok {
		return false
	}
	if sess.Authenticated && sess.Expired(s.now()) {
		log.Printf("[info] token expired for user %d", userID)
		return false
	}
	return sess.Authenticated
}

type linkPayload struct {
	Code             string `json:"code"`
	TelegramUserID   int64  `json:"telegramUserId"`
	TelegramUsername string `json:"telegramUsername,omitempty"`
}

type tokenResponse struct {
	UserID    string `json:"userId"`
	BotToken  string `json:"botToken"`
	ExpiresAt string `json:"expiresAt"`
}

// Link exchanges an 8-character linking code for a bot token. The code
// length is validated locally before any network call. After a
// successful link it best-effort resolves the website user id via the
// ensure-session endpoint.
func (s *SessionService) Link(ctx context.Context, userID int64, telegramUsername, code string) (model.Session, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 8 {
		return model.Session{}, ErrInvalidCode
	}

	res := s.api.Do(ctx, httpapi.Request{
		Endpoint: httpapi.EndpointLink,
		Method:   "POST",
		Body: linkPayload{
			Code:             code,
			TelegramUserID:   userID,
			TelegramUsername: telegramUsername,
		},
	})
	if !res.Success {
		return model.Session{}, fmt.Errorf("%s", res.Error)
	}

	var token tokenResponse
	if err := res.Decode(&token); err != nil {
		return model.Session{}, err
	}

	name := telegramUsername
	if name == "" {
		name = fmt.Sprintf("User%d", userID)
	}
	sess := model.Session{
		TelegramUserID: userID,
		Authenticated:  true,
		LinkedVia:      model.LinkedViaCode,
		BotToken:       token.BotToken,
		TokenExpires:   parseExpiry(token.ExpiresAt),
		UserData: model.UserData{
			Name:             name,
			TelegramUsername: telegramUsername,
		},
	}
	if err := s.persist(ctx, userID, sess); err != nil {
		return model.Session{}, err
	}

	if refreshed, err := s.EnsureSession(ctx, sess); err != nil {
		log.Printf("[warn] ensure-session after link for %d: %v", userID, err)
	} else {
		sess = refreshed
	}

	return sess, nil
}

type loginPayload struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

type loginResponse struct {
	BotToken  string `json:"botToken"`
	ExpiresAt string `json:"expiresAt"`
	User      struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

// Login authenticates with website credentials and stores the issued
// bot token.
func (s *SessionService) Login(ctx context.Context, userID int64, telegramUsername, emailOrUsername, password string) (model.Session, error) {
	res := s.api.Do(ctx, httpapi.Request{
		Endpoint: httpapi.EndpointLogin,
		Method:   "POST",
		Body:     loginPayload{EmailOrUsername: emailOrUsername, Password: password},
	})
	if !res.Success {
		return model.Session{}, fmt.Errorf("%s", res.Error)
	}

	var login loginResponse
	if err := res.Decode(&login); err != nil {
		return model.Session{}, err
	}

	name := login.User.Name
	if name == "" {
		name = emailOrUsername
	}
	email := login.User.Email
	if email == "" && strings.Contains(emailOrUsername, "@") {
		email = emailOrUsername
	}
	sess := model.Session{
		TelegramUserID: userID,
		Authenticated:  true,
		LinkedVia:      model.LinkedViaLogin,
		BotToken:       login.BotToken,
		TokenExpires:   parseExpiry(login.ExpiresAt),
		UserData: model.UserData{
			Name:             name,
			TelegramUsername: telegramUsername,
			WebsiteUserID:    login.User.ID,
			Email:            email,
		},
	}
	if err := s.persist(ctx, userID, sess); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Logout clears the session everywhere. It is idempotent.
func (s *SessionService) Logout(ctx context.Context, userID int64) error {
	s.cache.Delete(userID)
	return s.store.Delete(ctx, userID)
}

type ensurePayload struct {
	TelegramUserID int64 `json:"telegramUserId"`
}

// EnsureSession asks the website to resolve the linked website user id
// and refresh the bot token. The updated session is persisted.
func (s *SessionService) EnsureSession(ctx context.Context, sess model.Session) (model.Session, error) {
	res := s.api.Do(ctx, httpapi.Request{
		Endpoint: httpapi.EndpointEnsureSession,
		Method:   "POST",
		Body:     ensurePayload{TelegramUserID: sess.TelegramUserID},
	})
	if !res.Success {
		return sess, fmt.Errorf("%s", res.Error)
	}

	var token tokenResponse
	if err := res.Decode(&token); err != nil {
		return sess, err
	}

	if token.UserID != "" {
		sess.UserData.WebsiteUserID = token.UserID
		if err := s.store.SetLink(ctx, sess.TelegramUserID, token.UserID); err != nil {
			log.Printf("[warn] persist link for %d: %v", sess.TelegramUserID, err)
		}
	}
	if token.BotToken != "" {
		sess.BotToken = token.BotToken
		sess.TokenExpires = parseExpiry(token.ExpiresAt)
	}
	if err := s.persist(ctx, sess.TelegramUserID, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// LogCommand records command usage; fire and forget.
func (s *SessionService) LogCommand(ctx context.Context, userID int64, command string, success bool) {
	s.store.LogCommand(ctx, userID, command, success)
}

func (s *SessionService) persist(ctx context.Context, userID int64, sess model.Session) error {
	if err := s.store.Set(ctx, userID, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.cache.Set(userID, sess, ttlcache.DefaultTTL)
	return nil
}

func parseExpiry(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}
