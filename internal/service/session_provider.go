package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/models"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
)

// Role change actions.
const (
	RoleGranted = "granted"
	RoleRevoked = "revoked"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type roleLookup interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

type roleEntry struct {
	isAdmin bool
	expires time.Time
}

// SessionProvider resolves bearer tokens into sessions and keeps a short lived
// cache of admin lookups. Role changes published on the Redis channel evict
// cached entries on every instance.
type SessionProvider struct {
	tokens  tokenValidator
	roles   roleLookup
	redis   *redis.Client
	channel string
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]roleEntry

	lifecycle sync.Mutex
	pubsub    *redis.PubSub
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSessionProvider constructs a SessionProvider. client may be nil, in which
// case role changes only affect the local cache.
func NewSessionProvider(tokens tokenValidator, roles roleLookup, client *redis.Client, channel string, ttl time.Duration, logger *zap.Logger) *SessionProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "auth:roles"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SessionProvider{
		tokens:  tokens,
		roles:   roles,
		redis:   client,
		channel: channel,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		cache:   make(map[string]roleEntry),
	}
}

// Resolve returns the session for an Authorization header value. Missing or
// invalid tokens yield an unauthenticated session; role lookup failures are errors.
func (p *SessionProvider) Resolve(ctx context.Context, authorization string) (*models.Session, error) {
	token := bearerToken(authorization)
	if token == "" {
		return &models.Session{State: models.SessionUnauthenticated}, nil
	}
	claims, err := p.tokens.ValidateToken(token)
	if err != nil {
		return &models.Session{State: models.SessionUnauthenticated}, nil
	}

	isAdmin, err := p.IsAdmin(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, appErrors.ErrInternal.Message)
	}
	session := &models.Session{
		State:   models.SessionAuthenticated,
		IsAdmin: isAdmin,
		Claims:  claims,
		User: &models.UserInfo{
			ID:       claims.UserID,
			Email:    claims.Email,
			FullName: claims.FullName,
			IsAdmin:  isAdmin,
		},
	}
	if isAdmin {
		session.State = models.SessionAdmin
	}
	return session, nil
}

// IsAdmin reports whether userID holds the admin role, consulting the cache first.
func (p *SessionProvider) IsAdmin(ctx context.Context, userID string) (bool, error) {
	now := p.now()
	p.mu.RLock()
	entry, ok := p.cache[userID]
	p.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.isAdmin, nil
	}

	isAdmin, err := p.roles.HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	p.mu.Lock()
	p.cache[userID] = roleEntry{isAdmin: isAdmin, expires: now.Add(p.ttl)}
	p.mu.Unlock()
	return isAdmin, nil
}

// Invalidate drops the cached role lookup for userID.
func (p *SessionProvider) Invalidate(userID string) {
	p.mu.Lock()
	delete(p.cache, userID)
	p.mu.Unlock()
}

// PublishRoleChange evicts the local entry and notifies other instances.
func (p *SessionProvider) PublishRoleChange(ctx context.Context, change models.RoleChange) error {
	p.Invalidate(change.UserID)
	if p.redis == nil {
		return nil
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if err := p.redis.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish role change: %w", err)
	}
	return nil
}

// Start subscribes to role change notifications. It is a no-op without Redis.
func (p *SessionProvider) Start(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.redis == nil || p.pubsub != nil {
		return nil
	}

	pubsub := p.redis.Subscribe(ctx, p.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p.pubsub = pubsub
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.listen(runCtx, pubsub.Channel(), p.done)
	p.logger.Info("session provider subscribed", zap.String("channel", p.channel))
	return nil
}

// Close unsubscribes and waits for the listener to exit.
func (p *SessionProvider) Close() error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.pubsub == nil {
		return nil
	}
	p.cancel()
	err := p.pubsub.Close()
	<-p.done
	p.pubsub = nil
	p.cancel = nil
	p.done = nil
	if err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

func (p *SessionProvider) listen(ctx context.Context, messages <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			p.handleMessage(msg.Payload)
		}
	}
}

func (p *SessionProvider) handleMessage(payload string) {
	var change models.RoleChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil || change.UserID == "" {
		p.logger.Warn("ignoring malformed role change", zap.String("payload", payload))
		return
	}
	p.Invalidate(change.UserID)
	p.logger.Debug("role cache invalidated", zap.String("user_id", change.UserID), zap.String("action", change.Action))
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
