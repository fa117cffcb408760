package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// DefaultSessionSlot is the well-known slot key the serialized session lives under.
const DefaultSessionSlot = "jm_auth"

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Slots  ports.SlotStore // Required: backing key/value slot
	Key    string          // Optional: slot key, defaults to DefaultSessionSlot
	Logger *slog.Logger    // Optional
}

// SessionStore reads and writes the serialized session under a single slot.
// Load fails open to the guest session and Save never reports errors; losing
// persistence only means the user has to log in again.
type SessionStore struct {
	slots  ports.SlotStore
	key    string
	logger *slog.Logger
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(opts SessionStoreOptions) *SessionStore {
	if opts.Slots == nil {
		panic("SessionStore: Slots is required")
	}
	key := opts.Key
	if key == "" {
		key = DefaultSessionSlot
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{slots: opts.Slots, key: key, logger: logger}
}

// Key returns the slot key used by the store.
func (s *SessionStore) Key() string { return s.key }

// Load returns the persisted session, or the guest session when the slot is
// missing, unreadable, or holds anything other than a consistent session.
func (s *SessionStore) Load(ctx context.Context) domainauth.Session {
	raw, err := s.slots.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ports.ErrSlotNotFound) {
			s.logger.WarnContext(ctx, "session store read failed", "key", s.key, "error", err)
		}
		return domainauth.Guest()
	}

	sess, err := DecodeSession(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding malformed persisted session", "key", s.key, "error", err)
		return domainauth.Guest()
	}
	return sess
}

// Save writes sess to the slot. Failures are logged and swallowed.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) {
	data, err := EncodeSession(sess)
	if err != nil {
		s.logger.WarnContext(ctx, "session encode failed", "key", s.key, "error", err)
		return
	}
	if err := s.slots.Set(ctx, s.key, data); err != nil {
		s.logger.WarnContext(ctx, "session store write failed", "key", s.key, "error", err)
	}
}

// persistedSession is the on-disk layout of a session:
//
//	{"role": "guest"|"user"|"agent"|"admin", "token": string|null, "user": {...}|null}
type persistedSession struct {
	Role  string           `json:"role"`
	Token *string          `json:"token"`
	User  *domainauth.User `json:"user"`
}

// EncodeSession serializes sess in the persisted layout.
func EncodeSession(sess domainauth.Session) ([]byte, error) {
	sess = sess.Normalize()
	p := persistedSession{Role: string(sess.Role), User: sess.User}
	if sess.Token != "" {
		tok := sess.Token
		p.Token = &tok
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}

// DecodeSession parses the persisted layout. Missing fields decode as null and
// sessions that break the role/token coupling decode as guest. Only
// syntactically invalid content is reported as an error.
func DecodeSession(data []byte) (domainauth.Session, error) {
	var p persistedSession
	if err := json.Unmarshal(data, &p); err != nil {
		return domainauth.Guest(), fmt.Errorf("unmarshal session: %w", err)
	}

	role, ok := domainauth.ParseRole(p.Role)
	if !ok {
		return domainauth.Guest(), nil
	}
	sess := domainauth.Session{Role: role, User: p.User}
	if p.Token != nil {
		sess.Token = *p.Token
	}
	return sess.Normalize(), nil
}
