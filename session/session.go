package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoSession is returned for a missing, tampered, expired or cleared session.
var ErrNoSession = errors.New("no session")

const (
	fieldUserID = "user_id"
	fieldFlash  = "flash"
)

// Session is an authenticated browser session.
type Session struct {
	ID     string
	UserID uint
	Token  string
}

// Store keeps session records in redis under session:<id>. The client only
// holds a signed token naming the record.
type Store struct {
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
}

func NewStore(rdb *redis.Client, secret string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, secret: []byte(secret), ttl: ttl}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Create starts a new session for userID and returns it with its signed token.
func (s *Store) Create(ctx context.Context, userID uint) (*Session, error) {
	id := uuid.NewString()
	key := sessionKey(id)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldUserID, userID)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	claims := jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Session{ID: id, UserID: userID, Token: token}, nil
}

// Resolve verifies token and loads the session it names.
func (s *Store) Resolve(ctx context.Context, token string) (*Session, error) {
	id, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	raw, err := s.rdb.HGet(ctx, sessionKey(id), fieldUserID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return &Session{ID: id, UserID: uint(userID), Token: token}, nil
}

// Destroy removes the session named by token. Unknown or invalid tokens are
// not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	id, err := s.parse(token)
	if err != nil {
		return nil
	}
	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SetFlash stores a one-shot message shown on the next page view.
func (s *Store) SetFlash(ctx context.Context, sess *Session, message string) error {
	if err := s.rdb.HSet(ctx, sessionKey(sess.ID), fieldFlash, message).Err(); err != nil {
		return fmt.Errorf("failed to set flash: %w", err)
	}
	return nil
}

// PopFlash returns and clears the pending flash message, if any.
func (s *Store) PopFlash(ctx context.Context, sess *Session) (string, error) {
	key := sessionKey(sess.ID)

	var get *redis.StringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGet(ctx, key, fieldFlash)
		pipe.HDel(ctx, key, fieldFlash)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to pop flash: %w", err)
	}

	message, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return message, err
}

func (s *Store) parse(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.ID == "" {
		return "", ErrNoSession
	}
	return claims.ID, nil
}

func sessionKey(id string) string {
	return "session:" + id
}
