package auth

import (
	"context"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Session tokens live for an hour, the same horizon as the document cache.
const sessionTTLSeconds = 3600

// setSessionScript writes the token→user and user→token keys in a single
// round trip. If the user already holds a live token for the room, the old
// token key is deleted first — at most one valid token per (room, user)
// pair at any time, with no lost-update race between concurrent
// authentications for the same user.
var setSessionScript = redis.NewScript(`
local token_key = KEYS[1]
local user_key = KEYS[2]
local token = ARGV[1]
local user_id = ARGV[2]
local ttl = tonumber(ARGV[3])
local token_prefix = ARGV[4]

local old_token = redis.call('GET', user_key)
if old_token and old_token ~= token then
  redis.call('DEL', token_prefix .. old_token)
end

redis.call('SET', token_key, user_id, 'EX', ttl)
redis.call('SET', user_key, token, 'EX', ttl)
return 'OK'
`)

// SessionCache tracks live websocket session tokens for one room. Every key
// is namespaced by room name, so one document's session state never touches
// another's.
type SessionCache struct {
	room   string
	client *redis.Client
}

func NewSessionCache(room string, client *redis.Client) *SessionCache {
	return &SessionCache{room: room, client: client}
}

func (s *SessionCache) baseKey() string {
	return "ws_auth_" + s.room + "__"
}

func (s *SessionCache) tokenKey(token string) string {
	return s.baseKey() + "token_" + token
}

func (s *SessionCache) userKey(userID int64) string {
	return s.baseKey() + "user_" + strconv.FormatInt(userID, 10)
}

// IsAuthenticated resolves a session token to the user it was issued for.
// An absent or unparsable entry means not authenticated.
func (s *SessionCache) IsAuthenticated(ctx context.Context, token string) (int64, bool) {
	val, err := s.client.Get(ctx, s.tokenKey(token)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Session] Token lookup failed in room %s: %v", s.room, err)
		}
		return 0, false
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return userID, true
}

// AddAuthenticatedUser issues token as the user's single live session token
// for this room. Runs as one atomic script; see setSessionScript.
func (s *SessionCache) AddAuthenticatedUser(ctx context.Context, token string, userID int64) error {
	keys := []string{s.tokenKey(token), s.userKey(userID)}
	uid := strconv.FormatInt(userID, 10)

	err := setSessionScript.Run(ctx, s.client, keys, token, uid, sessionTTLSeconds, s.baseKey()+"token_").Err()
	if err != nil {
		log.Printf("[Session] Failed to store session for user %d in room %s: %v", userID, s.room, err)
	}
	return err
}
