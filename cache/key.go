package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/c360/agentbridge/message"
)

// keyDigestLen is the number of hex characters of the digest kept in the
// display key. 16 hex chars (64 bits) keeps keys short while making
// collisions between distinct normalized messages negligible.
const keyDigestLen = 16

// GenerateKey produces the deterministic cache key for a message translated
// in a direction: "{direction}:{16-hex-prefix-of-sha256}". The digest covers
// the normalized message (id and timestamp stripped), the direction, the
// session id, and a coarse shadow-state-size signal, so semantically
// identical requests collide regardless of envelope metadata while distinct
// sessions stay separate. The direction is an explicit parameter, never
// inferred from payload shape.
func GenerateKey(msg *message.ProtocolMessage, direction message.Direction, sessionID string, shadowStateSize int) string {
	material := struct {
		Message         *message.ProtocolMessage `json:"message"`
		Direction       string                   `json:"direction"`
		SessionID       string                   `json:"sessionId,omitempty"`
		ShadowStateSize int                      `json:"shadowStateSize"`
	}{
		Message:         msg.Normalized(),
		Direction:       direction.String(),
		SessionID:       sessionID,
		ShadowStateSize: coarseSize(shadowStateSize),
	}

	data, err := json.Marshal(material)
	if err != nil {
		data = []byte(err.Error())
	}
	sum := sha256.Sum256(data)
	return direction.String() + ":" + hex.EncodeToString(sum[:])[:keyDigestLen]
}

// coarseSize buckets the shadow-state size so minor growth does not defeat
// caching within a session.
func coarseSize(n int) int {
	switch {
	case n == 0:
		return 0
	case n <= 10:
		return 10
	case n <= 50:
		return 50
	default:
		return 100
	}
}

// encodeKVKey maps a canonical cache key onto the character set NATS KV
// accepts (no ':' or '>'). The mapping is deterministic and injective for
// keys produced by GenerateKey.
func encodeKVKey(key string) string {
	key = strings.ReplaceAll(key, "->", "_")
	key = strings.ReplaceAll(key, ":", ".")
	return key
}

// matchPattern reports whether key matches an invalidation pattern. A
// trailing '*' matches any suffix; otherwise the match is exact.
func matchPattern(key, pattern string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}
	return key == pattern
}
