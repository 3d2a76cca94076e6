package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fieldSeparator joins the signed fields, e.g. "<order_id>|<payment_id>".
const fieldSeparator = "|"

// MessageSigner produces and checks hex HMAC-SHA256 tags over a list of
// fields. The zero value has no key and rejects every signature.
type MessageSigner struct {
	key []byte
}

func NewMessageSigner(secret string) MessageSigner {
	return MessageSigner{key: []byte(secret)}
}

func (s MessageSigner) mac(fields []string) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(strings.Join(fields, fieldSeparator)))
	return h.Sum(nil)
}

// Sign returns the lowercase hex tag.
func (s MessageSigner) Sign(fields ...string) string {
	return hex.EncodeToString(s.mac(fields))
}

// Verify compares signature with the expected tag in constant time. Hex
// case and surrounding whitespace are ignored.
func (s MessageSigner) Verify(signature string, fields ...string) bool {
	if len(s.key) == 0 {
		return false
	}
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(given) != sha256.Size {
		return false
	}
	return hmac.Equal(s.mac(fields), given)
}
