package voice

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the request-body HMAC on control-plane calls.
const SignatureHeader = "X-Voice-Signature"

// Sign returns hex(HMAC-SHA256(body, key)). The platform recomputes it over
// the exact bytes sent, so callers must sign the serialized payload they POST.
func Sign(body []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
