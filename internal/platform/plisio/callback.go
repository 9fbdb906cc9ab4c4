package plisio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
)

const verifyHashField = "verify_hash"

// VerifyCallback checks the HMAC the gateway attaches to push callbacks:
// SHA1-HMAC over the JSON of the payload without verify_hash, keyed with the
// API key. Payloads without a hash never verify.
//
// json.Marshal sorts map keys, which matches the provider's canonical form.
func (c *Client) VerifyCallback(payload map[string]any) bool {
	if len(payload) == 0 {
		return false
	}
	got, ok := payload[verifyHashField].(string)
	if !ok || got == "" {
		return false
	}

	rest := make(map[string]any, len(payload)-1)
	for k, v := range payload {
		if k == verifyHashField {
			continue
		}
		rest[k] = v
	}
	body, err := json.Marshal(rest)
	if err != nil {
		return false
	}

	mac := hmac.New(sha1.New, []byte(c.apiKey))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(got))
}
