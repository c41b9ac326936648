package alfabank

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Callback checksum scheme: the gateway signs the canonicalized parameter
// string with HMAC-SHA256 over the shared secret and sends it uppercase-hex
// in the checksum parameter. sign_alias travels alongside but is never part
// of the signed string.

// Checksum computes the expected signature for a callback parameter set.
// Canonical form: drop checksum/sign_alias, sort keys lexicographically,
// percent-decode values that still carry encoding, then concatenate
// "key;value;" for every pair.
func Checksum(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "checksum" || k == "sign_alias" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := params[k]
		if strings.Contains(v, "%") {
			if decoded, err := url.QueryUnescape(v); err == nil {
				v = decoded
			}
		}
		sb.WriteString(k)
		sb.WriteString(";")
		sb.WriteString(v)
		sb.WriteString(";")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sb.String()))
	return strings.ToUpper(fmt.Sprintf("%x", mac.Sum(nil)))
}

// VerifyChecksum reports whether the supplied checksum matches the
// parameter set. Comparison is constant-time.
func VerifyChecksum(params map[string]string, checksum, secret string) bool {
	expected := Checksum(params, secret)
	return hmac.Equal([]byte(strings.ToUpper(checksum)), []byte(expected))
}
