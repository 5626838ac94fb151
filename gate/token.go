package gate

import (
	"crypto/subtle"
	"time"

	jsoniter "github.com/json-iterator/go"

	"riskgate/tokencrypto"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// clockSkew is how far in the future a token's issue time may lie.
const clockSkew = time.Minute

// TokenName is the cookie or query argument that carries a verification token.
const TokenName = "captcha"

type tokenPayload struct {
	IssuedAt int64  `json:"issued_at"`
	IPKey    string `json:"ip_key"`
	UAKey    string `json:"ua_key"`
}

// TokenIssuer creates and checks verification tokens. A token is bound to the client address and
// user agent it was issued for, by keyed hash, so it carries neither in the clear.
type TokenIssuer struct {
	crypto *tokencrypto.SymmetricCrypto
	hasher *tokencrypto.KeyedHasher
}

// NewTokenIssuer creates a TokenIssuer from the server secret.
func NewTokenIssuer(secret string) (t *TokenIssuer, err error) {
	c, err := tokencrypto.NewSymmetricCrypto(secret, tokencrypto.DefaultSaltLength)
	if err != nil {
		return
	}

	t = &TokenIssuer{crypto: c, hasher: tokencrypto.NewKeyedHasher([]byte(secret))}
	return
}

// Issue returns a token for a client that has just passed a challenge.
func (t *TokenIssuer) Issue(clientIP string, userAgent string, now time.Time) (token string, err error) {
	payload, err := json.Marshal(tokenPayload{
		IssuedAt: now.Unix(),
		IPKey:    t.hasher.Sum(clientIP),
		UAKey:    t.hasher.Sum(userAgent),
	})
	if err != nil {
		return
	}

	return t.crypto.Encrypt(string(payload))
}

// Valid reports whether token was issued to this client no longer than maxAge ago.
// Any decryption or decoding failure means the token is not valid.
func (t *TokenIssuer) Valid(token string, clientIP string, userAgent string, now time.Time, maxAge time.Duration) bool {
	if token == "" {
		return false
	}

	plaintext, err := t.crypto.Decrypt(token)
	if err != nil {
		return false
	}

	var p tokenPayload
	if err = json.Unmarshal([]byte(plaintext), &p); err != nil {
		return false
	}

	age := now.Sub(time.Unix(p.IssuedAt, 0))
	if age < -clockSkew || age > maxAge {
		return false
	}

	ipOK := subtle.ConstantTimeCompare([]byte(p.IPKey), []byte(t.hasher.Sum(clientIP)))
	uaOK := subtle.ConstantTimeCompare([]byte(p.UAKey), []byte(t.hasher.Sum(userAgent)))
	return ipOK&uaOK == 1
}
