// Package telegram validates Telegram Mini App initData payloads.
//
// A payload is a URL-encoded query string signed by Telegram with a key
// derived from the bot token:
//
//	secret = HMAC_SHA256(key="WebAppData", msg=botToken)
//	hash   = hex(HMAC_SHA256(key=secret, msg=checkString))
//
// where checkString is every field except hash, sorted by key and joined
// as "key=value" lines.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/weddingtma/internal/common"
)

var (
	ErrMissingHash  = fmt.Errorf("%w: hash is missing", common.ErrSignatureInvalid)
	ErrHashMismatch = fmt.Errorf("%w: hash mismatch", common.ErrSignatureInvalid)
	ErrExpired      = fmt.Errorf("%w: auth_date is too old", common.ErrSignatureInvalid)

	ErrMissingUser = fmt.Errorf("%w: user is missing", common.ErrMalformedIdentity)
	ErrInvalidUser = fmt.Errorf("%w: user is invalid", common.ErrMalformedIdentity)
)

const webAppDataKey = "WebAppData"

// WebAppUser is the "user" field of initData.
type WebAppUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	IsPremium    bool   `json:"is_premium"`
	PhotoURL     string `json:"photo_url"`
}

// InitData is a verified payload.
type InitData struct {
	User       WebAppUser
	AuthDate   time.Time
	QueryID    string
	StartParam string
}

// Verifier checks payloads against one or more bot tokens. It is safe for
// concurrent use.
type Verifier struct {
	keys   [][]byte
	maxAge time.Duration
	now    func() time.Time
}

// Option customises a Verifier.
type Option func(*Verifier)

// WithMaxAge rejects payloads whose auth_date is older than d. Zero disables
// the check.
func WithMaxAge(d time.Duration) Option {
	return func(v *Verifier) { v.maxAge = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier derives a secret for each bot token. Any of them may have
// signed a payload, which lets a bot token be rotated without downtime.
func NewVerifier(botTokens []string, opts ...Option) (*Verifier, error) {
	v := &Verifier{now: time.Now}
	for _, t := range botTokens {
		if t == "" {
			continue
		}
		v.keys = append(v.keys, deriveKey(t))
	}
	if len(v.keys) == 0 {
		return nil, fmt.Errorf("%w: no bot token configured", common.ErrConfiguration)
	}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

func deriveKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(webAppDataKey))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

func checkString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values.Get(k)
	}
	return strings.Join(lines, "\n")
}

func sign(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func parse(raw string) (url.Values, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedIdentity, err)
	}
	return values, nil
}

func (v *Verifier) checkSignature(values url.Values) error {
	got := values.Get("hash")
	if got == "" {
		return ErrMissingHash
	}

	data := checkString(values)
	for _, key := range v.keys {
		want := hex.EncodeToString(sign(key, data))
		if hmac.Equal([]byte(want), []byte(got)) {
			return nil
		}
	}
	return ErrHashMismatch
}

// Valid reports whether raw carries a signature made with any configured
// bot token. It does not look at the user or auth_date fields.
func (v *Verifier) Valid(raw string) bool {
	values, err := parse(raw)
	if err != nil {
		return false
	}
	return v.checkSignature(values) == nil
}

// Verify checks the signature of raw and, when it holds, extracts the
// Telegram user. Errors wrap common.ErrSignatureInvalid or
// common.ErrMalformedIdentity.
func (v *Verifier) Verify(raw string) (*InitData, error) {
	values, err := parse(raw)
	if err != nil {
		return nil, err
	}
	if err := v.checkSignature(values); err != nil {
		return nil, err
	}

	data := &InitData{
		QueryID:    values.Get("query_id"),
		StartParam: values.Get("start_param"),
	}

	if s := values.Get("auth_date"); s != "" {
		if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
			data.AuthDate = time.Unix(sec, 0)
		}
	}
	if v.maxAge > 0 {
		if data.AuthDate.IsZero() || v.now().Sub(data.AuthDate) > v.maxAge {
			return nil, ErrExpired
		}
	}

	rawUser := values.Get("user")
	if rawUser == "" {
		return nil, ErrMissingUser
	}
	if err := json.Unmarshal([]byte(rawUser), &data.User); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	if data.User.ID == 0 {
		return nil, ErrInvalidUser
	}

	return data, nil
}

// Sign returns values encoded as initData and signed with botToken, the
// way Telegram would produce it. An existing hash field is replaced.
func Sign(values url.Values, botToken string) string {
	if values == nil {
		values = url.Values{}
	}
	out := make(url.Values, len(values)+1)
	for k, vs := range values {
		if k == "hash" {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	out.Set("hash", hex.EncodeToString(sign(deriveKey(botToken), checkString(out))))
	return out.Encode()
}
