package soap

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// WS-Security namespaces and type URIs, per the WSS UsernameToken Profile
// 1.0 (spec.md §4.7).
const (
	WSSENamespace = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	WSUNamespace  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"

	PasswordTypeText   = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText"
	PasswordTypeDigest = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordDigest"
	EncodingTypeBase64 = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"

	// DefaultTimestampTTL is the default Timestamp validity window.
	DefaultTimestampTTL = 300 * time.Second
)

// PasswordType selects plaintext or digest UsernameToken passwords.
type PasswordType int

const (
	PasswordText PasswordType = iota
	PasswordDigest
)

// UsernameTokenOptions configures UsernameToken.
type UsernameTokenOptions struct {
	PasswordType PasswordType
	// Now overrides the clock used for wsu:Created, for deterministic
	// tests; defaults to time.Now().UTC() when zero.
	Now time.Time
	// Nonce overrides the 16 random bytes used for digest passwords, for
	// deterministic tests; a CSPRNG-generated nonce is used when nil.
	Nonce []byte
}

func (o UsernameTokenOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now.UTC()
}

const iso8601 = "2006-01-02T15:04:05Z"

// UsernameToken builds a <wsse:Security><wsse:UsernameToken>...</...>
// header tree. With PasswordType == PasswordDigest it also emits a
// base64-encoded nonce and replaces the password with
// base64(SHA1(nonce ‖ created ‖ password)).
func UsernameToken(user, password string, opts UsernameTokenOptions) (*Element, error) {
	created := opts.now().Format(iso8601)

	security := NewElement()
	security.SetAttr("xmlns:wsse", WSSENamespace)
	security.SetAttr("xmlns:wsu", WSUNamespace)

	token := NewElement()
	token.SetOnce("wsse:Username", user)

	pw := NewElement()
	switch opts.PasswordType {
	case PasswordDigest:
		nonce := opts.Nonce
		if nonce == nil {
			nonce = make([]byte, 16)
			if _, err := rand.Read(nonce); err != nil {
				return nil, err
			}
		}
		digest := digestPassword(nonce, created, password)
		pw.SetOnce("#text", digest)
		pw.SetAttr("Type", PasswordTypeDigest)
		token.SetOnce("wsse:Password", pw)

		nonceElem := NewElement()
		nonceElem.SetOnce("#text", base64.StdEncoding.EncodeToString(nonce))
		nonceElem.SetAttr("EncodingType", EncodingTypeBase64)
		token.SetOnce("wsse:Nonce", nonceElem)
	default:
		pw.SetOnce("#text", password)
		pw.SetAttr("Type", PasswordTypeText)
		token.SetOnce("wsse:Password", pw)
	}

	token.SetOnce("wsu:Created", created)
	security.SetOnce("wsse:UsernameToken", token)

	root := NewElement()
	root.SetOnce("wsse:Security", security)
	return root, nil
}

// digestPassword computes base64(SHA1(nonce ‖ created ‖ password)), the
// WSS UsernameToken Profile 1.0 digest algorithm.
func digestPassword(nonce []byte, created, password string) string {
	h := sha1.New()
	h.Write(nonce)
	h.Write([]byte(created))
	h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// TimestampOptions configures Timestamp.
type TimestampOptions struct {
	Now time.Time
	TTL time.Duration
}

// Timestamp builds a <wsu:Timestamp> header tree with Created = now and
// Expires = now + ttl (default 300s).
func Timestamp(opts TimestampOptions) *Element {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTimestampTTL
	}

	ts := NewElement()
	ts.SetAttr("xmlns:wsu", WSUNamespace)
	ts.SetOnce("wsu:Created", now.Format(iso8601))
	ts.SetOnce("wsu:Expires", now.Add(ttl).Format(iso8601))

	root := NewElement()
	root.SetOnce("wsu:Timestamp", ts)
	return root
}

// UsernameTokenWithTimestamp builds the union of UsernameToken and
// Timestamp under one wsse:Security element, each child carrying a
// unique wsu:Id attribute.
func UsernameTokenWithTimestamp(user, password string, tokenOpts UsernameTokenOptions, tsOpts TimestampOptions) (*Element, error) {
	tokenRoot, err := UsernameToken(user, password, tokenOpts)
	if err != nil {
		return nil, err
	}
	tsRoot := Timestamp(tsOpts)

	security := NewElement()
	security.SetAttr("xmlns:wsse", WSSENamespace)
	security.SetAttr("xmlns:wsu", WSUNamespace)

	usernameTokenSec, _ := tokenRoot.Get("wsse:Security")
	usernameTokenElem := asElement(usernameTokenSec)
	utVal, _ := usernameTokenElem.Get("wsse:UsernameToken")
	ut := asElement(utVal)
	ut.SetAttr("wsu:Id", "UsernameToken-"+uuid.NewString())
	security.SetOnce("wsse:UsernameToken", ut)

	tsSec, _ := tsRoot.Get("wsu:Timestamp")
	ts := asElement(tsSec)
	ts.SetAttr("wsu:Id", "Timestamp-"+uuid.NewString())
	security.SetOnce("wsu:Timestamp", ts)

	root := NewElement()
	root.SetOnce("wsse:Security", security)
	return root, nil
}

// ValidateUsernameToken implements the server-side WSS validator: given a
// parsed wsse:Security header and the expected credentials, it returns
// nil on success or a *SecurityError describing the failure.
func ValidateUsernameToken(security *Element, expectedUser, expectedPassword string) error {
	if security == nil {
		return &SecurityError{Kind: SecMissingSecurityHeader}
	}
	tokenVal, ok := FindChildValue(security, "UsernameToken")
	if !ok {
		return &SecurityError{Kind: SecMissingSecurityHeader}
	}
	token := asElement(tokenVal)
	if token == nil {
		return &SecurityError{Kind: SecMissingSecurityHeader}
	}

	_, userVal, ok := FindChild(token, "Username")
	if !ok {
		return &SecurityError{Kind: SecInvalidCredentials}
	}
	user, _ := TextOf(userVal)
	if user != expectedUser {
		return &SecurityError{Kind: SecInvalidCredentials}
	}

	_, pwVal, ok := FindChild(token, "Password")
	if !ok {
		return &SecurityError{Kind: SecInvalidCredentials}
	}
	pwElem := asElement(pwVal)
	pwText, _ := TextOf(pwVal)
	pwType, _ := pwElem.Attr("Type")

	if pwType == PasswordTypeDigest {
		_, nonceVal, ok := FindChild(token, "Nonce")
		if !ok {
			return &SecurityError{Kind: SecInvalidCredentials}
		}
		nonceB64, _ := TextOf(nonceVal)
		nonce, err := base64.StdEncoding.DecodeString(nonceB64)
		if err != nil {
			return &SecurityError{Kind: SecInvalidPasswordDigest}
		}
		_, createdVal, ok := FindChild(token, "Created")
		if !ok {
			return &SecurityError{Kind: SecInvalidPasswordDigest}
		}
		created, _ := TextOf(createdVal)
		expected := digestPassword(nonce, created, expectedPassword)
		if pwText != expected {
			return &SecurityError{Kind: SecInvalidPasswordDigest}
		}
		return nil
	}

	if pwText != expectedPassword {
		return &SecurityError{Kind: SecInvalidCredentials}
	}
	return nil
}

// ValidateTimestamp implements the server-side Timestamp check: missing,
// unparseable, or expired timestamps are reported distinctly.
func ValidateTimestamp(security *Element, now time.Time) error {
	if security == nil {
		return &SecurityError{Kind: SecMissingTimestamp}
	}
	tsVal, ok := FindChildValue(security, "Timestamp")
	if !ok {
		return &SecurityError{Kind: SecMissingTimestamp}
	}
	ts := asElement(tsVal)
	_, expiresVal, ok := FindChild(ts, "Expires")
	if !ok {
		return &SecurityError{Kind: SecMissingTimestamp}
	}
	expiresStr, _ := TextOf(expiresVal)
	expires, err := time.Parse(iso8601, expiresStr)
	if err != nil {
		return &SecurityError{Kind: SecInvalidTimestamp}
	}
	if now.IsZero() {
		now = time.Now()
	}
	if now.UTC().After(expires) {
		return &SecurityError{Kind: SecTimestampExpired}
	}
	return nil
}

// FindChildValue finds the first descendant at any depth under root whose
// key's local name matches local. Unlike FindChild (direct children
// only), this also descends into wsse:Security to reach
// wsse:UsernameToken/wsu:Timestamp regardless of how deeply other
// intermediate headers are nested.
func FindChildValue(root *Element, local string) (Tree, bool) {
	if root == nil {
		return nil, false
	}
	if _, v, ok := FindChild(root, local); ok {
		return v, true
	}
	for _, k := range root.Children() {
		v, _ := root.Get(k)
		if child, ok := v.(*Element); ok {
			if found, ok := FindChildValue(child, local); ok {
				return found, ok
			}
		}
	}
	return nil, false
}
