package contact

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	domerrors "github.com/kwportal/igcse-tutor-bot/internal/errors"
)

// Token is what a redirect link carries.
type Token struct {
	UserID    int64  `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	TeacherID string `json:"teacher_id,omitempty"`
	WA        string `json:"wa"`
	Text      string `json:"text"`
}

// Signer encodes tokens and signs them with HMAC-SHA256. With an empty
// secret tokens are encoded but not signed, and any signature is accepted.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(strings.TrimSpace(secret))}
}

// Enabled reports whether tokens are signed.
func (s *Signer) Enabled() bool {
	return len(s.secret) > 0
}

// Sign returns the encoded token and its hex signature. The signature is
// empty when signing is disabled.
func (s *Signer) Sign(tok Token) (t, sig string, err error) {
	raw, err := json.Marshal(tok)
	if err != nil {
		return "", "", fmt.Errorf("encode token: %w", err)
	}
	t = base64.RawURLEncoding.EncodeToString(raw)
	if s.Enabled() {
		sig = s.mac(t)
	}
	return t, sig, nil
}

// Verify checks sig against t and decodes the token. It fails with
// ErrBadSignature on a mismatch and ErrBadToken when t cannot be decoded.
func (s *Signer) Verify(t, sig string) (Token, error) {
	if s.Enabled() && !hmac.Equal([]byte(s.mac(t)), []byte(sig)) {
		return Token{}, domerrors.ErrBadSignature
	}
	raw, err := base64.URLEncoding.DecodeString(pad(t))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", domerrors.ErrBadToken, err)
	}
	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Token{}, fmt.Errorf("%w: %w", domerrors.ErrBadToken, err)
	}
	return tok, nil
}

func (s *Signer) mac(t string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(t))
	return hex.EncodeToString(h.Sum(nil))
}

func pad(t string) string {
	if n := len(t) % 4; n != 0 {
		return t + strings.Repeat("=", 4-n)
	}
	return t
}

// Linker picks between direct wa.me links and links through the redirect
// endpoint.
type Linker struct {
	signer  *Signer
	baseURL string
}

// NewLinker creates a Linker. With an empty publicBaseURL links go straight
// to wa.me.
func NewLinker(signer *Signer, publicBaseURL string) *Linker {
	return &Linker{signer: signer, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Redirecting reports whether links go through the redirect endpoint.
func (l *Linker) Redirecting() bool {
	return l.baseURL != ""
}

// ContactURL returns the link a parent taps to reach tok.WA.
func (l *Linker) ContactURL(tok Token) (string, error) {
	if !l.Redirecting() {
		return Link(tok.WA, tok.Text), nil
	}
	t, sig, err := l.signer.Sign(tok)
	if err != nil {
		return "", err
	}
	q := url.Values{"t": {t}}
	if sig != "" {
		q.Set("sig", sig)
	}
	return l.baseURL + "/api/wa?" + q.Encode(), nil
}
