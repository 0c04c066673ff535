package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf16"

	"cargo-watcher/internal/core/logger"
	"cargo-watcher/internal/features/tracking/domain"

	"go.uber.org/zap"
)

var (
	// ErrAuthFailed is returned when the portal accepts the request but the
	// session is not logged in (no logout link in the response).
	ErrAuthFailed = errors.New("portal authentication failed")
	// ErrParseFailed is returned when the logged-in page does not carry the
	// embedded tracks JSON.
	ErrParseFailed = errors.New("portal response parse failed")
)

// The portal inlines the full track list into the account page as
// this.tracks = JSON.parse('...').
var tracksRe = regexp.MustCompile(`this\.tracks\s*=\s*JSON\.parse\('(.+?)'\)`)

// EmirPortalSource fetches tracking snapshots from the cargo portal over
// plain HTTP: one login POST whose response body already contains the
// account's track list.
type EmirPortalSource struct {
	loginURL string
	login    string
	password string
	client   *http.Client
	logger   *zap.Logger
}

// NewEmirPortalSource creates an EmirPortalSource. The client should carry a
// cookie jar so the portal session survives redirects.
func NewEmirPortalSource(loginURL, login, password string, client *http.Client) *EmirPortalSource {
	return &EmirPortalSource{
		loginURL: loginURL,
		login:    login,
		password: password,
		client:   client,
		logger:   logger.Get(),
	}
}

// Fetch logs into the portal and extracts the tracks embedded in the
// response page.
func (s *EmirPortalSource) Fetch(ctx context.Context) ([]domain.TrackingRecord, error) {
	form := url.Values{
		"login":    {s.login},
		"password": {s.password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("portal login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portal login returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read portal response: %w", err)
	}

	records, err := ParseTracksPage(string(body))
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Portal snapshot fetched", zap.Int("records", len(records)))
	return records, nil
}

// ParseTracksPage extracts the tracking records embedded in a logged-in
// portal page. The logout link doubles as the login success check.
func ParseTracksPage(page string) ([]domain.TrackingRecord, error) {
	if !strings.Contains(page, "logout") {
		return nil, ErrAuthFailed
	}

	m := tracksRe.FindStringSubmatch(page)
	if m == nil {
		return nil, fmt.Errorf("%w: tracks JSON not found in page", ErrParseFailed)
	}

	decoded := decodeJSString(m[1])

	var records []domain.TrackingRecord
	if err := json.Unmarshal([]byte(decoded), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return records, nil
}

// decodeJSString resolves the escape sequences of a single-quoted JavaScript
// string literal, including \uXXXX surrogate pairs. Unknown escapes keep the
// escaped character, matching how browsers evaluate the literal.
func decodeJSString(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' || i+1 >= len(runes) {
			b.WriteRune(runes[i])
			continue
		}

		i++
		switch runes[i] {
		case 'u':
			r, consumed := decodeUnicodeEscape(runes[i+1:])
			if consumed == 0 {
				b.WriteRune('u')
				continue
			}
			b.WriteRune(r)
			i += consumed
		case 'n':
			b.WriteRune('\n')
		case 't':
			b.WriteRune('\t')
		case 'r':
			b.WriteRune('\r')
		default:
			// Covers \', \", \\ and \/.
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

// decodeUnicodeEscape reads the hex digits after \u, pairing a leading high
// surrogate with a following \uXXXX low surrogate when present. Returns the
// decoded rune and how many runes were consumed, 0 when malformed.
func decodeUnicodeEscape(rest []rune) (rune, int) {
	if len(rest) < 4 {
		return 0, 0
	}

	v, err := parseHex4(rest[:4])
	if err != nil {
		return 0, 0
	}

	if utf16.IsSurrogate(v) && len(rest) >= 10 && rest[4] == '\\' && rest[5] == 'u' {
		low, err := parseHex4(rest[6:10])
		if err == nil {
			if combined := utf16.DecodeRune(v, low); combined != '�' {
				return combined, 10
			}
		}
	}
	return v, 4
}

func parseHex4(digits []rune) (rune, error) {
	var v rune
	for _, d := range digits {
		switch {
		case d >= '0' && d <= '9':
			v = v<<4 | (d - '0')
		case d >= 'a' && d <= 'f':
			v = v<<4 | (d - 'a' + 10)
		case d >= 'A' && d <= 'F':
			v = v<<4 | (d - 'A' + 10)
		default:
			return 0, fmt.Errorf("invalid hex digit %q", d)
		}
	}
	return v, nil
}
