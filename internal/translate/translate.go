// internal/translate/translate.go
//
// Best-effort translation of secret words via a MyMemory-compatible HTTP
// endpoint:
//
//	GET <base>?q=<word>&langpair=<pair>  →  {"responseData":{"translatedText":"..."}}
//
// Every lookup is bounded by the client timeout. The engine treats any
// error as "no translation" and falls back to the secret itself.

package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrEmpty = errors.New("translate: empty translation")

// Client queries the translation service.
type Client struct {
	base     string
	langPair string
	http     *http.Client
}

// New returns a client for base (e.g. https://api.mymemory.translated.net/get).
func New(base, langPair string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{base: base, langPair: langPair, http: &http.Client{Timeout: timeout}}
}

type response struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus json.RawMessage `json:"responseStatus"`
}

// Translate returns the translation of word.
func (c *Client) Translate(ctx context.Context, word string) (string, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return "", fmt.Errorf("translate: base url: %w", err)
	}
	q := u.Query()
	q.Set("q", word)
	q.Set("langpair", c.langPair)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("translate: status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("translate: decode: %w", err)
	}
	t := strings.TrimSpace(body.ResponseData.TranslatedText)
	if t == "" {
		return "", ErrEmpty
	}
	return t, nil
}
