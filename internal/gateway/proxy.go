package gateway

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"
)

const (
	cookieAccessToken  = "access_token"
	cookieRefreshToken = "refresh_token"
)

// AuthProxy fronts the auth service. Browser clients carry tokens in
// httpOnly cookies; the proxy translates cookies to headers on the way in
// and captures minted tokens into cookies on the way out.
type AuthProxy struct {
	proxy *httputil.ReverseProxy
	cfg   Config
}

func NewAuthProxy(cfg Config) (*AuthProxy, error) {
	target, err := url.Parse(cfg.AuthServiceURL)
	if err != nil {
		return nil, fmt.Errorf("parse auth service url: %w", err)
	}

	p := &AuthProxy{cfg: cfg}
	proxy := httputil.NewSingleHostReverseProxy(target)
	baseDirector := proxy.Director
	proxy.Director = func(r *http.Request) {
		baseDirector(r)
		p.translateCookies(r)
	}
	proxy.ModifyResponse = p.captureTokens
	p.proxy = proxy
	return p, nil
}

func (p *AuthProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.proxy.ServeHTTP(w, r)
}

// translateCookies maps token cookies onto the headers the auth service
// expects. An explicit Authorization header from the client wins.
func (p *AuthProxy) translateCookies(r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		if c, err := r.Cookie(cookieAccessToken); err == nil && c.Value != "" {
			r.Header.Set("Authorization", "Bearer "+c.Value)
		}
	}
	if r.Header.Get("X-Refresh-Token") == "" {
		if c, err := r.Cookie(cookieRefreshToken); err == nil && c.Value != "" {
			r.Header.Set("X-Refresh-Token", c.Value)
		}
	}
}

type tokenEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"data"`
}

// captureTokens inspects auth responses. Successful token-minting responses
// get their pair mirrored into httpOnly cookies; logout clears both.
func (p *AuthProxy) captureTokens(resp *http.Response) error {
	path := ""
	if resp.Request != nil && resp.Request.URL != nil {
		path = resp.Request.URL.Path
	}

	switch path {
	case "/auth/register", "/auth/login", "/auth/refresh":
		if resp.StatusCode >= 300 {
			// A rejected refresh means the cookie pair is dead weight;
			// clear it so the browser falls back to a fresh login.
			if path == "/auth/refresh" {
				p.clearTokenCookies(resp)
			}
			return nil
		}
	case "/auth/logout":
		if resp.StatusCode < 300 {
			p.clearTokenCookies(resp)
		}
		return nil
	default:
		return nil
	}

	body, err := readBody(resp)
	if err != nil {
		return err
	}

	var envelope tokenEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if envelope.Data.AccessToken != "" {
		resp.Header.Add("Set-Cookie", p.tokenCookie(cookieAccessToken, envelope.Data.AccessToken, int(p.cfg.CookieAccessTTL.Seconds())).String())
	}
	if envelope.Data.RefreshToken != "" {
		resp.Header.Add("Set-Cookie", p.tokenCookie(cookieRefreshToken, envelope.Data.RefreshToken, int(p.cfg.CookieRefreshTTL.Seconds())).String())
	}
	return nil
}

// readBody drains and restores the response body so downstream writes stay
// intact. Gzip responses are passed through untouched.
func readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	resp.ContentLength = int64(len(raw))
	resp.Header.Set("Content-Length", strconv.Itoa(len(raw)))

	if resp.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, nil
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}
	return raw, nil
}

func (p *AuthProxy) tokenCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.cfg.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (p *AuthProxy) clearTokenCookies(resp *http.Response) {
	expired := time.Unix(0, 0)
	for _, name := range []string{cookieAccessToken, cookieRefreshToken} {
		c := p.tokenCookie(name, "", -1)
		c.Expires = expired
		resp.Header.Add("Set-Cookie", c.String())
	}
}
