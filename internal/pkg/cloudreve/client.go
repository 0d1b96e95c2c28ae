// Package cloudreve triggers a Cloudreve import task after uploads and
// deletes, so the file manager mirrors the image bucket. Every call is
// best-effort: failures are reported to the caller for logging and never
// propagate further.
package cloudreve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ShiinaKin/random-img/internal/pkg/env"
)

const sessionCookieName = "cloudreve-session"

// Config holds the Cloudreve collaborator configuration
type Config struct {
	URL       string
	Username  string
	Password  string
	AccountID int
	PolicyID  int
	SrcDir    string
	DstDir    string
	Recursive bool
	Enabled   bool
}

// LoadConfig loads Cloudreve configuration from environment variables. An
// empty CLOUDREVE_URL disables the collaborator entirely.
func LoadConfig() *Config {
	accountID, _ := strconv.Atoi(env.GetEnv("CLOUDREVE_ACCOUNT_UID", "0"))
	policyID, _ := strconv.Atoi(env.GetEnv("CLOUDREVE_POLICY_ID", "0"))

	url := env.GetEnv("CLOUDREVE_URL", "")
	return &Config{
		URL:       url,
		Username:  env.GetEnv("CLOUDREVE_USERNAME", ""),
		Password:  env.GetEnv("CLOUDREVE_PASSWORD", ""),
		AccountID: accountID,
		PolicyID:  policyID,
		SrcDir:    env.GetEnv("CLOUDREVE_S3_SRC", "/"),
		DstDir:    env.GetEnv("CLOUDREVE_DIST", "/images"),
		Recursive: env.GetEnv("CLOUDREVE_RECURSIVE", "true") == "true",
		Enabled:   url != "",
	}
}

type loginRequest struct {
	UserName    string `json:"userName"`
	Password    string `json:"password"`
	CaptchaCode string `json:"captchaCode"`
}

type syncRequest struct {
	UID       int    `json:"uid"`
	PolicyID  int    `json:"policyId"`
	Src       string `json:"src"`
	Dst       string `json:"dst"`
	Recursive bool   `json:"recursive"`
}

// Client talks to the Cloudreve admin API
type Client struct {
	config     *Config
	httpClient *http.Client
	sessions   SessionStore
}

// NewClient creates a Cloudreve client around an injected session store.
func NewClient(cfg *Config, sessions SessionStore) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sessions: sessions,
	}
}

// Notify asks Cloudreve to re-import the image directory. It logs in first
// when no live session is stored.
func (c *Client) Notify() error {
	if !c.config.Enabled {
		return nil
	}

	cookie, ok := c.sessions.Get()
	if !ok {
		var err error
		cookie, err = c.login()
		if err != nil {
			return fmt.Errorf("cloudreve login failed: %w", err)
		}
	}

	body, err := json.Marshal(syncRequest{
		UID:       c.config.AccountID,
		PolicyID:  c.config.PolicyID,
		Src:       c.config.SrcDir,
		Dst:       c.config.DstDir,
		Recursive: c.config.Recursive,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.config.URL+"/api/v3/admin/task/import", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: cookie})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloudreve sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// session may have been revoked server-side, force a fresh login
		// on the next call
		c.sessions.Clear()
		return fmt.Errorf("cloudreve sync failed: %s", resp.Status)
	}

	log.Debug("[Cloudreve] sync success")
	return nil
}

func (c *Client) login() (string, error) {
	body, err := json.Marshal(loginRequest{
		UserName:    c.config.Username,
		Password:    c.config.Password,
		CaptchaCode: "",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, c.config.URL+"/api/v3/user/session", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login rejected: %s", resp.Status)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName {
			expiresAt := cookie.Expires
			if expiresAt.IsZero() {
				expiresAt = time.Now().Add(30 * time.Minute)
			}
			c.sessions.Put(cookie.Value, expiresAt)
			log.Debug("[Cloudreve] login success")
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("login response carried no %s cookie", sessionCookieName)
}
