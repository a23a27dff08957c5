package xhs

import (
	"context"
	"time"

	errs "github.com/flyflypeng/xiaohongshu-skill/pkg/errors"
)

const (
	qrCodeSelector      = `img.qrcode-img[src^="data:image"]`
	profileLinkSelector = `a[href*="/user/profile/"]`
	qrCodeArtifact      = "login_qrcode"
	minQRCodeLength     = 200
)

const usernameScript = `() => {
	const el = document.querySelector('.user .name, .sidebar .user-name, [class*="nickname"]');
	return el ? el.textContent.trim() : '';
}`

// Login statuses
const (
	LoginStatusLoggedIn = "logged_in"
	LoginStatusTimeout  = "timeout"
)

// LoginStatus is the outcome of a login check
type LoginStatus struct {
	LoggedIn bool   `json:"logged_in"`
	Username string `json:"username,omitempty"`
}

// LoginResult is the outcome of an interactive QR login
type LoginResult struct {
	Status     string `json:"status"`
	QRCodePath string `json:"qrcode_path,omitempty"`
	Username   string `json:"username,omitempty"`
	Message    string `json:"message"`
}

// CheckLogin reports whether the browser is logged in. A visible login QR code
// means logged out; otherwise a session cookie or a profile link means logged in.
func (c *Client) CheckLogin(ctx context.Context, navigate bool) (LoginStatus, error) {
	if navigate {
		if err := c.sess.Navigate(ctx, ExploreURL); err != nil {
			return LoginStatus{}, err
		}
		if err := c.sess.Sleep(ctx, 3*time.Second); err != nil {
			return LoginStatus{}, err
		}
	}

	page, err := c.sess.Page()
	if err != nil {
		return LoginStatus{}, err
	}

	if has, _ := page.Has(ctx, qrCodeSelector); has {
		return LoginStatus{}, nil
	}

	loggedIn, err := c.sess.IsLoggedIn(ctx)
	if err != nil {
		return LoginStatus{}, err
	}
	if !loggedIn {
		loggedIn, _ = page.Has(ctx, profileLinkSelector)
	}
	if !loggedIn {
		return LoginStatus{}, nil
	}

	return LoginStatus{LoggedIn: true, Username: c.username(ctx)}, nil
}

func (c *Client) username(ctx context.Context) string {
	var name string
	if err := c.sess.EvalInto(ctx, &name, usernameScript); err != nil || name == "" {
		return "已登录用户"
	}
	return name
}

// QRCode is the result of fetching the login QR code
type QRCode struct {
	Path     string `json:"qrcode_path,omitempty"`
	LoggedIn bool   `json:"logged_in"`
}

// FetchQRCode opens the explore page, which shows the login dialog to a logged
// out visitor, and saves its QR code image as an artifact
func (c *Client) FetchQRCode(ctx context.Context) (QRCode, error) {
	if c.artifacts == nil {
		return QRCode{}, errs.New(errs.ErrorTypeValidation, "no artifact directory configured")
	}

	if err := c.sess.Navigate(ctx, ExploreURL); err != nil {
		return QRCode{}, err
	}
	if err := c.sess.Sleep(ctx, 4*time.Second); err != nil {
		return QRCode{}, err
	}

	status, err := c.CheckLogin(ctx, false)
	if err != nil {
		return QRCode{}, err
	}
	if status.LoggedIn {
		return QRCode{LoggedIn: true}, nil
	}

	page, err := c.sess.Page()
	if err != nil {
		return QRCode{}, err
	}

	for attempt := 0; attempt < 5; attempt++ {
		if has, _ := page.Has(ctx, qrCodeSelector); has {
			src, err := page.Attribute(ctx, qrCodeSelector, "src")
			if err == nil && len(src) > minQRCodeLength {
				path, err := c.artifacts.SaveDataURL(src, qrCodeArtifact)
				if err != nil {
					return QRCode{}, errs.Wrap(errs.ErrorTypeExtraction, "failed to save QR code", err)
				}
				c.logger.InfoWithFields("QR code saved", map[string]interface{}{"path": path})
				return QRCode{Path: path}, nil
			}
		}
		if err := c.sess.Sleep(ctx, time.Second); err != nil {
			return QRCode{}, err
		}
	}

	return QRCode{}, errs.New(errs.ErrorTypeExtraction, "login QR code not found")
}

// WaitForLogin waits on the current page for the QR code to be scanned. It
// gives the operator at least minWait before polling for the session cookie,
// and persists cookies once it appears.
func (c *Client) WaitForLogin(ctx context.Context, timeout, minWait time.Duration) (bool, error) {
	const (
		holdStep = 2 * time.Second
		pollStep = 3 * time.Second
	)

	c.logger.InfoWithFields("Waiting for QR code scan", map[string]interface{}{
		"min_wait": minWait.String(),
		"timeout":  timeout.String(),
	})

	var elapsed time.Duration
	for elapsed < minWait {
		if err := c.sess.Sleep(ctx, holdStep); err != nil {
			return false, err
		}
		elapsed += holdStep
	}

	for elapsed < timeout {
		loggedIn, err := c.sess.IsLoggedIn(ctx)
		if err != nil && errs.IsFatal(err) {
			return false, err
		}
		if loggedIn {
			c.logger.Info("Session cookie detected, login complete")
			if err := c.sess.SaveCookies(ctx); err != nil {
				c.logger.WithError(err).Warn("Failed to persist cookies after login")
			}
			return true, nil
		}

		if err := c.sess.Sleep(ctx, pollStep); err != nil {
			return false, err
		}
		elapsed += pollStep
	}

	c.logger.Warn("Login timed out")
	return false, nil
}

// Login fetches the QR code and waits for it to be scanned
func (c *Client) Login(ctx context.Context, timeout time.Duration) (LoginResult, error) {
	qr, err := c.FetchQRCode(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	if qr.LoggedIn {
		return LoginResult{Status: LoginStatusLoggedIn, Username: c.username(ctx), Message: "已登录"}, nil
	}

	ok, err := c.WaitForLogin(ctx, timeout, min(30*time.Second, timeout))
	if err != nil {
		return LoginResult{}, err
	}
	if ok {
		return LoginResult{Status: LoginStatusLoggedIn, Username: c.username(ctx), Message: "扫码登录成功"}, nil
	}
	return LoginResult{Status: LoginStatusTimeout, QRCodePath: qr.Path, Message: "扫码超时"}, nil
}
