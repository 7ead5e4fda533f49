package utils

import (
	"strings"

	"github.com/mojocn/base64Captcha"
)

// Captcha issues digit captchas for the registration form.
type Captcha struct {
	store  base64Captcha.Store
	driver base64Captcha.Driver
}

// NewCaptcha creates a Captcha backed by store. A nil store selects the package's in-memory store.
func NewCaptcha(store base64Captcha.Store) *Captcha {
	if store == nil {
		store = base64Captcha.DefaultMemStore
	}
	// width 120, height 40, 5 digits
	return &Captcha{store: store, driver: base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)}
}

// Generate creates a captcha and returns its id and a data URI image for the client to display.
func (c *Captcha) Generate() (string, string, error) {
	id, b64, _, err := base64Captcha.NewCaptcha(c.driver, c.store).Generate()
	return id, b64, err
}

// Verify checks the answer and consumes the captcha whatever the outcome.
func (c *Captcha) Verify(id, answer string) bool {
	id, answer = strings.TrimSpace(id), strings.TrimSpace(answer)
	if id == "" || answer == "" {
		return false
	}
	return c.store.Verify(id, answer, true)
}
