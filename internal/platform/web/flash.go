package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	flashCookie  = "hms_flash"
	flashCtxKey  = "flash_messages"
	flashReadKey = "flash_loaded"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a one-shot notice shown on the next rendered page.
type Message struct {
	Level Level  `json:"l"`
	Text  string `json:"t"`
}

// AddFlash queues a message. It survives a redirect through a short-lived
// cookie and is consumed by the next page render.
func AddFlash(c echo.Context, level Level, text string) {
	msgs := append(pendingFlashes(c), Message{Level: level, Text: text})
	c.Set(flashCtxKey, msgs)
	writeFlashCookie(c, msgs)
}

func Success(c echo.Context, text string) { AddFlash(c, LevelSuccess, text) }
func Error(c echo.Context, text string)   { AddFlash(c, LevelError, text) }
func Info(c echo.Context, text string)    { AddFlash(c, LevelInfo, text) }

// PopFlashes returns all queued messages and clears them.
func PopFlashes(c echo.Context) []Message {
	msgs := pendingFlashes(c)
	c.Set(flashCtxKey, []Message{})
	if len(msgs) > 0 {
		writeFlashCookie(c, nil)
	}
	return msgs
}

func pendingFlashes(c echo.Context) []Message {
	if msgs, ok := c.Get(flashCtxKey).([]Message); ok {
		return msgs
	}
	var msgs []Message
	if loaded, _ := c.Get(flashReadKey).(bool); !loaded {
		c.Set(flashReadKey, true)
		msgs = decodeFlashes(c)
	}
	c.Set(flashCtxKey, msgs)
	return msgs
}

func decodeFlashes(c echo.Context) []Message {
	ck, err := c.Cookie(flashCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}

func writeFlashCookie(c echo.Context, msgs []Message) {
	ck := &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	}
	if len(msgs) == 0 {
		ck.MaxAge = -1
	} else {
		raw, _ := json.Marshal(msgs)
		ck.Value = base64.RawURLEncoding.EncodeToString(raw)
		ck.MaxAge = 300
	}
	c.SetCookie(ck)
}
