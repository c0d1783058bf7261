package view

import (
	"fmt"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	flashSessionName = "tafep-flash"
	flashKeySuccess  = "success"
	flashKeyError    = "error"
)

// FlashData is what the chat page shows above the conversation after a
// redirect.
type FlashData struct {
	Success []string
	Error   []string
}

func (f FlashData) Empty() bool { return len(f.Success) == 0 && len(f.Error) == 0 }

func setFlash(c echo.Context, key, message string) {
	sess, err := session.Get(flashSessionName, c)
	if err != nil {
		return
	}
	sess.AddFlash(message, key)
	_ = sess.Save(c.Request(), c.Response())
}

func SetFlashSuccess(c echo.Context, message string) { setFlash(c, flashKeySuccess, message) }

func SetFlashError(c echo.Context, message string) { setFlash(c, flashKeyError, message) }

// GetFlashData reads and clears pending flashes.
func GetFlashData(c echo.Context) FlashData {
	sess, err := session.Get(flashSessionName, c)
	if err != nil {
		return FlashData{}
	}
	data := FlashData{
		Success: toStrings(sess.Flashes(flashKeySuccess)),
		Error:   toStrings(sess.Flashes(flashKeyError)),
	}
	if !data.Empty() {
		_ = sess.Save(c.Request(), c.Response())
	}
	return data
}

func toStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
}
