package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/tafep-voice/internal/config"
)

func TestResendSender(t *testing.T) {
	var got resendPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewResendSender("re_key", "")
	s.endpoint = srv.URL

	require.NoError(t, s.Send("user@example.com", "Case filed", "<p>hi</p>"))
	assert.Equal(t, "TAFEP <onboarding@resend.dev>", got.From)
	assert.Equal(t, "user@example.com", got.To)
	assert.Equal(t, "<p>hi</p>", got.HTML)
}

func TestResendSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid to"}`))
	}))
	defer srv.Close()

	s := NewResendSender("re_key", "a@b.co")
	s.endpoint = srv.URL

	err := s.Send("bad", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "invalid to")
}

func TestNewEmailService(t *testing.T) {
	s, err := NewEmailService(&config.Config{EmailProvider: "log"})
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)
	assert.NoError(t, s.Send("a@b.co", "s", "b"))

	_, err = NewEmailService(&config.Config{EmailProvider: "resend"})
	assert.Error(t, err)

	s, err = NewEmailService(&config.Config{EmailProvider: "resend", EmailAPIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &ResendSender{}, s)

	_, err = NewEmailService(&config.Config{EmailProvider: "smtp"})
	assert.Error(t, err)
}
