package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMailerSend(t *testing.T) {
	var got httpMailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer server.Close()

	mailer := NewHTTPMailer(server.URL, "re_test")
	err := mailer.Send(context.Background(), Email{From: "reports@zedbites.test", To: "a@x.com", Subject: "hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, got.To)
	assert.Equal(t, "<p>hi</p>", got.HTML)
}

func TestHTTPMailerSurfacesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer server.Close()

	err := NewHTTPMailer(server.URL, "k").Send(context.Background(), Email{To: "a@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "invalid from address")
}

func TestNewSMTPMailer(t *testing.T) {
	m, err := NewSMTPMailer("smtp.example.com", 587, "user", "secret")
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = NewSMTPMailer("", 587, "", "")
	assert.Error(t, err)
}

func TestLogMailerNeverFails(t *testing.T) {
	m := &LogMailer{Log: quietLogger()}
	assert.NoError(t, m.Send(context.Background(), Email{To: "a@x.com"}))
}
