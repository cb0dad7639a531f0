package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curaline/consult/internal/core"
)

func TestJoinReturnsDescriptorPair(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sessions/join", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Meeting":{"iceServers":["stun:s"]},"Attendee":{"participantId":"A"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	desc, err := c.Join(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sessionId": "S1"}, gotBody)
	assert.JSONEq(t, `{"iceServers":["stun:s"]}`, string(desc.Meeting))
	assert.JSONEq(t, `{"participantId":"A"}`, string(desc.Attendee))
}

func TestJoinNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Join(context.Background(), "S1")
	assert.ErrorContains(t, err, "status 503")
}

func TestJoinMalformedDescriptor(t *testing.T) {
	cases := map[string]string{
		"not json":         `<html>`,
		"missing attendee": `{"Meeting":{"x":1}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, time.Second)
			_, err := c.Join(context.Background(), "S1")
			assert.ErrorIs(t, err, core.ErrDescriptorMalformed)
		})
	}
}

func TestEnd(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	require.NoError(t, c.End(context.Background(), "S1"))
	assert.Equal(t, "/sessions/S1", gotPath)
}

func TestEndFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	assert.Error(t, c.End(context.Background(), "S1"))
}
