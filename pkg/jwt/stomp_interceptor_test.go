package jwt

import (
	"testing"
	"time"

	"chat-system/pkg/stomp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStompInterceptor_Connect(t *testing.T) {
	s := newTestService(time.Hour)
	interceptor := s.StompInterceptor()
	token, err := s.GenerateAccessToken(3, "carol", "USER")
	require.NoError(t, err)

	for _, headers := range []map[string]string{
		{stomp.HeaderAuthorization: "Bearer " + token},
		{stomp.HeaderPasscode: token},
	} {
		msg, err := interceptor.PreSend(&stomp.Message{Command: stomp.CommandConnect, Headers: headers})
		require.NoError(t, err)
		require.NotNil(t, msg.User)
		assert.Equal(t, uint(3), msg.User.UserID)
		assert.Equal(t, "carol", msg.User.Username)
	}
}

func TestStompInterceptor_RejectsConnect(t *testing.T) {
	s := newTestService(time.Hour)
	interceptor := s.StompInterceptor()
	refresh, _ := s.GenerateRefreshToken(3, "carol")

	for _, headers := range []map[string]string{
		nil,
		{stomp.HeaderAuthorization: "Bearer nope"},
		{stomp.HeaderAuthorization: "Bearer " + refresh},
	} {
		_, err := interceptor.PreSend(&stomp.Message{Command: stomp.CommandConnect, Headers: headers})
		assert.ErrorIs(t, err, stomp.ErrUnauthenticated)
	}
}

func TestStompInterceptor_OtherFrames(t *testing.T) {
	interceptor := newTestService(time.Hour).StompInterceptor()

	_, err := interceptor.PreSend(&stomp.Message{Command: stomp.CommandSend, Destination: "/app/chat.send"})
	assert.ErrorIs(t, err, stomp.ErrUnauthenticated)

	msg, err := interceptor.PreSend(&stomp.Message{Command: stomp.CommandSend, User: &stomp.Principal{UserID: 1, Username: "a"}})
	require.NoError(t, err)
	assert.NotNil(t, msg)

	_, err = interceptor.PreSend(&stomp.Message{Command: stomp.CommandDisconnect})
	assert.NoError(t, err)
}
