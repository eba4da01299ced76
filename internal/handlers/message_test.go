package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/models"
)

func TestAuthorizeRevokeBySender(t *testing.T) {
	require.NoError(t, config.Set(config.Default()))
	windowMs := models.Timestamp(config.Get().User.SenderRevokeExpire) * 1000

	ctx := context.Background()
	s := &Session{userID: 7}
	req := models.RevokeMessageData{ChatID: 3, InChatID: 12, Method: models.RevokeBySender}
	now := models.Timestamp(time.Now().UnixMilli())

	fresh := models.ChatMessage{SenderID: 7, ChatID: 3, InChatID: 12, Timestamp: now}
	assert.Equal(t, "", s.authorizeRevoke(ctx, req, fresh))

	edge := fresh
	edge.Timestamp = now - windowMs + 1000
	assert.Equal(t, "", s.authorizeRevoke(ctx, req, edge))

	stale := fresh
	stale.Timestamp = now - windowMs - 1000
	assert.Equal(t, models.StateTimeLimitExceeded, s.authorizeRevoke(ctx, req, stale))

	foreign := fresh
	foreign.SenderID = 8
	assert.Equal(t, models.StatePermissionsDenied, s.authorizeRevoke(ctx, req, foreign))
}

func TestClampMessageWindow(t *testing.T) {
	require.NoError(t, config.Set(config.Default()))
	max := models.MessageID(config.Get().Protocol.MaxMessagesNumInOneChatWhenGetting)
	require.Equal(t, models.MessageID(30), max)

	// Oversized ranges keep the newest max messages.
	assert.Equal(t, models.MessageID(71), clampMessageWindow(1, 100, max))
	assert.Equal(t, models.MessageID(21), clampMessageWindow(20, 50, max))

	// Ranges within the window pass through.
	assert.Equal(t, models.MessageID(5), clampMessageWindow(5, 20, max))
	assert.Equal(t, models.MessageID(71), clampMessageWindow(71, 100, max))

	// Start ids below the first message are pinned to 1.
	assert.Equal(t, models.MessageID(1), clampMessageWindow(0, 10, max))

	// An inverted range is left for the storage layer to answer empty.
	assert.Equal(t, models.MessageID(9), clampMessageWindow(9, 3, max))
}
