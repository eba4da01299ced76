package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFriendPairFieldIsCanonical(t *testing.T) {
	// Both orderings must hit the same hash field.
	assert.Equal(t, friendPairField(3, 9), friendPairField(9, 3))
	assert.Equal(t, "3:9", friendPairField(9, 3))
	assert.Equal(t, "5:5", friendPairField(5, 5))
}

func TestInvitationFieldKeepsOrder(t *testing.T) {
	// Inviter and receiver are not interchangeable.
	assert.Equal(t, "2:7:40", invitationField(2, 7, 40))
	assert.NotEqual(t, invitationField(2, 7, 40), invitationField(7, 2, 40))
}

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "user:12:info", userInfoKey(12))
	assert.Equal(t, "user:12:pre_join", userPreJoinKey(12))
	assert.Equal(t, "chat:7:msgs", chatMsgsKey(7))
	assert.Equal(t, "chat:7:last_notice_id", chatLastNoticeIDKey(7))
	assert.Equal(t, "chat:7:0", chatUserSlotKey(7, 0))
	assert.Equal(t, "chat:7:1", chatUserSlotKey(7, 1))
	assert.Equal(t, "req:3:info", reqInfoKey(3))
	assert.Equal(t, "req:3:state", reqStateKey(3))
}
