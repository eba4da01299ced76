package database

import (
	"fmt"

	"github.com/dmail-project/dmail-backend/internal/models"
)

// Global keys. The layout is shared with existing deployments, so the names
// are fixed.
const (
	keyUserEmailMap  = "user:email_to_id"
	keyLastUserID    = "user:last_id"
	keyLastChatID    = "chat:last_id"
	keyFriendChatMap = "user:fri_to_ch"
	keyLastReqID     = "req:last_id"
	keyLastUploadID  = "file:lst_upd"
	keyFileUpload    = "file:upload"
	keyFileURL       = "file:url"
	keyNameIDMap     = "user:name_to_id"
	keyInvitationMap = "Invitations"
)

func userInfoKey(id models.UserID) string    { return fmt.Sprintf("user:%d:info", id) }
func userSettingKey(id models.UserID) string { return fmt.Sprintf("user:%d:setting", id) }
func userEmailKey(id models.UserID) string   { return fmt.Sprintf("user:%d:mail", id) }
func userPasswordKey(id models.UserID) string { return fmt.Sprintf("user:%d:pass", id) }
func userChatsKey(id models.UserID) string   { return fmt.Sprintf("user:%d:chats", id) }
func userReqsKey(id models.UserID) string    { return fmt.Sprintf("user:%d:reqs", id) }
func userNoticeKey(id models.UserID) string  { return fmt.Sprintf("user:%d:not", id) }
func userTokenKey(id models.UserID) string   { return fmt.Sprintf("user:%d:token", id) }
func userExistKey(id models.UserID) string   { return fmt.Sprintf("user:%d:exist", id) }
func userPreJoinKey(id models.UserID) string { return fmt.Sprintf("user:%d:pre_join", id) }

func chatInfoKey(id models.ChatID) string  { return fmt.Sprintf("chat:%d:info", id) }
func chatOwnerKey(id models.ChatID) string { return fmt.Sprintf("chat:%d:owner", id) }
func chatUsersKey(id models.ChatID) string { return fmt.Sprintf("chat:%d:users", id) }
func chatAdminsKey(id models.ChatID) string { return fmt.Sprintf("chat:%d:admins", id) }
func chatMsgsKey(id models.ChatID) string  { return fmt.Sprintf("chat:%d:msgs", id) }
func chatLastIDKey(id models.ChatID) string { return fmt.Sprintf("chat:%d:last_id", id) }
func chatNoticeKey(id models.ChatID) string { return fmt.Sprintf("chat:%d:notices", id) }
func chatLastNoticeIDKey(id models.ChatID) string {
	return fmt.Sprintf("chat:%d:last_notice_id", id)
}

// Private chats store their two member ids under chat:{id}:0 and chat:{id}:1.
func chatUserSlotKey(id models.ChatID, order int) string {
	return fmt.Sprintf("chat:%d:%d", id, order)
}

func reqInfoKey(id models.ReqID) string  { return fmt.Sprintf("req:%d:info", id) }
func reqStateKey(id models.ReqID) string { return fmt.Sprintf("req:%d:state", id) }

// friendPairField orders the pair so every friendship has one canonical field
// in the friend map.
func friendPairField(a, b models.UserID) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func invitationField(inviter, receiver models.UserID, chat models.ChatID) string {
	return fmt.Sprintf("%d:%d:%d", inviter, receiver, chat)
}
