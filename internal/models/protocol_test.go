package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshal(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestServerCommandUnitVariant(t *testing.T) {
	// Unit variants carry only the tag.
	assert.JSONEq(t, `{"command":"DatabaseError"}`,
		marshal(t, ServerCommand{Command: SrvDatabaseError}))
}

func TestServerCommandWithData(t *testing.T) {
	cmd := ServerCommand{Command: SrvLoginResponse, Data: NewLoginSuccess(7)}
	assert.JSONEq(t, `{"command":"LoginResponse","data":{"state":"Success","userId":7}}`,
		marshal(t, cmd))
}

func TestSendMessageResponseOptionalFieldsEncodeAsNull(t *testing.T) {
	resp := SendMessageResponse{State: StateChatNotFound, ClientID: 3, ChatID: 9}
	assert.JSONEq(t,
		`{"state":"ChatNotFound","clientId":3,"chatId":9,"inChatId":null,"timestamp":null}`,
		marshal(t, resp))

	inChatID := MessageID(12)
	ts := Timestamp(1700000000000)
	resp = SendMessageResponse{
		State: StateSuccess, ClientID: 3, ChatID: 9,
		InChatID: &inChatID, Timestamp: &ts,
	}
	assert.JSONEq(t,
		`{"state":"Success","clientId":3,"chatId":9,"inChatId":12,"timestamp":1700000000000}`,
		marshal(t, resp))
}

func TestSendRequestStateEncodings(t *testing.T) {
	plain := SendRequestState{Plain: StateSuccess}
	assert.JSONEq(t, `"Success"`, marshal(t, plain))

	wrapped := SendRequestState{Err: &RequestError{
		Type:      ReqErrGroupInvation,
		ErrorType: ReqErrAlreadyBeFrineds,
	}}
	assert.JSONEq(t,
		`{"RequestError":{"type":"GroupInvation","errorType":"AlreadyBeFrineds"}}`,
		marshal(t, wrapped))

	var decoded SendRequestState
	require.NoError(t, json.Unmarshal([]byte(`"DatabaseError"`), &decoded))
	assert.Equal(t, StateDatabaseError, decoded.Plain)

	require.NoError(t, json.Unmarshal(
		[]byte(`{"RequestError":{"type":"MakeFriend","errorType":"SameUser"}}`), &decoded))
	require.NotNil(t, decoded.Err)
	assert.Equal(t, ReqErrSameUser, decoded.Err.ErrorType)
}

func TestSendRequestResponseNullReqID(t *testing.T) {
	resp := SendRequestResponse{
		ClientID: 5,
		State: SendRequestState{Err: &RequestError{
			Type: ReqMakeFriend, ErrorType: ReqErrRequestExisted,
		}},
	}
	assert.JSONEq(t,
		`{"reqId":null,"clientId":5,"state":{"RequestError":{"type":"MakeFriend","errorType":"RequestExisted"}}}`,
		marshal(t, resp))
}

func TestRevokeMessageResponseKeepsSnakeCase(t *testing.T) {
	resp := RevokeMessageResponse{ChatID: 4, InChatID: 17, State: StateSuccess}
	assert.JSONEq(t, `{"chat_id":4,"in_chat_id":17,"state":"Success"}`, marshal(t, resp))
}

func TestRequestHandlerUntaggedEncoding(t *testing.T) {
	assert.JSONEq(t, `8`, marshal(t, OneHandler(8)))
	assert.JSONEq(t, `[1,2,3]`, marshal(t, GroupHandler([]UserID{1, 2, 3})))

	var h RequestHandler
	require.NoError(t, json.Unmarshal([]byte(`8`), &h))
	assert.True(t, h.IsHandler(8))
	assert.False(t, h.IsHandler(9))

	require.NoError(t, json.Unmarshal([]byte(`[1,2,3]`), &h))
	assert.True(t, h.IsHandler(2))
	assert.Equal(t, []UserID{1, 2, 3}, h.IDs())
}

func TestUserNoticeStateTag(t *testing.T) {
	notice := UserNotice{State: NoticeMentioned, ChatID: 2, InChatID: 5, Timestamp: 1000}
	assert.JSONEq(t, `{"state":"Mentioned","chatId":2,"inChatId":5,"timestamp":1000}`,
		marshal(t, notice))
}

func TestGetUserInfoSuccessFlattensInfo(t *testing.T) {
	resp := NewGetUserInfoSuccess(UserInfo{UserID: 3, UserName: "ann", AvaterHash: "abc"})
	assert.JSONEq(t,
		`{"state":"Success","userId":3,"userName":"ann","avaterHash":"abc"}`,
		marshal(t, resp))
}

func TestUserRequestWireShape(t *testing.T) {
	req := UserRequest{
		Info: RequestInfo{
			ReqID:    11,
			SenderID: 2,
			Message:  "hi",
			Content:  RequestContent{Type: ReqJoinGroup, ChatID: 40},
		},
		State: ReqUnsolved,
	}
	assert.JSONEq(t,
		`{"info":{"reqId":11,"senderId":2,"message":"hi","content":{"type":"JoinGroup","chatId":40}},"state":"Unsolved"}`,
		marshal(t, req))
}

func TestChatMessageRoundTrip(t *testing.T) {
	// Stored messages are hand-formatted by the storage layer; the struct
	// must decode them, tombstones included.
	stored := `{"type":"Revoked", "inChatId":3, "chatId":7, "senderId":1, "serializedContent":"\"\"", "timestamp":1700000000000}`
	var msg ChatMessage
	require.NoError(t, json.Unmarshal([]byte(stored), &msg))
	assert.Equal(t, MsgRevoked, msg.Type)
	assert.Equal(t, MessageID(3), msg.InChatID)
	assert.Equal(t, `""`, msg.SerializedContent)
}

func TestRequestContentOmitsInactiveFields(t *testing.T) {
	content := RequestContent{Type: ReqMakeFriend, ReceiverID: 9}
	assert.JSONEq(t, `{"type":"MakeFriend","receiverId":9}`, marshal(t, content))

	content = RequestContent{Type: ReqInvitedJoinGroup, InviterID: 4, ChatID: 6}
	assert.JSONEq(t, `{"type":"InvitedJoinGroup","inviterId":4,"chatId":6}`, marshal(t, content))
}
