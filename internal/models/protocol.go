package models

import "encoding/json"

// Every frame in both directions is a command envelope. Client frames carry
// raw payloads decoded per command tag, server frames carry typed payloads.
type ClientCommand struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type ServerCommand struct {
	Command string      `json:"command"`
	Data    interface{} `json:"data,omitempty"`
}

// Client to server command tags.
const (
	CmdPing                 = "Ping"
	CmdPong                 = "Pong"
	CmdClose                = "Close"
	CmdSetConnectionPubKey  = "SetConnectionPubKey"
	CmdRegister             = "Register"
	CmdUpdateUserInfo       = "UpdateUserInfo"
	CmdUpdateGroupInfo      = "UpdateGroupInfo"
	CmdApplyForToken        = "ApplyForToken"
	CmdLogin                = "Login"
	CmdPull                 = "Pull"
	CmdSendMessage          = "SendMessage"
	CmdSendRequest          = "SendRequest"
	CmdGetUserInfo          = "GetUserInfo"
	CmdGetChatInfo          = "GetChatInfo"
	CmdGetGroupUsers        = "GetGroupUsers"
	CmdGetFileUrl           = "GetFileUrl"
	CmdSolveRequest         = "SolveRequest"
	CmdRevokeMessage        = "RevokeMessage"
	CmdGetMessages          = "GetMessages"
	CmdCreateGroupChat      = "CreateGroupChat"
	CmdUnfriend             = "Unfriend"
	CmdQuitGroupChat        = "QuitGroupChat"
	CmdSetUserSetting       = "SetUserSetting"
	CmdSetAlreadyRead       = "SetAlreadyRead"
	CmdUploadFileRequest    = "UploadFileRequest"
	CmdFileUploaded         = "FileUploaded"
	CmdSetGroupAdmin        = "SetGroupAdmin"
	CmdGroupOwnerTransfer   = "GroupOwnerTransfer"
	CmdSendGroupNotice      = "SendGroupNotice"
	CmdPullGroupNotice      = "PullGroupNotice"
	CmdRemoveGroupMember    = "RemoveGroupMember"
	CmdUnsetGroupAdmin      = "UnsetGroupAdmin"
	CmdGetGroupOwner        = "GetGroupOwner"
	CmdGetGroupAdmin        = "GetGroupAdmin"
	CmdMediaCall            = "MediaCall"
	CmdMediaCallAnswer      = "MediaCallAnswer"
	CmdMediaIceCandidate    = "MediaIceCandidate"
	CmdMediaCallStop        = "MediaCallStop"
	CmdGetUserID            = "GetUserID"
	CmdGetUserReadInGroup   = "GetUserReadInGroup"
	CmdGetUserReadInPrivate = "GetUserReadInPrivate"
	CmdLogOff               = "LogOff"
)

// Server to client command tags.
const (
	SrvPing                         = "Ping"
	SrvPong                         = "Pong"
	SrvClose                        = "Close"
	SrvSetConnectionSymKey          = "SetConnectionSymKey"
	SrvSetConnectionPubKeyResponse  = "SetConnectionPubKeyResponse"
	SrvApplyForTokenResponse        = "ApplyForTokenResponse"
	SrvLoginResponse                = "LoginResponse"
	SrvRegisterResponse             = "RegisterResponse"
	SrvUpdateUserInfoResponse       = "UpdateUserInfoResponse"
	SrvUpdateGroupInfoResponse      = "UpdateGroupInfoResponse"
	SrvSendMessageResponse          = "SendMessageResponse"
	SrvSendRequestResponse          = "SendRequestResponse"
	SrvGetUserInfoResponse          = "GetUserInfoResponse"
	SrvGetGroupUsersResponse        = "GetGroupUsersResponse"
	SrvGetFileUrlResponse           = "GetFileUrlResponse"
	SrvSolveRequestResponse         = "SolveRequestResponse"
	SrvCreateGroupChatResponse      = "CreateGroupChatResponse"
	SrvUploadFileRequestResponse    = "UploadFileRequestResponse"
	SrvRevokeMessageResponse        = "RevokeMessageResponse"
	SrvFileUploadedResponse         = "FileUploadedResponse"
	SrvRequestStateUpdate           = "RequestStateUpdate"
	SrvPullResponse                 = "PullResponse"
	SrvNotice                       = "Notice"
	SrvNotices                      = "Notices"
	SrvChat                         = "Chat"
	SrvChats                        = "Chats"
	SrvReadCursors                  = "ReadCursors"
	SrvMessages                     = "Messages"
	SrvMessage                      = "Message"
	SrvRequest                      = "Request"
	SrvRequests                     = "Requests"
	SrvUnfriendResponse             = "UnfriendResponse"
	SrvQuitGroupChatResponse        = "QuitGroupChatResponse"
	SrvDeleteChat                   = "DeleteChat"
	SrvSetUserSettingResponse       = "SetUserSettingResponse"
	SrvUserSetting                  = "UserSetting"
	SrvDatabaseError                = "DatabaseError"
	SrvNotFound                     = "NotFound"
	SrvSetAlreadyReadResponse       = "SetAlreadyReadResponse"
	SrvSetGroupAdminResponse        = "SetGroupAdminResponse"
	SrvGroupOwnerTransferResponse   = "GroupOwnerTransferResponse"
	SrvGroupNoticeResponse          = "GroupNoticeResponse"
	SrvPullGroupNoticeResponse      = "PullGroupNoticeResponse"
	SrvRemoveGroupMemberResponse    = "RemoveGroupMemberResponse"
	SrvUnsetGroupAdminResponse      = "UnsetGroupAdminResponse"
	SrvGetGroupOwnerResponse        = "GetGroupOwnerResponse"
	SrvGetGroupAdminResponse        = "GetGroupAdminResponse"
	SrvMediaCallResponse            = "MediaCallResponse"
	SrvMediaCallOffer               = "MediaCallOffer"
	SrvMediaCallAnswer              = "MediaCallAnswer"
	SrvMediaIceCandidate            = "MediaIceCandidate"
	SrvMediaCallStop                = "MediaCallStop"
	SrvGetUserIDResponse            = "GetUserIDResponse"
	SrvGetUserReadInGroupResponse   = "GetUserReadInGroupResponse"
	SrvGetUserReadInPrivateResponse = "GetUserReadInPrivateResponse"
	SrvSetOppositeReadCursor        = "SetOppositeReadCursor"
	SrvLogOffResponse               = "LogOffResponse"
	SrvGroupMemberChange            = "GroupMemberChange"
	SrvRequestMessage               = "RequestMessage"
)

// StateOnly is the payload shape shared by every state-tagged response
// variant that carries no extra fields.
type StateOnly struct {
	State string `json:"state"`
}

func State(s string) StateOnly { return StateOnly{State: s} }
