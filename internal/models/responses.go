package models

// Server response payloads. State-tagged variants with no extra data use
// StateOnly; success variants carrying fields have their own struct with the
// state preset by the constructor.

// Shared state strings.
const (
	StateSuccess       = "Success"
	StateDatabaseError = "DatabaseError"
	StateServerError   = "ServerError"
	StateNoPermission  = "NoPermission"
	StateUserNotFound  = "UserNotFound"
	StateUserNotInChat = "UserNotInChat"
	StateNotGroupChat  = "NotGroupChat"
	StateNotOwner      = "NotOwner"
	StateSameUser      = "SameUser"
	StateEmailInvalid  = "EmailInvalid"
	StateEmailCodeError = "EmailCodeError"
)

// Handshake.
const (
	StateNeedSetPubKey = "NeedSetPubKey"
	StatePubKeyError   = "PubKeyError"
	StateHasApproved   = "HasApproved"
)

// Register.
const (
	StateUserNameFormatError = "UserNameFormatError"
	StatePasswordFormatError = "PasswordFormatError"
	StateEmailRegistered     = "EmailRegistered"
)

type RegisterSuccess struct {
	State  string `json:"state"`
	UserID UserID `json:"userId"`
}

func NewRegisterSuccess(id UserID) RegisterSuccess {
	return RegisterSuccess{State: StateSuccess, UserID: id}
}

// Login.
const (
	StateUnapproved    = "Unapproved"
	StateUserLogged    = "UserLogged"
	StatePasswordError = "PasswordError"
	StateNeedLogin     = "NeedLogin"
	StateTokenError    = "TokenError"
	StateTokenExpired  = "TokenExpired"
)

type LoginSuccess struct {
	State  string `json:"state"`
	UserID UserID `json:"userId"`
}

func NewLoginSuccess(id UserID) LoginSuccess {
	return LoginSuccess{State: StateSuccess, UserID: id}
}

// UpdateUserInfo.
const StateAvaterHashFormatError = "AvaterHashFormatError"

// UpdateGroupInfo.
const (
	StateGroupNameFormatError = "GroupNameFormatError"
	StateAvaterFormatError    = "AvaterFormatError"
)

// ApplyForToken. The field names are not camelCased on the wire.
type ApplyForTokenSuccess struct {
	State     string    `json:"state"`
	Token     string    `json:"token"`
	Timestamp Timestamp `json:"timestamp"`
}

func NewApplyForTokenSuccess(t Token) ApplyForTokenSuccess {
	return ApplyForTokenSuccess{State: StateSuccess, Token: t.Token, Timestamp: t.Timestamp}
}

// SendMessage. State is a plain field, optional fields encode as null.
const (
	StateLenthLimitExceeded     = "LenthLimitExceeded"
	StateUserNotLoggedIn        = "UserNotLoggedIn"
	StateUserBannedInChat       = "UserBannedInChat"
	StateChatNotFound           = "ChatNotFound"
	StateContentError           = "ContentError"
	StateSendNoticeError        = "SendNoticeError"
	StateFileMetaDataFormatError = "FileMetaDataFormatError"
)

type SendMessageResponse struct {
	State     string     `json:"state"`
	ClientID  ClientID   `json:"clientId"`
	ChatID    ChatID     `json:"chatId"`
	InChatID  *MessageID `json:"inChatId"`
	Timestamp *Timestamp `json:"timestamp"`
}

// SendRequest.
type SendRequestResponse struct {
	ReqID    *ReqID           `json:"reqId"`
	ClientID ClientID         `json:"clientId"`
	State    SendRequestState `json:"state"`
}

// SolveRequest.
const (
	StateNotHandler      = "NotHandler"
	StateAnswerUnsolved  = "AnswerUnsolved"
	StateRequestNotFound = "RequestNotFound"
	StateAlreadySolved   = "AlreadySolved"
)

type SolveRequestResponse struct {
	State string `json:"state"`
	ReqID ReqID  `json:"reqId"`
}

type RequestStateUpdated struct {
	ReqID ReqID        `json:"reqId"`
	State RequestState `json:"state"`
}

type RequestMessageResponse struct {
	ReqID ReqID  `json:"reqId"`
	Type  string `json:"type"`
}

const (
	RequestMsgUserLogOff        = "UserLogOff"
	RequestMsgUserAlreadyInChat = "UserAlreadyInChat"
)

// CreateGroupChat.
const StateChatNameFormatError = "ChatNameFormatError"

type CreateGroupChatSuccess struct {
	State  string `json:"state"`
	ChatID ChatID `json:"chatId"`
}

func NewCreateGroupChatSuccess(id ChatID) CreateGroupChatSuccess {
	return CreateGroupChatSuccess{State: StateSuccess, ChatID: id}
}

// GetUserInfo flattens UserInfo next to the state tag.
type GetUserInfoSuccess struct {
	State string `json:"state"`
	UserInfo
}

func NewGetUserInfoSuccess(info UserInfo) GetUserInfoSuccess {
	return GetUserInfoSuccess{State: StateSuccess, UserInfo: info}
}

// Unfriend.
const StateNotFriend = "NotFriend"

type UnfriendSuccess struct {
	State  string `json:"state"`
	ChatID ChatID `json:"chatId"`
}

// QuitGroupChat.
type QuitGroupChatSuccess struct {
	State  string `json:"state"`
	ChatID ChatID `json:"chatId"`
}

// SetAlreadyRead.
const (
	StateNotPrivate = "NotPrivate"
	StateNotInChat  = "NotInChat"
)

type SetOppositeReadCursorData struct {
	ChatID   ChatID    `json:"chatId"`
	InChatID MessageID `json:"inChatId"`
}

// GetGroupUsers / GetGroupAdmin.
type GroupUsersSuccess struct {
	State   string   `json:"state"`
	ChatID  ChatID   `json:"chatId"`
	UserIDs []UserID `json:"userIds"`
}

func NewGroupUsersSuccess(chatID ChatID, ids []UserID) GroupUsersSuccess {
	return GroupUsersSuccess{State: StateSuccess, ChatID: chatID, UserIDs: ids}
}

// SetGroupAdmin / UnsetGroupAdmin / GroupOwnerTransfer / RemoveGroupMember /
// GetGroupOwner all answer with a chat and a user on success.
const (
	StateAlreadyAdmin = "AlreadyAdmin"
	StateNotAdmin     = "NotAdmin"
)

type ChatUserSuccess struct {
	State  string `json:"state"`
	ChatID ChatID `json:"chatId"`
	UserID UserID `json:"userId"`
}

func NewChatUserSuccess(chatID ChatID, userID UserID) ChatUserSuccess {
	return ChatUserSuccess{State: StateSuccess, ChatID: chatID, UserID: userID}
}

// SendGroupNotice.
type SendGroupNoticeSuccess struct {
	State     string    `json:"state"`
	ChatID    ChatID    `json:"chatId"`
	ClientID  ClientID  `json:"clientId"`
	NoticeID  NoticeID  `json:"noticeId"`
	Timestamp Timestamp `json:"timestamp"`
}

type SendGroupNoticeLengthExceeded struct {
	State    string   `json:"state"`
	ClientID ClientID `json:"clientId"`
	ChatID   ChatID   `json:"chatId"`
}

// PullGroupNotice.
type PullGroupNoticeSuccess struct {
	State       string   `json:"state"`
	ChatID      ChatID   `json:"chatId"`
	GroupNotice []string `json:"groupNotice"`
}

// Upload.
const (
	StateApprove      = "Approve"
	StateExisted      = "Existed"
	StateOSSError     = "OSSError"
	StateFileTooLarge = "FileTooLarge"
)

type UploadFileRequestResponse struct {
	UserHash string    `json:"userHash"`
	State    string    `json:"state"`
	URL      *string   `json:"url"`
	UploadID *UploadID `json:"uploadId"`
}

const (
	StateFileHashError  = "FileHashError"
	StateFileSizeError  = "FileSizeError"
	StateNotUploader    = "NotUploader"
	StateObjectNotFound = "ObjectNotFound"
)

type FileUploadedResponse struct {
	UploadID UploadID `json:"uploadId"`
	State    string   `json:"state"`
	URL      *string  `json:"url"`
}

const StateFileNotExisted = "FileNotExisted"

type GetFileUrlResponse struct {
	Hash  string  `json:"hash"`
	State string  `json:"state"`
	URL   *string `json:"url"`
}

// RevokeMessage keeps its original snake_case field names on the wire.
const (
	StateTimeLimitExceeded = "TimeLimitExceeded"
	StatePermissionsDenied = "PermissionsDenied"
	StateMessageNotExisted = "MessageNotExisted"
)

type RevokeMessageResponse struct {
	ChatID   ChatID    `json:"chat_id"`
	InChatID MessageID `json:"in_chat_id"`
	State    string    `json:"state"`
}

// GetUserID.
const StateNotFound = "NotFound"

type GetUserIDSuccess struct {
	State   string   `json:"state"`
	UserIDs []UserID `json:"userIds"`
}

// GetUserReadInGroup.
type UserReadInGroupSuccess struct {
	State    string    `json:"state"`
	ChatID   ChatID    `json:"chatId"`
	InChatID MessageID `json:"inChatId"`
	UserIDs  []UserID  `json:"userIds"`
}

// GetUserReadInPrivate.
const StateNotPrivateChat = "NotPrivateChat"

type UserReadInPrivateSuccess struct {
	State    string    `json:"state"`
	ChatID   ChatID    `json:"chatId"`
	InChatID MessageID `json:"inChatId"`
}

// MediaCall responses are bare state strings on the wire.
const (
	MediaCallVideo = "Video"
	MediaCallVoice = "Voice"
)
