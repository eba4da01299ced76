package models

// Client command payloads. Field names are the wire contract; optional fields
// decode as nil when absent.

type RegisterData struct {
	UserName  string         `json:"userName"`
	Password  string         `json:"password"`
	EmailCode EmailCodeValue `json:"emailCode"`
	Email     string         `json:"email"`
}

type LoginData struct {
	Email     string          `json:"email"`
	Password  *string         `json:"password"`
	EmailCode *EmailCodeValue `json:"emailCode"`
	Address   *string         `json:"address"`
	Token     *string         `json:"token"`
}

// UpdateUserInfo content, tagged by type: UserName, Password or AvaterHash.
type UpdateUserData struct {
	Type        string          `json:"type"`
	NewName     string          `json:"newName,omitempty"`
	NewPassword string          `json:"newPassword,omitempty"`
	EmailCode   *EmailCodeValue `json:"emailCode,omitempty"`
	NewHash     string          `json:"newHash,omitempty"`
}

const (
	UpdateUserName     = "UserName"
	UpdateUserPassword = "Password"
	UpdateUserAvater   = "AvaterHash"
)

type UpdateGroupData struct {
	ChatID  ChatID             `json:"chatId"`
	Content UpdateGroupContent `json:"content"`
}

type UpdateGroupContent struct {
	Type      string `json:"type"`
	NewName   string `json:"newName,omitempty"`
	NewAvater string `json:"newAvater,omitempty"`
}

const (
	UpdateGroupName   = "GroupName"
	UpdateGroupAvater = "Avater"
)

type PullData struct {
	LastRequestID   ReqID     `json:"lastRequestId"`
	NoticeTimestamp Timestamp `json:"noticeTimestamp"`
}

type SendMessageData struct {
	Type              ChatMessageType `json:"type"`
	ClientID          ClientID        `json:"clientId"`
	ChatID            ChatID          `json:"chatId"`
	Timestamp         Timestamp       `json:"timestamp"`
	SerializedContent string          `json:"serializedContent"`
}

type SendRequestData struct {
	Message  string         `json:"message"`
	Content  RequestContent `json:"content"`
	ClientID ClientID       `json:"clientId"`
}

type SolveRequestData struct {
	ReqID  ReqID        `json:"reqId"`
	Answer RequestState `json:"answer"`
}

type GetMessagesData struct {
	ChatID  ChatID     `json:"chatId"`
	StartID MessageID  `json:"startId"`
	EndID   *MessageID `json:"endId"`
}

type CreateGroupChatData struct {
	Name       string `json:"name"`
	AvaterHash string `json:"avaterHash"`
}

type SetAlreadyReadData struct {
	ChatID   ChatID    `json:"chatId"`
	InChatID MessageID `json:"inChatId"`
	Private  bool      `json:"private"`
}

type SetGroupAdminData struct {
	ChatID ChatID `json:"chatId"`
	UserID UserID `json:"userId"`
}

type UnsetGroupAdminData struct {
	ChatID ChatID `json:"chatId"`
	UserID UserID `json:"userId"`
}

type GroupOwnerTransferData struct {
	ChatID ChatID `json:"chatId"`
	UserID UserID `json:"userId"`
}

type RemoveGroupMemberData struct {
	ChatID ChatID `json:"chatId"`
	UserID UserID `json:"userId"`
}

type SendGroupNoticeData struct {
	ClientID ClientID `json:"clientId"`
	ChatID   ChatID   `json:"chatId"`
	Notice   string   `json:"notice"`
}

type PullGroupNoticeData struct {
	ChatID       ChatID   `json:"chatId"`
	LastNoticeID NoticeID `json:"lastNoticeId"`
}

type UploadFileRequestData struct {
	Suffix   string `json:"suffix"`
	UserHash string `json:"userHash"`
	Size     uint64 `json:"size"`
}

type RevokeMethod string

const (
	RevokeBySender     RevokeMethod = "Sender"
	RevokeByGroupOwner RevokeMethod = "GroupOwner"
	RevokeByGroupAdmin RevokeMethod = "GroupAdmin"
)

type RevokeMessageData struct {
	ChatID   ChatID       `json:"chatId"`
	InChatID MessageID    `json:"inChatId"`
	Method   RevokeMethod `json:"method"`
}

type MediaCallData struct {
	FriendID        UserID `json:"friendId"`
	CallType        string `json:"callType"`
	SerializedOffer string `json:"serializedOffer"`
}

type MediaCallAnswerData struct {
	FriendID         UserID  `json:"friendId"`
	Accept           bool    `json:"accept"`
	SerializedAnswer *string `json:"serializedAnswer"`
}

type MediaIceCandidateData struct {
	FriendID            UserID `json:"friendId"`
	SerializedCandidate string `json:"serializedCandidate"`
}

type MediaCallStopData struct {
	FriendID UserID `json:"friendId"`
	Reason   string `json:"reason"`
}

type GetUserReadInGroupData struct {
	ChatID   ChatID    `json:"chatId"`
	InChatID MessageID `json:"inChatId"`
}
