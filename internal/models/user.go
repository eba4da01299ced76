package models

// UserID 0 is reserved for the system sender used by admin messages.
type UserID = uint32

type ChatID = uint64

type MessageID = uint64

type ClientID = uint64

type ReqID = uint64

type NoticeID = uint64

type UploadID = uint64

type EmailCodeValue = uint32

// Timestamp values are milliseconds since the Unix epoch.
type Timestamp = uint64

// UserInfo is the public part of a user record. The avaterHash spelling is
// fixed by the wire contract.
type UserInfo struct {
	UserID     UserID `json:"userId"`
	UserName   string `json:"userName"`
	AvaterHash string `json:"avaterHash"`
}

// Token is stored per user and compared verbatim on token login.
type Token struct {
	Token     string    `json:"token"`
	Timestamp Timestamp `json:"timestamp"`
}

// LogOffName replaces the user name of a tombstoned account.
const LogOffName = "用户已注销"
