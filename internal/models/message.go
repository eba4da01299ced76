package models

type ChatMessageType string

const (
	MsgText        ChatMessageType = "Text"
	MsgImage       ChatMessageType = "Image"
	MsgFile        ChatMessageType = "File"
	MsgVoice       ChatMessageType = "Voice"
	MsgTransfer    ChatMessageType = "Transfer"
	MsgRevoked     ChatMessageType = "Revoked"
	MsgReplyText   ChatMessageType = "ReplyText"
	MsgMentionText ChatMessageType = "MentionText"
)

// ChatMessage is the persisted and pushed message shape. SerializedContent is
// an opaque JSON document produced by the client; the server only inspects it
// for MentionText.
type ChatMessage struct {
	Type              ChatMessageType `json:"type"`
	InChatID          MessageID       `json:"inChatId"`
	ChatID            ChatID          `json:"chatId"`
	SenderID          UserID          `json:"senderId"`
	SerializedContent string          `json:"serializedContent"`
	Timestamp         Timestamp       `json:"timestamp"`
}

// MentionTextContent is the parsed form of a MentionText body.
type MentionTextContent struct {
	UserIDs []UserID `json:"userIds"`
	Text    string   `json:"text"`
}

// GroupNotice is a group announcement stored in chat:{id}:notices.
type GroupNotice struct {
	ChatID    ChatID    `json:"chatId"`
	NoticeID  NoticeID  `json:"noticeId"`
	SenderID  UserID    `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// UserNotice is pushed when a message is revoked or the user is mentioned,
// and persisted per user for replay on the next pull.
type UserNotice struct {
	State     string    `json:"state"`
	ChatID    ChatID    `json:"chatId"`
	InChatID  MessageID `json:"inChatId"`
	Timestamp Timestamp `json:"timestamp"`
}

const (
	NoticeRevoked   = "Revoked"
	NoticeMentioned = "Mentioned"
)
