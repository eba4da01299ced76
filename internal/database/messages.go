package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmail-project/dmail-backend/internal/models"
)

var ErrChatNotFound = fmt.Errorf("chat not found")

// SendTarget describes who a message in a chat reaches, resolved while
// authorizing the sender.
type SendTarget struct {
	IsGroup   bool
	GroupSize int64
	Pair      [2]models.UserID
}

// CheckUserCanSendInChat authorizes a sender. User id 0 is the system sender
// and may write into any chat.
func CheckUserCanSendInChat(ctx context.Context, userID models.UserID, chatID models.ChatID) (SendTarget, error) {
	exists, err := ChatExists(ctx, chatID)
	if err != nil {
		return SendTarget{}, err
	}
	if !exists {
		return SendTarget{}, ErrChatNotFound
	}

	isGroup, err := IsGroupChat(ctx, chatID)
	if err != nil {
		return SendTarget{}, err
	}
	if isGroup {
		pipe := RedisClient.Pipeline()
		member := pipe.SIsMember(ctx, chatUsersKey(chatID), userID)
		card := pipe.SCard(ctx, chatUsersKey(chatID))
		if _, err := pipe.Exec(ctx); err != nil {
			return SendTarget{}, fmt.Errorf("check group sender: %w", err)
		}
		if !member.Val() && userID != 0 {
			return SendTarget{}, ErrUserNotInChat
		}
		return SendTarget{IsGroup: true, GroupSize: card.Val()}, nil
	}

	pair, err := privateChatPair(ctx, chatID)
	if err == ErrNotFound {
		return SendTarget{}, ErrUserNotInChat
	}
	if err != nil {
		return SendTarget{}, err
	}
	if userID != pair[0] && userID != pair[1] && userID != 0 {
		return SendTarget{}, ErrUserNotInChat
	}
	return SendTarget{Pair: pair}, nil
}

// WriteMessage allocates the next in-chat id and appends the serialized
// message. The INCR linearizes concurrent appends to one chat.
func WriteMessage(ctx context.Context, msgType models.ChatMessageType, serializedContent string, chatID models.ChatID, senderID models.UserID) (string, models.MessageID, models.Timestamp, error) {
	timestamp := nowMillis()

	id64, err := RedisClient.Incr(ctx, chatLastIDKey(chatID)).Result()
	if err != nil {
		return "", 0, 0, fmt.Errorf("allocate message id: %w", err)
	}
	inChatID := models.MessageID(id64)

	// serializedContent is opaque client JSON carried as a string field, so
	// it is quoted once more here. The revoke tombstone relies on the same
	// shape.
	quotedContent, _ := json.Marshal(serializedContent)
	serialized := fmt.Sprintf(
		`{"type":"%s", "inChatId":%d, "chatId":%d, "senderId":%d, "serializedContent":%s, "timestamp":%d}`,
		msgType, inChatID, chatID, senderID, quotedContent, timestamp,
	)

	err = RedisClient.ZAdd(ctx, chatMsgsKey(chatID), redis.Z{
		Score:  float64(inChatID),
		Member: serialized,
	}).Err()
	if err != nil {
		return "", 0, 0, fmt.Errorf("append message: %w", err)
	}
	return serialized, inChatID, timestamp, nil
}

// ChatsLastMessages collects the trailing window of every listed chat, used
// by the login pull.
func ChatsLastMessages(ctx context.Context, chats [][2]uint64, maxPerChat int64) ([]string, error) {
	var ret []string
	for _, pair := range chats {
		chatID := models.ChatID(pair[0])
		key := chatMsgsKey(chatID)

		end, err := RedisClient.ZCard(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("count messages: %w", err)
		}
		start := end - maxPerChat
		if start < 0 {
			start = 0
		}
		msgs, err := RedisClient.ZRange(ctx, key, start, end-1).Result()
		if err != nil {
			return nil, fmt.Errorf("read messages: %w", err)
		}
		ret = append(ret, msgs...)
	}
	return ret, nil
}

// MessagesInChat returns messages by 1-based in-chat id range; a nil end
// means up to the latest.
func MessagesInChat(ctx context.Context, chatID models.ChatID, startID models.MessageID, endID *models.MessageID) ([]string, error) {
	key := chatMsgsKey(chatID)

	var end int64
	if endID != nil {
		end = int64(*endID)
	} else {
		card, err := RedisClient.ZCard(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("count messages: %w", err)
		}
		end = card
	}

	msgs, err := RedisClient.ZRange(ctx, key, int64(startID)-1, end-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	return msgs, nil
}

// MessageAt returns the single message stored at inChatID.
func MessageAt(ctx context.Context, chatID models.ChatID, inChatID models.MessageID) (string, bool, error) {
	msgs, err := RedisClient.ZRangeByScore(ctx, chatMsgsKey(chatID), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", inChatID),
		Max: fmt.Sprintf("%d", inChatID),
	}).Result()
	if err != nil {
		return "", false, fmt.Errorf("read message: %w", err)
	}
	if len(msgs) != 1 {
		return "", false, nil
	}
	return msgs[0], true, nil
}

// RevokeMessage replaces the message at inChatID with a tombstone carrying
// the original sender and timestamp.
func RevokeMessage(ctx context.Context, chatID models.ChatID, inChatID models.MessageID, senderID models.UserID, timestamp models.Timestamp) error {
	key := chatMsgsKey(chatID)
	tombstone := fmt.Sprintf(
		`{"type":"Revoked", "inChatId":%d, "chatId":%d, "senderId":%d, "serializedContent":"\"\"", "timestamp":%d}`,
		inChatID, chatID, senderID, timestamp,
	)

	pipe := RedisClient.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, fmt.Sprintf("%d", inChatID), fmt.Sprintf("%d", inChatID))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(inChatID), Member: tombstone})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke message: %w", err)
	}
	return nil
}

// LastMessageID returns the chat's message counter.
func LastMessageID(ctx context.Context, chatID models.ChatID) (models.MessageID, error) {
	last, err := RedisClient.Get(ctx, chatLastIDKey(chatID)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read last message id: %w", err)
	}
	return last, nil
}
