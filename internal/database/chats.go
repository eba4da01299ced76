package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmail-project/dmail-backend/internal/models"
)

// MakeFriends creates the private chat and the canonical friend-pair mapping.
func MakeFriends(ctx context.Context, a, b models.UserID) (models.ChatID, error) {
	id1, id2 := a, b
	if id1 > id2 {
		id1, id2 = id2, id1
	}

	chat64, err := RedisClient.Incr(ctx, keyLastChatID).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate chat id: %w", err)
	}
	chatID := models.ChatID(chat64)

	// Private chat info keeps the member pair instead of a name.
	info := fmt.Sprintf(`{"id":%d, "users":[%d,%d]}`, chatID, id1, id2)

	pipe := RedisClient.Pipeline()
	pipe.HSet(ctx, keyFriendChatMap, friendPairField(id1, id2), chatID)
	pipe.Set(ctx, chatInfoKey(chatID), info, 0)
	pipe.Set(ctx, chatUserSlotKey(chatID, 0), id1, 0)
	pipe.Set(ctx, chatUserSlotKey(chatID, 1), id2, 0)
	pipe.HSet(ctx, userChatsKey(id1), chatID, 0)
	pipe.HSet(ctx, userChatsKey(id2), chatID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("write private chat: %w", err)
	}
	return chatID, nil
}

// ChatIDByFriends returns the chat mapped for the pair; ok is false when no
// entry exists. A zero chat id marks a friend request in flight.
func ChatIDByFriends(ctx context.Context, a, b models.UserID) (models.ChatID, bool, error) {
	chatID, err := RedisClient.HGet(ctx, keyFriendChatMap, friendPairField(a, b)).Uint64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read friend pair: %w", err)
	}
	return chatID, true, nil
}

// Unfriend removes the pair mapping and both chat references.
func Unfriend(ctx context.Context, userID, friendID models.UserID) (models.ChatID, error) {
	chatID, ok, err := ChatIDByFriends(ctx, userID, friendID)
	if err != nil {
		return 0, err
	}
	// Chat id 0 marks a request still in flight, not a friendship.
	if !ok || chatID == 0 {
		return 0, ErrNotFriend
	}

	pipe := RedisClient.Pipeline()
	pipe.HDel(ctx, keyFriendChatMap, friendPairField(userID, friendID))
	pipe.HDel(ctx, userChatsKey(userID), fmt.Sprintf("%d", chatID))
	pipe.HDel(ctx, userChatsKey(friendID), fmt.Sprintf("%d", chatID))
	pipe.Del(ctx, chatUserSlotKey(chatID, 0))
	pipe.Del(ctx, chatUserSlotKey(chatID, 1))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("delete private chat: %w", err)
	}
	return chatID, nil
}

// CreateGroupChat allocates the chat and seeds owner, admins and members with
// the creator.
func CreateGroupChat(ctx context.Context, creator models.UserID, name, avaterHash string) (models.ChatID, error) {
	chat64, err := RedisClient.Incr(ctx, keyLastChatID).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate chat id: %w", err)
	}
	chatID := models.ChatID(chat64)

	info, _ := json.Marshal(models.ChatInfo{ID: chatID, Name: name, AvaterHash: avaterHash})

	pipe := RedisClient.Pipeline()
	pipe.Set(ctx, chatInfoKey(chatID), info, 0)
	pipe.Set(ctx, chatOwnerKey(chatID), creator, 0)
	pipe.SAdd(ctx, chatAdminsKey(chatID), creator)
	pipe.SAdd(ctx, chatUsersKey(chatID), creator)
	pipe.HSet(ctx, userChatsKey(creator), chatID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("write group chat: %w", err)
	}
	return chatID, nil
}

func AddUserToGroupChat(ctx context.Context, chatID models.ChatID, userID models.UserID) error {
	pipe := RedisClient.Pipeline()
	pipe.SAdd(ctx, chatUsersKey(chatID), userID)
	pipe.HSet(ctx, userChatsKey(userID), chatID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// ChatUserList resolves the members of either chat variant.
func ChatUserList(ctx context.Context, chatID models.ChatID) (models.ChatMembers, error) {
	isGroup, err := IsGroupChat(ctx, chatID)
	if err != nil {
		return models.ChatMembers{}, err
	}
	if isGroup {
		ids, err := RedisClient.SMembers(ctx, chatUsersKey(chatID)).Result()
		if err != nil {
			return models.ChatMembers{}, fmt.Errorf("read group members: %w", err)
		}
		users := make([]models.UserID, 0, len(ids))
		for _, raw := range ids {
			var id models.UserID
			if _, err := fmt.Sscanf(raw, "%d", &id); err == nil {
				users = append(users, id)
			}
		}
		return models.GroupMembers(users), nil
	}
	pair, err := privateChatPair(ctx, chatID)
	if err != nil {
		return models.ChatMembers{}, err
	}
	return models.PrivateMembers(pair[0], pair[1]), nil
}

// PrivateChatPair returns the two members of a private chat, or ok=false for
// a group chat.
func PrivateChatPair(ctx context.Context, chatID models.ChatID) ([2]models.UserID, bool, error) {
	isGroup, err := IsGroupChat(ctx, chatID)
	if err != nil {
		return [2]models.UserID{}, false, err
	}
	if isGroup {
		return [2]models.UserID{}, false, nil
	}
	pair, err := privateChatPair(ctx, chatID)
	if err != nil {
		return [2]models.UserID{}, false, err
	}
	return pair, true, nil
}

func privateChatPair(ctx context.Context, chatID models.ChatID) ([2]models.UserID, error) {
	pipe := RedisClient.Pipeline()
	first := pipe.Get(ctx, chatUserSlotKey(chatID, 0))
	second := pipe.Get(ctx, chatUserSlotKey(chatID, 1))
	if _, err := pipe.Exec(ctx); err != nil {
		if err == redis.Nil {
			return [2]models.UserID{}, ErrNotFound
		}
		return [2]models.UserID{}, fmt.Errorf("read private pair: %w", err)
	}
	a, err := first.Uint64()
	if err != nil {
		return [2]models.UserID{}, fmt.Errorf("read private pair: %w", err)
	}
	b, err := second.Uint64()
	if err != nil {
		return [2]models.UserID{}, fmt.Errorf("read private pair: %w", err)
	}
	return [2]models.UserID{models.UserID(a), models.UserID(b)}, nil
}

func IsGroupChat(ctx context.Context, chatID models.ChatID) (bool, error) {
	n, err := RedisClient.Exists(ctx, chatOwnerKey(chatID)).Result()
	if err != nil {
		return false, fmt.Errorf("check chat kind: %w", err)
	}
	return n > 0, nil
}

func ChatExists(ctx context.Context, chatID models.ChatID) (bool, error) {
	n, err := RedisClient.Exists(ctx, chatInfoKey(chatID)).Result()
	if err != nil {
		return false, fmt.Errorf("check chat: %w", err)
	}
	return n > 0, nil
}

// GetChatInfoSerialized returns the stored info document verbatim for the
// Chat push.
func GetChatInfoSerialized(ctx context.Context, chatID models.ChatID) (string, bool, error) {
	info, err := RedisClient.Get(ctx, chatInfoKey(chatID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read chat info: %w", err)
	}
	return info, true, nil
}

// UpdateGroupInfo rewrites one field of the stored group info.
func UpdateGroupInfo(ctx context.Context, chatID models.ChatID, content models.UpdateGroupContent) error {
	serialized, ok, err := GetChatInfoSerialized(ctx, chatID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	var info models.ChatInfo
	if err := json.Unmarshal([]byte(serialized), &info); err != nil {
		return fmt.Errorf("parse chat info: %w", err)
	}
	switch content.Type {
	case models.UpdateGroupName:
		info.Name = content.NewName
	case models.UpdateGroupAvater:
		info.AvaterHash = content.NewAvater
	}
	updated, _ := json.Marshal(info)
	if err := RedisClient.Set(ctx, chatInfoKey(chatID), updated, 0).Err(); err != nil {
		return fmt.Errorf("write chat info: %w", err)
	}
	return nil
}

// QuitGroupChat removes membership and, if present, the admin flag.
func QuitGroupChat(ctx context.Context, userID models.UserID, chatID models.ChatID) error {
	removed, err := RedisClient.SRem(ctx, chatUsersKey(chatID), userID).Result()
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if removed == 0 {
		return ErrUserNotInChat
	}
	deleted, err := RedisClient.HDel(ctx, userChatsKey(userID), fmt.Sprintf("%d", chatID)).Result()
	if err != nil {
		return fmt.Errorf("remove chat reference: %w", err)
	}
	if deleted == 0 {
		return ErrUserNotInChat
	}
	isAdmin, err := IsChatAdmin(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if isAdmin {
		if err := RedisClient.SRem(ctx, chatAdminsKey(chatID), userID).Err(); err != nil {
			return fmt.Errorf("remove admin flag: %w", err)
		}
	}
	return nil
}

func ChatOwner(ctx context.Context, chatID models.ChatID) (models.UserID, error) {
	isGroup, err := IsGroupChat(ctx, chatID)
	if err != nil {
		return 0, err
	}
	if !isGroup {
		return 0, ErrNotGroupChat
	}
	owner, err := RedisClient.Get(ctx, chatOwnerKey(chatID)).Uint64()
	if err != nil {
		return 0, fmt.Errorf("read owner: %w", err)
	}
	return models.UserID(owner), nil
}

// ChatAdmins returns the admin set of a group chat.
func ChatAdmins(ctx context.Context, chatID models.ChatID) ([]models.UserID, error) {
	isGroup, err := IsGroupChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !isGroup {
		return nil, ErrNotGroupChat
	}
	raw, err := RedisClient.SMembers(ctx, chatAdminsKey(chatID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read admins: %w", err)
	}
	admins := make([]models.UserID, 0, len(raw))
	for _, s := range raw {
		var id models.UserID
		if _, err := fmt.Sscanf(s, "%d", &id); err == nil {
			admins = append(admins, id)
		}
	}
	return admins, nil
}

func IsChatAdmin(ctx context.Context, userID models.UserID, chatID models.ChatID) (bool, error) {
	ok, err := RedisClient.SIsMember(ctx, chatAdminsKey(chatID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return ok, nil
}

func SetChatAdmin(ctx context.Context, userID models.UserID, chatID models.ChatID) error {
	added, err := RedisClient.SAdd(ctx, chatAdminsKey(chatID), userID).Result()
	if err != nil {
		return fmt.Errorf("add admin: %w", err)
	}
	if added == 0 {
		return ErrNotFound
	}
	return nil
}

func UnsetChatAdmin(ctx context.Context, userID models.UserID, chatID models.ChatID) error {
	removed, err := RedisClient.SRem(ctx, chatAdminsKey(chatID), userID).Result()
	if err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// TransferChatOwner sets the new owner and promotes them to admin if needed.
func TransferChatOwner(ctx context.Context, userID models.UserID, chatID models.ChatID) error {
	if err := RedisClient.Set(ctx, chatOwnerKey(chatID), userID, 0).Err(); err != nil {
		return fmt.Errorf("write owner: %w", err)
	}
	isAdmin, err := IsChatAdmin(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if !isAdmin {
		if err := RedisClient.SAdd(ctx, chatAdminsKey(chatID), userID).Err(); err != nil {
			return fmt.Errorf("add admin: %w", err)
		}
	}
	return nil
}

// UserInChat reports membership via the user's chat hash.
func UserInChat(ctx context.Context, userID models.UserID, chatID models.ChatID) (bool, error) {
	ok, err := RedisClient.HExists(ctx, userChatsKey(userID), fmt.Sprintf("%d", chatID)).Result()
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

// SetAlreadyRead moves the user's read cursor, rejecting cursors past the
// last message of the chat.
func SetAlreadyRead(ctx context.Context, userID models.UserID, chatID models.ChatID, inChatID models.MessageID) error {
	last, err := RedisClient.Get(ctx, chatLastIDKey(chatID)).Uint64()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read last message id: %w", err)
	}
	if inChatID > last {
		return ErrCursorAhead
	}
	if err := RedisClient.HSet(ctx, userChatsKey(userID), chatID, inChatID).Err(); err != nil {
		return fmt.Errorf("write read cursor: %w", err)
	}
	return nil
}

// ReadCursor returns the user's read cursor in a chat.
func ReadCursor(ctx context.Context, userID models.UserID, chatID models.ChatID) (models.MessageID, error) {
	cursor, err := RedisClient.HGet(ctx, userChatsKey(userID), fmt.Sprintf("%d", chatID)).Uint64()
	if err == redis.Nil {
		return 0, ErrUserNotInChat
	}
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	return cursor, nil
}

// GroupReadersAtLeast lists members whose cursor reached inChatID.
func GroupReadersAtLeast(ctx context.Context, chatID models.ChatID, inChatID models.MessageID) ([]models.UserID, error) {
	members, err := ChatUserList(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !members.IsGroup {
		return nil, ErrNotGroupChat
	}
	reads := make([]models.UserID, 0, len(members.Users))
	for _, userID := range members.Users {
		cursor, err := ReadCursor(ctx, userID, chatID)
		if err == ErrUserNotInChat {
			continue
		}
		if err != nil {
			return nil, err
		}
		if cursor >= inChatID {
			reads = append(reads, userID)
		}
	}
	return reads, nil
}

// AddGroupNotice appends an announcement and returns its id and timestamp.
func AddGroupNotice(ctx context.Context, userID models.UserID, chatID models.ChatID, notice string) (models.NoticeID, models.Timestamp, error) {
	timestamp := nowMillis()
	id64, err := RedisClient.Incr(ctx, chatLastNoticeIDKey(chatID)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("allocate notice id: %w", err)
	}
	noticeID := models.NoticeID(id64)

	serialized, _ := json.Marshal(models.GroupNotice{
		ChatID:    chatID,
		NoticeID:  noticeID,
		SenderID:  userID,
		Content:   notice,
		Timestamp: timestamp,
	})
	err = RedisClient.ZAdd(ctx, chatNoticeKey(chatID), redis.Z{
		Score:  float64(noticeID),
		Member: serialized,
	}).Err()
	if err != nil {
		return 0, 0, fmt.Errorf("write group notice: %w", err)
	}
	return noticeID, timestamp, nil
}

// GroupNotices returns the serialized announcements after lastNoticeID.
func GroupNotices(ctx context.Context, chatID models.ChatID, lastNoticeID models.NoticeID) ([]string, error) {
	end, err := RedisClient.ZCard(ctx, chatNoticeKey(chatID)).Result()
	if err != nil {
		return nil, fmt.Errorf("count notices: %w", err)
	}
	notices, err := RedisClient.ZRange(ctx, chatNoticeKey(chatID), int64(lastNoticeID), end-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read notices: %w", err)
	}
	return notices, nil
}
