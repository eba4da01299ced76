package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/models"
)

// FriendChat pairs a dissolved friendship with its private chat, returned by
// LogOffUser so the caller can notify each peer.
type FriendChat struct {
	FriendID models.UserID
	ChatID   models.ChatID
}

// RegisterUser allocates a fresh user id and writes the initial records.
// Returns ErrEmailRegistered when the email is already mapped.
func RegisterUser(ctx context.Context, userName, password, email string) (models.UserID, error) {
	exists, err := RedisClient.HExists(ctx, keyUserEmailMap, email).Result()
	if err != nil {
		return 0, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return 0, ErrEmailRegistered
	}

	id64, err := RedisClient.Incr(ctx, keyLastUserID).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate user id: %w", err)
	}
	userID := models.UserID(id64)

	info, _ := json.Marshal(models.UserInfo{UserID: userID, UserName: userName})

	pipe := RedisClient.Pipeline()
	pipe.Set(ctx, userInfoKey(userID), info, 0)
	pipe.Set(ctx, userPasswordKey(userID), password, 0)
	pipe.Set(ctx, userExistKey(userID), 1, 0)
	pipe.Set(ctx, userEmailKey(userID), email, 0)
	pipe.HSet(ctx, keyUserEmailMap, email, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("write user records: %w", err)
	}

	if err := addUserNameID(ctx, userName, userID); err != nil {
		return 0, err
	}
	return userID, nil
}

// LoginByPassword resolves the email and compares the stored password hash.
func LoginByPassword(ctx context.Context, email, password string) (models.UserID, error) {
	userID, ok, err := UserIDByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUserNotFound
	}
	stored, err := RedisClient.Get(ctx, userPasswordKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("read password: %w", err)
	}
	if stored != password {
		return 0, ErrPasswordError
	}
	return userID, nil
}

// LoginByToken compares the stored token and checks its expiry.
func LoginByToken(ctx context.Context, email, token string) (models.UserID, error) {
	userID, ok, err := UserIDByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUserNotFound
	}
	serialized, err := RedisClient.Get(ctx, userTokenKey(userID)).Result()
	if err == redis.Nil {
		return 0, ErrTokenError
	}
	if err != nil {
		return 0, fmt.Errorf("read token: %w", err)
	}
	var stored models.Token
	if err := json.Unmarshal([]byte(serialized), &stored); err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	if stored.Token != token {
		return 0, ErrTokenError
	}
	expireMs := models.Timestamp(config.Get().User.TokenExpireTime) * 1000
	if nowMillis()-stored.Timestamp > expireMs {
		return 0, ErrTokenExpired
	}
	return userID, nil
}

// ApplyForToken issues and persists a fresh login token.
func ApplyForToken(ctx context.Context, userID models.UserID) (models.Token, error) {
	token := models.Token{
		Token:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		Timestamp: nowMillis(),
	}
	serialized, _ := json.Marshal(token)
	if err := RedisClient.Set(ctx, userTokenKey(userID), serialized, 0).Err(); err != nil {
		return models.Token{}, fmt.Errorf("write token: %w", err)
	}
	return token, nil
}

func UserIDByEmail(ctx context.Context, email string) (models.UserID, bool, error) {
	id, err := RedisClient.HGet(ctx, keyUserEmailMap, email).Uint64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve email: %w", err)
	}
	return models.UserID(id), true, nil
}

// UserChatList returns every (chatId, readCursor) pair of the user.
func UserChatList(ctx context.Context, userID models.UserID) ([][2]uint64, error) {
	entries, err := RedisClient.HGetAll(ctx, userChatsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read chat list: %w", err)
	}
	chats := make([][2]uint64, 0, len(entries))
	for chat, cursor := range entries {
		var pair [2]uint64
		if _, err := fmt.Sscanf(chat, "%d", &pair[0]); err != nil {
			continue
		}
		fmt.Sscanf(cursor, "%d", &pair[1])
		chats = append(chats, pair)
	}
	return chats, nil
}

// GetUserInfo loads the public user record. ErrNotFound when absent.
func GetUserInfo(ctx context.Context, userID models.UserID) (models.UserInfo, error) {
	serialized, err := RedisClient.Get(ctx, userInfoKey(userID)).Result()
	if err == redis.Nil {
		return models.UserInfo{}, ErrNotFound
	}
	if err != nil {
		return models.UserInfo{}, fmt.Errorf("read user info: %w", err)
	}
	var info models.UserInfo
	if err := json.Unmarshal([]byte(serialized), &info); err != nil {
		return models.UserInfo{}, fmt.Errorf("parse user info: %w", err)
	}
	return info, nil
}

func UserEmail(ctx context.Context, userID models.UserID) (string, error) {
	email, err := RedisClient.Get(ctx, userEmailKey(userID)).Result()
	if err != nil {
		return "", fmt.Errorf("read user email: %w", err)
	}
	return email, nil
}

// UserExists reports whether the user has been registered and not tombstoned.
func UserExists(ctx context.Context, userID models.UserID) (bool, error) {
	exist, err := RedisClient.Get(ctx, userExistKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read exist flag: %w", err)
	}
	return exist == "1", nil
}

func LastUserID(ctx context.Context) (models.UserID, error) {
	id, err := RedisClient.Get(ctx, keyLastUserID).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read last user id: %w", err)
	}
	return models.UserID(id), nil
}

func SetUserSetting(ctx context.Context, userID models.UserID, setting string) error {
	if err := RedisClient.Set(ctx, userSettingKey(userID), setting, 0).Err(); err != nil {
		return fmt.Errorf("write setting: %w", err)
	}
	return nil
}

func GetUserSetting(ctx context.Context, userID models.UserID) (string, bool, error) {
	setting, err := RedisClient.Get(ctx, userSettingKey(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting: %w", err)
	}
	return setting, true, nil
}

// UpdateUserName rewrites the info record and moves the name mapping.
func UpdateUserName(ctx context.Context, userID models.UserID, newName string) error {
	info, err := GetUserInfo(ctx, userID)
	if err != nil {
		return err
	}
	oldName := info.UserName
	info.UserName = newName
	serialized, _ := json.Marshal(info)
	if err := RedisClient.Set(ctx, userInfoKey(userID), serialized, 0).Err(); err != nil {
		return fmt.Errorf("write user info: %w", err)
	}
	if err := addUserNameID(ctx, newName, userID); err != nil {
		return err
	}
	return delUserNameID(ctx, oldName, userID)
}

func UpdateUserAvater(ctx context.Context, userID models.UserID, newHash string) error {
	info, err := GetUserInfo(ctx, userID)
	if err != nil {
		return err
	}
	info.AvaterHash = newHash
	serialized, _ := json.Marshal(info)
	if err := RedisClient.Set(ctx, userInfoKey(userID), serialized, 0).Err(); err != nil {
		return fmt.Errorf("write user info: %w", err)
	}
	return nil
}

func UpdateUserPassword(ctx context.Context, userID models.UserID, newPassword string) error {
	if err := RedisClient.Set(ctx, userPasswordKey(userID), newPassword, 0).Err(); err != nil {
		return fmt.Errorf("write password: %w", err)
	}
	return nil
}

// UserIDsByName resolves a display name to the ids carrying it.
func UserIDsByName(ctx context.Context, name string) ([]models.UserID, bool, error) {
	serialized, err := RedisClient.HGet(ctx, keyNameIDMap, name).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("resolve name: %w", err)
	}
	var ids []models.UserID
	if err := json.Unmarshal([]byte(serialized), &ids); err != nil {
		return nil, false, fmt.Errorf("parse name ids: %w", err)
	}
	return ids, true, nil
}

func addUserNameID(ctx context.Context, name string, userID models.UserID) error {
	ids, _, err := UserIDsByName(ctx, name)
	if err != nil {
		return err
	}
	ids = append(ids, userID)
	serialized, _ := json.Marshal(ids)
	if err := RedisClient.HSet(ctx, keyNameIDMap, name, serialized).Err(); err != nil {
		return fmt.Errorf("write name ids: %w", err)
	}
	return nil
}

func delUserNameID(ctx context.Context, name string, userID models.UserID) error {
	ids, ok, err := UserIDsByName(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	kept := ids[:0]
	for _, id := range ids {
		if id != userID {
			kept = append(kept, id)
		}
	}
	serialized, _ := json.Marshal(kept)
	if err := RedisClient.HSet(ctx, keyNameIDMap, name, serialized).Err(); err != nil {
		return fmt.Errorf("write name ids: %w", err)
	}
	return nil
}

// WriteUserNotice stores a notice for replay, scored by timestamp.
func WriteUserNotice(ctx context.Context, userID models.UserID, ts models.Timestamp, serialized string) error {
	err := RedisClient.ZAdd(ctx, userNoticeKey(userID), redis.Z{
		Score:  float64(ts),
		Member: serialized,
	}).Err()
	if err != nil {
		return fmt.Errorf("write notice: %w", err)
	}
	return nil
}

// UserNotices returns every stored notice at or after sinceTs.
func UserNotices(ctx context.Context, userID models.UserID, sinceTs models.Timestamp) ([]string, error) {
	notices, err := RedisClient.ZRangeByScore(ctx, userNoticeKey(userID), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", sinceTs),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read notices: %w", err)
	}
	return notices, nil
}

// LogOffUser tombstones the account. It refuses when the user still owns a
// group. On success it returns the dissolved friendships so the caller can
// push DeleteChat to each peer.
func LogOffUser(ctx context.Context, userID models.UserID) ([]FriendChat, error) {
	chats, err := UserChatList(ctx, userID)
	if err != nil {
		return nil, err
	}

	var groups []models.ChatID
	var friends []FriendChat
	for _, pair := range chats {
		chatID := models.ChatID(pair[0])
		members, err := ChatUserList(ctx, chatID)
		if err != nil {
			return nil, err
		}
		if members.IsGroup {
			owner, err := ChatOwner(ctx, chatID)
			if err != nil {
				return nil, err
			}
			if owner == userID {
				return nil, ErrNoPermission
			}
			groups = append(groups, chatID)
		} else {
			friends = append(friends, FriendChat{FriendID: members.Other(userID), ChatID: chatID})
		}
	}

	email, err := UserEmail(ctx, userID)
	if err != nil {
		return nil, err
	}
	removed, err := RedisClient.HDel(ctx, keyUserEmailMap, email).Result()
	if err != nil {
		return nil, fmt.Errorf("remove email mapping: %w", err)
	}
	if removed == 0 {
		return nil, ErrUserNotFound
	}
	if err := RedisClient.Del(ctx, userEmailKey(userID)).Err(); err != nil {
		return nil, fmt.Errorf("remove email record: %w", err)
	}

	for _, fc := range friends {
		if _, err := Unfriend(ctx, userID, fc.FriendID); err != nil {
			return nil, err
		}
	}
	for _, chatID := range groups {
		if err := QuitGroupChat(ctx, userID, chatID); err != nil {
			return nil, err
		}
	}

	if err := UpdateUserName(ctx, userID, models.LogOffName); err != nil {
		return nil, err
	}
	if err := RedisClient.Set(ctx, userExistKey(userID), 0, 0).Err(); err != nil {
		return nil, fmt.Errorf("write exist flag: %w", err)
	}
	return friends, nil
}

func nowMillis() models.Timestamp {
	return models.Timestamp(time.Now().UnixMilli())
}
