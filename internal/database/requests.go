package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmail-project/dmail-backend/internal/models"
)

// WriteRequest assigns a request id, persists the info record and indexes the
// id for the sender and every handler. Returns the serialized wire form.
func WriteRequest(ctx context.Context, senderID models.UserID, data models.SendRequestData, handler models.RequestHandler) (string, models.RequestInfo, error) {
	id64, err := RedisClient.Incr(ctx, keyLastReqID).Result()
	if err != nil {
		return "", models.RequestInfo{}, fmt.Errorf("allocate request id: %w", err)
	}
	reqID := models.ReqID(id64)

	info := models.RequestInfo{
		ReqID:    reqID,
		SenderID: senderID,
		Message:  data.Message,
		Content:  data.Content,
	}
	serializedInfo, _ := json.Marshal(info)

	if err := RedisClient.Set(ctx, reqInfoKey(reqID), serializedInfo, 0).Err(); err != nil {
		return "", models.RequestInfo{}, fmt.Errorf("write request info: %w", err)
	}

	pipe := RedisClient.Pipeline()
	for _, userID := range handler.IDs() {
		pipe.ZAdd(ctx, userReqsKey(userID), redis.Z{Score: float64(reqID), Member: reqID})
	}
	pipe.ZAdd(ctx, userReqsKey(senderID), redis.Z{Score: float64(reqID), Member: reqID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", models.RequestInfo{}, fmt.Errorf("index request: %w", err)
	}

	serialized := fmt.Sprintf(`{"info":%s,"state":"Unsolved"}`, serializedInfo)
	return serialized, info, nil
}

// GetRequest loads a request; ok is false when the id was never assigned.
// The state is stored as a bool, absent means unsolved.
func GetRequest(ctx context.Context, reqID models.ReqID) (models.UserRequest, bool, error) {
	pipe := RedisClient.Pipeline()
	infoCmd := pipe.Get(ctx, reqInfoKey(reqID))
	stateCmd := pipe.Get(ctx, reqStateKey(reqID))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return models.UserRequest{}, false, fmt.Errorf("read request: %w", err)
	}

	serializedInfo, err := infoCmd.Result()
	if err == redis.Nil {
		return models.UserRequest{}, false, nil
	}
	if err != nil {
		return models.UserRequest{}, false, fmt.Errorf("read request info: %w", err)
	}

	var info models.RequestInfo
	if err := json.Unmarshal([]byte(serializedInfo), &info); err != nil {
		return models.UserRequest{}, false, fmt.Errorf("parse request info: %w", err)
	}

	state := models.ReqUnsolved
	if rawState, err := stateCmd.Result(); err == nil {
		if rawState == "1" {
			state = models.ReqApproved
		} else {
			state = models.ReqRefused
		}
	}
	return models.UserRequest{Info: info, State: state}, true, nil
}

// SetRequestState transitions an unsolved request to its terminal state. The
// check-then-set mirrors the storage contract: the second solver observes the
// stored state and gets ErrAlreadySolved.
func SetRequestState(ctx context.Context, reqID models.ReqID, state models.RequestState) error {
	_, err := RedisClient.Get(ctx, reqStateKey(reqID)).Result()
	if err == nil {
		return ErrAlreadySolved
	}
	if err != redis.Nil {
		return fmt.Errorf("read request state: %w", err)
	}

	var stateBool int
	switch state {
	case models.ReqApproved:
		stateBool = 1
	case models.ReqRefused:
		stateBool = 0
	default:
		return ErrAnswerUnsolved
	}
	if err := RedisClient.Set(ctx, reqStateKey(reqID), stateBool, 0).Err(); err != nil {
		return fmt.Errorf("write request state: %w", err)
	}
	return nil
}

// UserRequests returns the serialized requests indexed for a user from
// startID on.
func UserRequests(ctx context.Context, userID models.UserID, startID models.ReqID) ([]string, error) {
	rawIDs, err := RedisClient.ZRangeByScore(ctx, userReqsKey(userID), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", startID),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read request index: %w", err)
	}

	reqs := make([]string, 0, len(rawIDs))
	for _, raw := range rawIDs {
		var reqID models.ReqID
		if _, err := fmt.Sscanf(raw, "%d", &reqID); err != nil {
			continue
		}
		req, ok, err := GetRequest(ctx, reqID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		serializedInfo, _ := json.Marshal(req.Info)
		reqs = append(reqs, fmt.Sprintf(`{"info":%s,"state":"%s"}`, serializedInfo, req.State))
	}
	return reqs, nil
}

// StoreUserRequest indexes an existing request for one more user, used when a
// chained request is issued to group admins.
func StoreUserRequest(ctx context.Context, userID models.UserID, reqID models.ReqID) error {
	err := RedisClient.ZAdd(ctx, userReqsKey(userID), redis.Z{Score: float64(reqID), Member: reqID}).Err()
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	return nil
}

// In-flight markers written on send and cleared on refusal.

// WriteFriendRequestMark records a pending friend request as chat id 0.
func WriteFriendRequestMark(ctx context.Context, a, b models.UserID) error {
	if err := RedisClient.HSet(ctx, keyFriendChatMap, friendPairField(a, b), 0).Err(); err != nil {
		return fmt.Errorf("write friend mark: %w", err)
	}
	return nil
}

func DeleteFriendRequestMark(ctx context.Context, a, b models.UserID) error {
	if err := RedisClient.HDel(ctx, keyFriendChatMap, friendPairField(a, b)).Err(); err != nil {
		return fmt.Errorf("delete friend mark: %w", err)
	}
	return nil
}

func WriteJoinGroupMark(ctx context.Context, userID models.UserID, chatID models.ChatID) error {
	if err := RedisClient.SAdd(ctx, userPreJoinKey(userID), chatID).Err(); err != nil {
		return fmt.Errorf("write pre-join mark: %w", err)
	}
	return nil
}

func DeleteJoinGroupMark(ctx context.Context, userID models.UserID, chatID models.ChatID) error {
	if err := RedisClient.SRem(ctx, userPreJoinKey(userID), chatID).Err(); err != nil {
		return fmt.Errorf("delete pre-join mark: %w", err)
	}
	return nil
}

func WriteInvitationMark(ctx context.Context, inviter, receiver models.UserID, chatID models.ChatID) error {
	if err := RedisClient.HSet(ctx, keyInvitationMap, invitationField(inviter, receiver, chatID), 1).Err(); err != nil {
		return fmt.Errorf("write invitation mark: %w", err)
	}
	return nil
}

func DeleteInvitationMark(ctx context.Context, inviter, receiver models.UserID, chatID models.ChatID) error {
	if err := RedisClient.HDel(ctx, keyInvitationMap, invitationField(inviter, receiver, chatID)).Err(); err != nil {
		return fmt.Errorf("delete invitation mark: %w", err)
	}
	return nil
}

// Precondition checks for each request kind. A non-empty string is the
// errorType to report; the bool distinguishes storage failures.

func checkUsersExist(ctx context.Context, ids ...models.UserID) (bool, error) {
	last, err := LastUserID(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id > last {
			return false, nil
		}
		exists, err := UserExists(ctx, id)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

// CheckMakeFriend validates a friend request between sender and receiver.
func CheckMakeFriend(ctx context.Context, sender, receiver models.UserID) (string, error) {
	if sender == receiver {
		return models.ReqErrSameUser, nil
	}
	ok, err := checkUsersExist(ctx, sender, receiver)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if !ok {
		return models.ReqErrUserNotFound, nil
	}
	chatID, found, err := ChatIDByFriends(ctx, sender, receiver)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if found {
		if chatID == 0 {
			return models.ReqErrRequestExisted, nil
		}
		return models.ReqErrAlreadyBeFrineds, nil
	}
	return "", nil
}

// CheckJoinGroup validates a join request against the target chat.
func CheckJoinGroup(ctx context.Context, userID models.UserID, chatID models.ChatID) (string, error) {
	exists, err := UserExists(ctx, userID)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if !exists {
		return models.ReqErrUserNotFound, nil
	}
	isGroup, err := IsGroupChat(ctx, chatID)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if !isGroup {
		return models.ReqErrNotGroupChat, nil
	}
	inChat, err := UserInChat(ctx, userID, chatID)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if inChat {
		return models.ReqErrAlreadyInGroup, nil
	}
	pending, err := RedisClient.SIsMember(ctx, userPreJoinKey(userID), chatID).Result()
	if err != nil {
		return models.ReqErrDatabaseError, fmt.Errorf("check pre-join: %w", err)
	}
	if pending {
		return models.ReqErrRequestExisted, nil
	}
	return "", nil
}

// CheckGroupInvitation validates an invitation from a member to a friend.
func CheckGroupInvitation(ctx context.Context, sender, receiver models.UserID, chatID models.ChatID) (string, error) {
	if sender == receiver {
		return models.ReqErrSameUser, nil
	}
	ok, err := checkUsersExist(ctx, sender, receiver)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if !ok {
		return models.ReqErrUserNotFound, nil
	}
	inChat, err := UserInChat(ctx, sender, chatID)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if !inChat {
		return models.ReqErrUserNotInChat, nil
	}
	isGroup, err := IsGroupChat(ctx, chatID)
	if err != nil || !isGroup {
		return models.ReqErrNotGroupChat, err
	}
	_, friends, err := ChatIDByFriends(ctx, sender, receiver)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if !friends {
		return models.ReqErrNotFriend, nil
	}
	alreadyIn, err := UserInChat(ctx, receiver, chatID)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if alreadyIn {
		return models.ReqErrAlreadyInGroup, nil
	}
	pending, err := RedisClient.HExists(ctx, keyInvitationMap, invitationField(sender, receiver, chatID)).Result()
	if err != nil {
		return models.ReqErrDatabaseError, fmt.Errorf("check invitation: %w", err)
	}
	if pending {
		return models.ReqErrRequestExist, nil
	}
	return "", nil
}

// CheckInvitedJoinGroup validates the chained admin-approval request.
func CheckInvitedJoinGroup(ctx context.Context, inviter, userID models.UserID, chatID models.ChatID) (string, error) {
	if inviter == userID {
		return models.ReqErrSameUser, nil
	}
	ok, err := checkUsersExist(ctx, inviter, userID)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if !ok {
		return models.ReqErrUserNotFound, nil
	}
	inChat, err := UserInChat(ctx, inviter, chatID)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if !inChat {
		return models.ReqErrUserNotInChat, nil
	}
	isGroup, err := IsGroupChat(ctx, chatID)
	if err != nil || !isGroup {
		return models.ReqErrNotGroupChat, err
	}
	alreadyIn, err := UserInChat(ctx, userID, chatID)
	if err != nil {
		return models.ReqErrDatabaseError, err
	}
	if alreadyIn {
		return models.ReqErrAlreadyInGroup, nil
	}
	return "", nil
}
