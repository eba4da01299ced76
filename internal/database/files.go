package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmail-project/dmail-backend/internal/models"
)

// UploadTicket binds a client-declared hash and size to an object path,
// consumed when the client reports completion.
type UploadTicket struct {
	UserID   models.UserID `json:"userId"`
	UserHash string        `json:"userHash"`
	FileSize uint64        `json:"fileSize"`
	Path     string        `json:"path"`
}

// PresignURL is a cached presigned GET with its expiry in milliseconds.
type PresignURL struct {
	Path   string           `json:"path"`
	URL    string           `json:"url"`
	Expire models.Timestamp `json:"expire"`
}

// WriteUploadTicket allocates an upload id and stores the ticket.
func WriteUploadTicket(ctx context.Context, ticket UploadTicket) (models.UploadID, error) {
	id64, err := RedisClient.Incr(ctx, keyLastUploadID).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate upload id: %w", err)
	}
	uploadID := models.UploadID(id64)

	serialized, _ := json.Marshal(ticket)
	if err := RedisClient.HSet(ctx, keyFileUpload, uploadID, serialized).Err(); err != nil {
		return 0, fmt.Errorf("write upload ticket: %w", err)
	}
	return uploadID, nil
}

// GetUploadTicket loads a ticket; ok is false for unknown ids.
func GetUploadTicket(ctx context.Context, uploadID models.UploadID) (UploadTicket, bool, error) {
	serialized, err := RedisClient.HGet(ctx, keyFileUpload, fmt.Sprintf("%d", uploadID)).Result()
	if err == redis.Nil {
		return UploadTicket{}, false, nil
	}
	if err != nil {
		return UploadTicket{}, false, fmt.Errorf("read upload ticket: %w", err)
	}
	var ticket UploadTicket
	if err := json.Unmarshal([]byte(serialized), &ticket); err != nil {
		return UploadTicket{}, false, fmt.Errorf("parse upload ticket: %w", err)
	}
	return ticket, true, nil
}

// GetFilePublicURL returns the cached presigned GET for a content hash.
func GetFilePublicURL(ctx context.Context, hash string) (PresignURL, bool, error) {
	serialized, err := RedisClient.HGet(ctx, keyFileURL, hash).Result()
	if err == redis.Nil {
		return PresignURL{}, false, nil
	}
	if err != nil {
		return PresignURL{}, false, fmt.Errorf("read file url: %w", err)
	}
	var url PresignURL
	if err := json.Unmarshal([]byte(serialized), &url); err != nil {
		return PresignURL{}, false, fmt.Errorf("parse file url: %w", err)
	}
	return url, true, nil
}

// WriteFilePublicURL caches a presigned GET under the content hash.
func WriteFilePublicURL(ctx context.Context, hash string, url PresignURL) error {
	serialized, _ := json.Marshal(url)
	if err := RedisClient.HSet(ctx, keyFileURL, hash, serialized).Err(); err != nil {
		return fmt.Errorf("write file url: %w", err)
	}
	return nil
}
