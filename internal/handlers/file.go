package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/database"
	"github.com/dmail-project/dmail-backend/internal/models"
	"github.com/dmail-project/dmail-backend/internal/services"
)

var imageSuffixes = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
}

func putExpireFor(suffix string) int64 {
	if imageSuffixes[strings.ToLower(strings.TrimPrefix(suffix, "."))] {
		return config.Get().S3.PresignPutImageExpire
	}
	return config.Get().S3.PresignPutFileExpire
}

// handleUploadFileRequest deduplicates by content hash: a known hash is
// answered with the existing download URL, otherwise the client gets a
// presigned PUT and an upload ticket to complete later.
func (s *Session) handleUploadFileRequest(ctx context.Context, data json.RawMessage) {
	var req models.UploadFileRequestData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvUploadFileRequestResponse, models.State(models.StateServerError))
		return
	}

	respond := func(state string, url *string, uploadID *models.UploadID) {
		s.reply(models.SrvUploadFileRequestResponse, models.UploadFileRequestResponse{
			UserHash: req.UserHash,
			State:    state,
			URL:      url,
			UploadID: uploadID,
		})
	}

	if services.OSS == nil {
		respond(models.StateOSSError, nil, nil)
		return
	}

	url, ok, err := services.OSS.PublicURL(ctx, req.UserHash)
	if err != nil {
		s.log.WithError(err).Error("lookup file url failed")
		respond(models.StateDatabaseError, nil, nil)
		return
	}
	if ok {
		respond(models.StateExisted, &url, nil)
		return
	}

	path := services.NewObjectPath(req.Suffix)
	putURL, err := services.OSS.PresignPut(path, putExpireFor(req.Suffix))
	if err != nil {
		s.log.WithError(err).Error("presign put failed")
		respond(models.StateOSSError, nil, nil)
		return
	}
	uploadID, err := database.WriteUploadTicket(ctx, database.UploadTicket{
		UserID:   s.userID,
		UserHash: req.UserHash,
		FileSize: req.Size,
		Path:     path,
	})
	if err != nil {
		s.log.WithError(err).Error("write upload ticket failed")
		respond(models.StateDatabaseError, nil, nil)
		return
	}
	respond(models.StateApprove, &putURL, &uploadID)
}

// handleFileUploaded verifies the object the client claims to have uploaded
// against its ticket, then publishes the download URL under the content hash.
func (s *Session) handleFileUploaded(ctx context.Context, data json.RawMessage) {
	var uploadID models.UploadID
	if err := json.Unmarshal(data, &uploadID); err != nil {
		s.reply(models.SrvFileUploadedResponse, models.State(models.StateServerError))
		return
	}

	respond := func(state string, url *string) {
		s.reply(models.SrvFileUploadedResponse, models.FileUploadedResponse{
			UploadID: uploadID,
			State:    state,
			URL:      url,
		})
	}

	if services.OSS == nil {
		respond(models.StateOSSError, nil)
		return
	}

	ticket, ok, err := database.GetUploadTicket(ctx, uploadID)
	if err != nil {
		s.log.WithError(err).Error("read upload ticket failed")
		respond(models.StateDatabaseError, nil)
		return
	}
	if !ok {
		respond(models.StateRequestNotFound, nil)
		return
	}
	if ticket.UserID != s.userID {
		respond(models.StateNotUploader, nil)
		return
	}

	meta, err := services.OSS.Head(ctx, ticket.Path)
	if err == services.ErrObjectNotFound {
		respond(models.StateObjectNotFound, nil)
		return
	}
	if err != nil {
		s.log.WithError(err).Error("head object failed")
		respond(models.StateOSSError, nil)
		return
	}
	if meta.Size != ticket.FileSize {
		respond(models.StateFileSizeError, nil)
		return
	}
	if !strings.EqualFold(meta.ETag, ticket.UserHash) {
		respond(models.StateFileHashError, nil)
		return
	}

	url, err := services.OSS.StorePublicURL(ctx, ticket.UserHash, ticket.Path)
	if err != nil {
		s.log.WithError(err).Error("publish file url failed")
		respond(models.StateOSSError, nil)
		return
	}
	respond(models.StateSuccess, &url)
}

func (s *Session) handleGetFileUrl(ctx context.Context, data json.RawMessage) {
	var hash string
	if err := json.Unmarshal(data, &hash); err != nil {
		s.reply(models.SrvGetFileUrlResponse, models.State(models.StateServerError))
		return
	}

	respond := func(state string, url *string) {
		s.reply(models.SrvGetFileUrlResponse, models.GetFileUrlResponse{
			Hash:  hash,
			State: state,
			URL:   url,
		})
	}

	if services.OSS == nil {
		respond(models.StateOSSError, nil)
		return
	}

	url, ok, err := services.OSS.PublicURL(ctx, hash)
	if err != nil {
		s.log.WithError(err).Error("get file url failed")
		respond(models.StateOSSError, nil)
		return
	}
	if !ok {
		respond(models.StateFileNotExisted, nil)
		return
	}
	respond(models.StateSuccess, &url)
}
