package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"veo-director/internal/session"
	"veo-director/internal/types"
	"veo-director/log"
	apperrors "veo-director/pkg/errors"
)

var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
}

// UploadRequest describes one uploaded file. Size is the size the client declared.
type UploadRequest struct {
	FileName string
	MimeType string
	Size     int64
	Body     io.Reader
}

// UploadVideo validates and stores the session's source video. Size and media
// checks run before anything is written; a rejection only sets the session error.
func (s *Service) UploadVideo(ctx context.Context, sessionID string, req UploadRequest) (types.SessionState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return types.SessionState{}, err
	}

	mimeType, err := s.checkUpload(req)
	if err != nil {
		s.reject(ctx, sess, err)
		return sess.Snapshot(), err
	}
	current := sess.Snapshot()
	if current.IsAnalyzing || current.IsStitching {
		return current, apperrors.ErrBusy
	}

	path, err := uploadPath(s.UploadRoot, sessionID, req.FileName)
	if err != nil {
		return current, apperrors.Wrap(apperrors.CodeInvalidParams, "Invalid session id", err)
	}
	written, err := s.writeUpload(path, req.Body)
	if err != nil {
		_ = os.Remove(path)
		if apperrors.Is(err, apperrors.CodeVideoTooLarge) {
			s.reject(ctx, sess, err)
		}
		return sess.Snapshot(), err
	}

	next, err := sess.Dispatch(ctx, session.VideoUploaded{Source: types.VideoSource{
		FileName: filepath.Base(req.FileName),
		MimeType: mimeType,
		Size:     written,
		Path:     path,
	}})
	if err != nil {
		_ = os.Remove(path)
		return sess.Snapshot(), err
	}
	if prev := current.Video; prev != nil && prev.Path != path {
		if rerr := removeUpload(s.UploadRoot, prev.Path); rerr != nil {
			log.GetLogger().Warn("remove previous upload failed", zap.String("session_id", sessionID), zap.Error(rerr))
		}
	}
	log.GetLogger().Info("video uploaded",
		zap.String("session_id", sessionID), zap.String("file", req.FileName), zap.Int64("size", written))
	return next, nil
}

// RemoveVideo drops the session's source video and deletes the upload. The
// analysis and storyboard are kept.
func (s *Service) RemoveVideo(ctx context.Context, sessionID string) (types.SessionState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return types.SessionState{}, err
	}
	current := sess.Snapshot()
	next, err := sess.Dispatch(ctx, session.VideoRemoved{})
	if err != nil {
		return sess.Snapshot(), err
	}
	if prev := current.Video; prev != nil {
		if rerr := removeUpload(s.UploadRoot, prev.Path); rerr != nil {
			log.GetLogger().Warn("remove upload failed", zap.String("session_id", sessionID), zap.Error(rerr))
		}
	}
	return next, nil
}

func (s *Service) checkUpload(req UploadRequest) (string, error) {
	if req.Size > s.MaxUploadBytes {
		return "", s.tooLarge()
	}
	if req.Body == nil {
		return "", apperrors.ErrVideoMissing
	}
	mimeType, ok := videoMimeType(req.FileName, req.MimeType)
	if !ok {
		return "", apperrors.ErrUnsupportedMedia
	}
	return mimeType, nil
}

func (s *Service) tooLarge() error {
	mb := s.MaxUploadBytes / (1024 * 1024)
	return apperrors.New(apperrors.CodeVideoTooLarge,
		fmt.Sprintf("Video is too large for this demo. Please use a video under %dMB.", mb))
}

// writeUpload copies at most MaxUploadBytes; a body longer than declared is rejected.
func (s *Service) writeUpload(path string, body io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeFileWriteError, "Failed to store upload", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeFileWriteError, "Failed to store upload", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(body, s.MaxUploadBytes+1))
	if err != nil {
		return n, apperrors.Wrap(apperrors.CodeFileWriteError, "Failed to store upload", err)
	}
	if n > s.MaxUploadBytes {
		return n, s.tooLarge()
	}
	if n == 0 {
		return 0, apperrors.ErrVideoMissing
	}
	return n, nil
}

func (s *Service) reject(ctx context.Context, sess *session.Session, err error) {
	if _, derr := sess.Dispatch(ctx, session.ErrorRaised{Message: apperrors.UserMessage(err)}); derr != nil {
		log.GetLogger().Warn("record session error failed", zap.String("session_id", sess.ID()), zap.Error(derr))
	}
}

// videoMimeType accepts any video/* type, falling back to the file extension
// when the client sent none or a generic one.
func videoMimeType(fileName, declared string) (string, bool) {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mt
		}
	}
	if strings.HasPrefix(declared, "video/") {
		return declared, true
	}
	if declared != "" && declared != "application/octet-stream" {
		return "", false
	}
	mt, ok := videoExtensions[strings.ToLower(filepath.Ext(fileName))]
	return mt, ok
}
