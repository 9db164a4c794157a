package service

import (
	"strings"

	apperrors "veo-director/pkg/errors"
)

func (s *Service) CredentialSelected() bool {
	return s.Credentials != nil && s.Credentials.Key() != ""
}

// SetCredential installs an API key and wakes any job waiting for one.
func (s *Service) SetCredential(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperrors.New(apperrors.CodeInvalidParams, "API key is empty")
	}
	if s.Credentials == nil {
		return apperrors.New(apperrors.CodeInvalidParams, "Credential selection is not enabled")
	}
	s.Credentials.Set(key)
	return nil
}
