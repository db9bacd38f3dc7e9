// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/tessera/internal/platform/constants"
	"github.com/taibuivan/tessera/internal/platform/objstore"
)

// # Avatar Mirroring

// signedAvatarExpiry is how long on-demand avatar URLs stay valid.
const signedAvatarExpiry = 7 * 24 * time.Hour

// AvatarService mirrors external profile pictures into the private object
// bucket and signs read URLs on demand. Everything here is best-effort
// plumbing around login; callers swallow its failures.
type AvatarService struct {
	store  *objstore.Store
	client *http.Client
	logger *slog.Logger
}

// NewAvatarService wires an AvatarService over the given bucket.
func NewAvatarService(store *objstore.Store, logger *slog.Logger) *AvatarService {
	return &AvatarService{
		store:  store,
		client: &http.Client{Timeout: constants.AvatarFetchTimeout},
		logger: logger,
	}
}

/*
SaveFromURL downloads a provider-hosted image and stores it under the user's
avatar prefix.

Description: The download is bounded by [constants.AvatarFetchTimeout] and
[constants.AvatarMaxBytes]; anything that is not an image, or too large, is
rejected. The object key embeds a fresh UUID so writes never collide.

Parameters:
  - context: context.Context
  - userID: string
  - sourceURL: string (provider CDN URL)

Returns:
  - string: Object key, e.g. "users/{id}/avatar/{uuid}.jpg"
  - error: Download, validation, or upload failures
*/
func (service *AvatarService) SaveFromURL(context context.Context, userID, sourceURL string) (string, error) {
	request, err := http.NewRequestWithContext(context, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("avatar_request_failed: %w", err)
	}

	response, err := service.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("avatar_download_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("avatar_download_failed: status %d", response.StatusCode)
	}

	contentType := response.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("avatar_not_an_image: %s", contentType)
	}

	// Read one byte past the cap to distinguish "exactly at the limit" from
	// "over it".
	content, err := io.ReadAll(io.LimitReader(response.Body, constants.AvatarMaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("avatar_read_failed: %w", err)
	}
	if len(content) > constants.AvatarMaxBytes {
		return "", fmt.Errorf("avatar_too_large: %d bytes", len(content))
	}

	key := fmt.Sprintf("users/%s/avatar/%s%s", userID, uuid.New().String(), extensionFor(contentType))

	if err := service.store.Put(context, key, bytes.NewReader(content), contentType); err != nil {
		return "", fmt.Errorf("avatar_upload_failed: %w", err)
	}

	service.logger.Info("avatar_mirrored",
		slog.String("user_id", userID),
		slog.String("key", key),
		slog.Int("bytes", len(content)),
	)

	return key, nil
}

/*
Replace uploads a new avatar and deletes the previous object.

Description: The delete is best-effort; an orphaned old object is preferable
to failing the upload.

Parameters:
  - context: context.Context
  - userID: string
  - sourceURL: string
  - oldPath: string (previous object key, may be empty)

Returns:
  - string: New object key
  - error: Same failure modes as SaveFromURL
*/
func (service *AvatarService) Replace(context context.Context, userID, sourceURL, oldPath string) (string, error) {
	key, err := service.SaveFromURL(context, userID, sourceURL)
	if err != nil {
		return "", err
	}

	if oldPath != "" {
		if err := service.store.Delete(context, oldPath); err != nil {
			service.logger.Warn("old_avatar_delete_failed",
				slog.String("key", oldPath),
				slog.String("error", err.Error()),
			)
		}
	}

	return key, nil
}

/*
SignedURL produces a time-limited read URL for a stored avatar.

Description: Responses and token claims never expose raw object keys; this is
the only way avatar bytes reach a client. Returns the empty string on any
failure so callers can degrade to "no avatar".

Parameters:
  - context: context.Context
  - path: string (object key; empty returns empty)

Returns:
  - string: Presigned GET URL valid for seven days, or ""
*/
func (service *AvatarService) SignedURL(context context.Context, path string) string {
	if path == "" {
		return ""
	}

	signedURL, err := service.store.PresignGet(context, path, signedAvatarExpiry)
	if err != nil {
		service.logger.Warn("avatar_sign_failed",
			slog.String("key", path),
			slog.String("error", err.Error()),
		)
		return ""
	}

	return signedURL
}

// extensionFor maps a content type onto a file extension, defaulting to jpg.
func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}
