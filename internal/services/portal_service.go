package services

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brightbooks/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPortalTokenTTL = 72 * time.Hour
	maxUploadBytes        = 10 << 20 // 10 MB
)

// PortalService backs the client file-upload portal. Owners issue
// time-limited tokens per client; clients present a token to push files.
// Only the argon2id hash of a token's secret is stored, and file bytes land
// on local disk under uploadDir with a metadata row per file.
type PortalService struct {
	store     Store
	log       *zap.Logger
	uploadDir string
}

func NewPortalService(store Store, log *zap.Logger, uploadDir string) *PortalService {
	return &PortalService{store: store, log: log, uploadDir: uploadDir}
}

// IssueToken creates an upload token for a client. The plaintext token is
// returned exactly once, formatted as "<token-id>.<secret>".
func (s *PortalService) IssueToken(ctx context.Context, orgID, clientID string, ttl time.Duration) (string, *models.PortalToken, error) {
	if _, err := s.store.GetClient(ctx, orgID, clientID); err != nil {
		return "", nil, err
	}

	if ttl <= 0 {
		ttl = defaultPortalTokenTTL
	}

	raw := make([]byte, 32)
	if _, err := cryptorand.Read(raw); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := HashSecret(secret)
	if err != nil {
		return "", nil, err
	}

	t := &models.PortalToken{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		ClientID:  clientID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.store.CreatePortalToken(ctx, t); err != nil {
		return "", nil, err
	}

	return t.ID + "." + secret, t, nil
}

// Authenticate resolves a presented portal token to its token row.
func (s *PortalService) Authenticate(ctx context.Context, token string) (*models.PortalToken, error) {
	id, secret, found := strings.Cut(token, ".")
	if !found {
		return nil, ErrUnauthorized
	}

	t, err := s.store.GetPortalToken(ctx, id)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if time.Now().After(t.ExpiresAt) {
		return nil, ErrUnauthorized
	}
	if !VerifySecret(secret, t.TokenHash) {
		return nil, ErrUnauthorized
	}
	return t, nil
}

// SaveUpload writes the file to disk and records its metadata.
func (s *PortalService) SaveUpload(ctx context.Context, t *models.PortalToken, file multipart.File, header *multipart.FileHeader) (*models.PortalUpload, error) {
	if header.Size > maxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxUploadBytes)
	}

	id := uuid.NewString()
	name := filepath.Base(header.Filename)
	orgDir := filepath.Join(s.uploadDir, t.OrgID)
	if err := os.MkdirAll(orgDir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	storedPath := filepath.Join(orgDir, id+"_"+name)
	dst, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if written > maxUploadBytes {
		os.Remove(storedPath)
		return nil, fmt.Errorf("file exceeds %d bytes", maxUploadBytes)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	u := &models.PortalUpload{
		ID:          id,
		OrgID:       t.OrgID,
		ClientID:    t.ClientID,
		Filename:    name,
		SizeBytes:   written,
		ContentType: contentType,
		StoredPath:  storedPath,
		UploadedAt:  time.Now(),
	}
	if err := s.store.CreatePortalUpload(ctx, u); err != nil {
		os.Remove(storedPath)
		return nil, err
	}

	s.log.Info("portal upload stored",
		zap.String("org_id", t.OrgID),
		zap.String("client_id", t.ClientID),
		zap.String("upload_id", id),
		zap.Int64("size", written))
	return u, nil
}

// ListUploads returns the organization's upload metadata rows.
func (s *PortalService) ListUploads(ctx context.Context, orgID string) ([]models.PortalUpload, error) {
	return s.store.ListPortalUploads(ctx, orgID)
}
