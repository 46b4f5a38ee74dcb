package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"pairchat/internal/domain/message"
	"pairchat/internal/storage"
	pairchat_errors "pairchat/pkg/errors"

	"github.com/google/uuid"
)

// FileStore is the backing-file side of the upload pipeline. The message
// store uses Remove for retention eviction, view-once and deletes.
type FileStore interface {
	PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error)
	FileURL(key string) string
	Remove(ctx context.Context, key string) error
}

// S3FileStore adapts the S3 client to the FileStore contract.
type S3FileStore struct {
	client *storage.Client
}

func NewS3FileStore(client *storage.Client) *S3FileStore {
	return &S3FileStore{client: client}
}

func (s *S3FileStore) PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error) {
	return s.client.PresignPut(ctx, key, contentType, sizeBytes)
}

func (s *S3FileStore) FileURL(key string) string {
	return s.client.FileURL(key)
}

func (s *S3FileStore) Remove(ctx context.Context, key string) error {
	return s.client.DeleteObject(ctx, key)
}

// MemoryFileStore is the in-process FileStore used in tests and local
// development. Removed keys are recorded so tests can assert unlinks.
type MemoryFileStore struct {
	mu      sync.Mutex
	objects map[string]bool
	removed []string
}

func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{objects: make(map[string]bool)}
}

func (s *MemoryFileStore) PresignPut(_ context.Context, key, contentType string, _ int64) (string, map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = true
	return "memory://" + key, map[string]string{"Content-Type": contentType}, nil
}

func (s *MemoryFileStore) FileURL(key string) string {
	return "memory://" + key
}

func (s *MemoryFileStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.removed = append(s.removed, key)
	return nil
}

// Removed returns the keys unlinked so far, in order.
func (s *MemoryFileStore) Removed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.removed))
	copy(out, s.removed)
	return out
}

// UploadDescriptor is what the message store receives about a stored file.
// It never sees raw bytes.
type UploadDescriptor struct {
	StoragePath  string
	PublicURL    string
	OriginalName string
	SizeBytes    int64
	MimeType     string
}

// AsAttachment converts the descriptor into the message-side record.
func (d UploadDescriptor) AsAttachment() message.Attachment {
	return message.Attachment{
		FileURL:     d.PublicURL,
		FileName:    d.OriginalName,
		FileSize:    d.SizeBytes,
		StoragePath: d.StoragePath,
		MimeType:    d.MimeType,
	}
}

type pendingUpload struct {
	uploaderID  uuid.UUID
	key         string
	fileName    string
	contentType string
	sizeBytes   int64
	createdAt   time.Time
}

// UploadService hands out presigned PUT URLs and turns completed uploads
// into descriptors. Pending state is process-local; an abandoned upload is
// simply never completed.
type UploadService struct {
	files FileStore

	mu      sync.Mutex
	pending map[uuid.UUID]pendingUpload
}

func NewUploadService(files FileStore) *UploadService {
	return &UploadService{
		files:   files,
		pending: make(map[uuid.UUID]pendingUpload),
	}
}

type PresignInput struct {
	UploaderID  uuid.UUID
	FileName    string
	ContentType string
	FileSize    int64
}

type PresignResult struct {
	UploadID  uuid.UUID
	UploadURL string
	UploadKey string
	Headers   map[string]string
}

// Presign reserves an object key and returns a signed PUT URL for it.
func (s *UploadService) Presign(ctx context.Context, in PresignInput) (PresignResult, error) {
	if in.UploaderID == uuid.Nil || in.FileName == "" || in.ContentType == "" || in.FileSize <= 0 {
		return PresignResult{}, pairchat_errors.ErrValidation
	}

	uploadID := uuid.New()
	key := buildObjectKey(in.UploaderID, uploadID, in.FileName)

	url, headers, err := s.files.PresignPut(ctx, key, in.ContentType, in.FileSize)
	if err != nil {
		return PresignResult{}, err
	}

	s.mu.Lock()
	s.pending[uploadID] = pendingUpload{
		uploaderID:  in.UploaderID,
		key:         key,
		fileName:    in.FileName,
		contentType: in.ContentType,
		sizeBytes:   in.FileSize,
		createdAt:   time.Now(),
	}
	s.mu.Unlock()

	return PresignResult{
		UploadID:  uploadID,
		UploadURL: url,
		UploadKey: key,
		Headers:   headers,
	}, nil
}

// Complete resolves a finished upload into its descriptor. Only the
// uploader who opened it may complete it; completion is one-shot.
func (s *UploadService) Complete(_ context.Context, uploadID, uploaderID uuid.UUID) (UploadDescriptor, error) {
	s.mu.Lock()
	p, ok := s.pending[uploadID]
	if ok && p.uploaderID == uploaderID {
		delete(s.pending, uploadID)
	}
	s.mu.Unlock()

	if !ok {
		return UploadDescriptor{}, pairchat_errors.ErrNotFound
	}
	if p.uploaderID != uploaderID {
		return UploadDescriptor{}, pairchat_errors.ErrForbidden
	}

	return UploadDescriptor{
		StoragePath:  p.key,
		PublicURL:    s.files.FileURL(p.key),
		OriginalName: p.fileName,
		SizeBytes:    p.sizeBytes,
		MimeType:     p.contentType,
	}, nil
}

func buildObjectKey(uploaderID, uploadID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("uploads/%s/%s%s", uploaderID, uploadID, ext)
}
