package kyc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/otp-identity-api/internal/domain"
	"github.com/otp-identity-api/internal/pkg/id"
)

const presignTTL = 10 * time.Minute

var allowedTypes = []string{"image/png", "image/jpeg"}

// Image is one uploaded document scan. Field is the form field it arrived in
// and is used in validation messages.
type Image struct {
	Field string
	Data  []byte
}

type AadhaarRequest struct {
	AadhaarNo string `form:"aadhar_no" validate:"required,aadhaar"`
}

type PANRequest struct {
	PANNo string `form:"pan_no" validate:"required,pan"`
}

// DocumentView is a stored document with short-lived links to its images.
type DocumentView struct {
	DocType   domain.KYCDocType `json:"doc_type"`
	Number    string            `json:"number"`
	ImageURLs []string          `json:"image_urls"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type DocumentStore interface {
	Get(ctx context.Context, userID string, docType domain.KYCDocType) (*domain.KYCDocument, error)
	Upsert(ctx context.Context, d *domain.KYCDocument) ([]string, error)
}

type Service interface {
	SaveAadhaar(ctx context.Context, userID, number string, front, back Image) error
	SavePAN(ctx context.Context, userID, number string, image Image) error
	Documents(ctx context.Context, userID string) ([]DocumentView, error)
}

type ServiceDeps struct {
	Store          ObjectStore
	Repo           DocumentStore
	MaxUploadBytes int64
}

type service struct {
	store    ObjectStore
	repo     DocumentStore
	maxBytes int64
	now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	return &service{
		store:    deps.Store,
		repo:     deps.Repo,
		maxBytes: deps.MaxUploadBytes,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) SaveAadhaar(ctx context.Context, userID, number string, front, back Image) error {
	return s.save(ctx, userID, domain.KYCAadhaar, number, "aadhar_cards", []namedImage{
		{prefix: "aadhar_front", img: front},
		{prefix: "aadhar_back", img: back},
	})
}

func (s *service) SavePAN(ctx context.Context, userID, number string, image Image) error {
	return s.save(ctx, userID, domain.KYCPAN, number, "pan_cards", []namedImage{
		{prefix: "pan", img: image},
	})
}

func (s *service) Documents(ctx context.Context, userID string) ([]DocumentView, error) {
	views := []DocumentView{}
	for _, dt := range []domain.KYCDocType{domain.KYCAadhaar, domain.KYCPAN} {
		d, err := s.repo.Get(ctx, userID, dt)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		v := DocumentView{DocType: d.DocType, Number: d.Number, UpdatedAt: d.UpdatedAt, ImageURLs: []string{}}
		for _, key := range d.ImageKeys {
			u, err := s.store.PresignedURL(ctx, key, presignTTL)
			if err != nil {
				return nil, err
			}
			v.ImageURLs = append(v.ImageURLs, u)
		}
		views = append(views, v)
	}
	return views, nil
}

type namedImage struct {
	prefix string
	img    Image
}

func (s *service) save(ctx context.Context, userID string, docType domain.KYCDocType, number, folder string, images []namedImage) error {
	types := make([]*mimetype.MIME, len(images))
	for i, ni := range images {
		mt, err := s.check(ni.img)
		if err != nil {
			return err
		}
		types[i] = mt
	}

	keys := make([]string, 0, len(images))
	for i, ni := range images {
		key := fmt.Sprintf("%s/%s/%s_%s%s", folder, userID, ni.prefix, id.New(), types[i].Extension())
		if _, err := s.store.Upload(ctx, key, bytes.NewReader(ni.img.Data), types[i].String()); err != nil {
			s.discard(ctx, keys)
			return err
		}
		keys = append(keys, key)
	}

	now := s.now()
	old, err := s.repo.Upsert(ctx, &domain.KYCDocument{
		UserID:    userID,
		DocType:   docType,
		Number:    number,
		ImageKeys: keys,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		s.discard(ctx, keys)
		return fmt.Errorf("save kyc document: %w", err)
	}
	s.discard(ctx, old)
	return nil
}

func (s *service) check(img Image) (*mimetype.MIME, error) {
	if len(img.Data) == 0 {
		return nil, domain.NewError(domain.ErrValidation, fmt.Sprintf("The %s field is required.", img.Field))
	}
	if s.maxBytes > 0 && int64(len(img.Data)) > s.maxBytes {
		return nil, domain.NewError(domain.ErrValidation,
			fmt.Sprintf("The %s field must not be greater than %d kilobytes.", img.Field, s.maxBytes/1024))
	}
	mt := mimetype.Detect(img.Data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return nil, domain.NewError(domain.ErrValidation,
			fmt.Sprintf("The %s field must be a file of type: png, jpg, jpeg.", img.Field))
	}
	return mt, nil
}

// discard removes objects that are no longer referenced. Failures only leave orphans behind.
func (s *service) discard(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			slog.Warn("failed to delete kyc image", "key", k, "err", err)
		}
	}
}
