package material

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	materialDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/material/dto"
	repo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/material/repository"
	notifService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/service"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	commonDto "github.com/ShahriarTWS/TutorHub-Client/pkg/dto"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/storage"
)

type SessionReader interface {
	Get(ctx context.Context, id string) (*entity.StudySession, error)
}

type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, email, sessionID string) (bool, error)
}

type Service interface {
	Upload(ctx context.Context, tutor entity.Caller, sessionID string, req materialDto.UploadMaterialRequest, file *commonDto.UploadedFile) (*entity.Material, error)
	// ListForStudent is empty until the class starts, whatever the backend
	// holds.
	ListForStudent(ctx context.Context, student entity.Caller, sessionID string) ([]entity.Material, error)
	ListForTutor(ctx context.Context, email string) ([]entity.Material, error)
	ListAll(ctx context.Context) ([]entity.Material, error)
	Update(ctx context.Context, caller entity.Caller, id string, req materialDto.UpdateMaterialRequest, file *commonDto.UploadedFile) (*entity.Material, error)
	Delete(ctx context.Context, caller entity.Caller, id string) error
	ExportCSV(ctx context.Context, student entity.Caller, sessionID string, w io.Writer) error
}

func tutorMaterialsKey(email string) querycache.Key {
	return querycache.NewKey("materials-for-tutor", email)
}

func sessionMaterialsKey(sessionID string) querycache.Key {
	return querycache.NewKey("materials-for-session", sessionID)
}

var allMaterialsKey = querycache.NewKey("materials")

type service struct {
	repo          repo.Repository
	sessions      SessionReader
	enrollments   EnrollmentChecker
	fileStorage   storage.FileStorage
	latch         *latch.Latch
	cache         *querycache.Cache
	notifications notifService.NotificationService
	uploadFolder  string
	now           func() time.Time
}

func NewService(repo repo.Repository, sessions SessionReader, enrollments EnrollmentChecker, fileStorage storage.FileStorage, latch *latch.Latch, cache *querycache.Cache, notifications notifService.NotificationService, uploadFolder string) Service {
	return &service{
		repo:          repo,
		sessions:      sessions,
		enrollments:   enrollments,
		fileStorage:   fileStorage,
		latch:         latch,
		cache:         cache,
		notifications: notifications,
		uploadFolder:  uploadFolder,
		now:           time.Now,
	}
}

func (s *service) Upload(ctx context.Context, tutor entity.Caller, sessionID string, req materialDto.UploadMaterialRequest, file *commonDto.UploadedFile) (*entity.Material, error) {
	link := strings.TrimSpace(req.ResourceLink)
	if link == "" && file == nil {
		return nil, apperror.New(http.StatusBadRequest, "a resource link or a file is required", apperror.ErrInvalidInput)
	}

	release, err := s.latch.Acquire(ctx, "material-upload", tutor.Email, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != entity.SessionApproved {
		return nil, apperror.New(http.StatusConflict, "materials can only be added to approved sessions", apperror.ErrConflict)
	}
	if !tutor.IsAdmin() && !strings.EqualFold(session.TutorEmail, tutor.Email) {
		return nil, fmt.Errorf("session %s belongs to another tutor: %w", sessionID, apperror.ErrForbidden)
	}

	fileURL, err := s.uploadFile(ctx, file)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = session.Title
	}
	material := &entity.Material{
		SessionID:    session.ID,
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		ResourceLink: link,
		FileURL:      fileURL,
		UploadedBy:   tutor.Email,
		UploadedAt:   entity.NewDate(s.now()),
	}

	id, err := s.repo.Create(ctx, material)
	if err != nil {
		if fileURL != "" {
			s.discardFile(fileURL)
		}
		return nil, err
	}
	material.ID = id

	s.invalidate(ctx, tutorMaterialsKey(tutor.Email), allMaterialsKey, sessionMaterialsKey(session.ID))
	s.notifications.Notify(ctx, tutor.Email, entity.Notification{
		Type:    entity.NotifyMaterialUploaded,
		Level:   entity.LevelSuccess,
		Title:   "Material uploaded",
		Message: fmt.Sprintf("New material for %q is available", session.Title),
		Link:    "/dashboard/my-materials",
	})
	return material, nil
}

func (s *service) ListForStudent(ctx context.Context, student entity.Caller, sessionID string) ([]entity.Material, error) {
	enrolled, err := s.enrollments.IsEnrolled(ctx, student.Email, sessionID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, apperror.New(http.StatusForbidden, "enroll in this session to see its materials", apperror.ErrForbidden)
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.ClassStarted(s.now()) {
		return []entity.Material{}, nil
	}

	return querycache.Query(ctx, s.cache, querycache.Request[[]entity.Material]{
		Key:          querycache.NewKey("materials-for-student", sessionID, student.Email),
		Dependencies: []querycache.Key{sessionMaterialsKey(sessionID)},
		Fetch: func(ctx context.Context) ([]entity.Material, error) {
			return s.repo.FindForStudent(ctx, sessionID, student.Email)
		},
		Enabled: true,
	})
}

func (s *service) ListForTutor(ctx context.Context, email string) ([]entity.Material, error) {
	materials, err := querycache.Query(ctx, s.cache, querycache.Request[[]entity.Material]{
		Key:     tutorMaterialsKey(email),
		Fetch:   func(ctx context.Context) ([]entity.Material, error) { return s.repo.FindByTutor(ctx, email) },
		Enabled: email != "",
	})
	if errors.Is(err, querycache.ErrDisabled) {
		return []entity.Material{}, nil
	}
	return materials, err
}

func (s *service) ListAll(ctx context.Context) ([]entity.Material, error) {
	return querycache.Query(ctx, s.cache, querycache.Request[[]entity.Material]{
		Key:     allMaterialsKey,
		Fetch:   s.repo.FindAll,
		Enabled: true,
	})
}

func (s *service) Update(ctx context.Context, caller entity.Caller, id string, req materialDto.UpdateMaterialRequest, file *commonDto.UploadedFile) (*entity.Material, error) {
	release, err := s.latch.Acquire(ctx, "material-edit", id)
	if err != nil {
		return nil, err
	}
	defer release()

	material, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	patch := repo.Patch{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		ResourceLink: strings.TrimSpace(req.ResourceLink),
		FileURL:      material.FileURL,
	}
	if req.RemoveFile {
		patch.FileURL = ""
	}
	newURL, err := s.uploadFile(ctx, file)
	if err != nil {
		return nil, err
	}
	if newURL != "" {
		patch.FileURL = newURL
	}
	if patch.ResourceLink == "" && patch.FileURL == "" {
		if newURL != "" {
			s.discardFile(newURL)
		}
		return nil, apperror.New(http.StatusBadRequest, "a resource link or a file is required", apperror.ErrInvalidInput)
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		if newURL != "" {
			s.discardFile(newURL)
		}
		return nil, err
	}
	if material.FileURL != "" && material.FileURL != patch.FileURL {
		s.discardFile(material.FileURL)
	}

	material.Title = patch.Title
	material.Description = patch.Description
	material.ResourceLink = patch.ResourceLink
	material.FileURL = patch.FileURL
	s.invalidate(ctx, tutorMaterialsKey(material.UploadedBy), allMaterialsKey, sessionMaterialsKey(material.SessionID))
	return material, nil
}

func (s *service) Delete(ctx context.Context, caller entity.Caller, id string) error {
	release, err := s.latch.Acquire(ctx, "material-edit", id)
	if err != nil {
		return err
	}
	defer release()

	material, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if material.FileURL != "" {
		s.discardFile(material.FileURL)
	}

	s.invalidate(ctx, tutorMaterialsKey(material.UploadedBy), allMaterialsKey, sessionMaterialsKey(material.SessionID))
	return nil
}

func (s *service) ExportCSV(ctx context.Context, student entity.Caller, sessionID string, w io.Writer) error {
	materials, err := s.ListForStudent(ctx, student, sessionID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"title", "description", "resource_link", "file_url", "uploaded_by", "uploaded_at"}); err != nil {
		return err
	}
	for _, m := range materials {
		if err := cw.Write([]string{m.Title, m.Description, m.ResourceLink, m.FileURL, m.UploadedBy, m.UploadedAt.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// owned finds the material among the ones caller may edit: their own
// uploads, or every material for an admin.
func (s *service) owned(ctx context.Context, caller entity.Caller, id string) (*entity.Material, error) {
	var (
		materials []entity.Material
		err       error
	)
	if caller.IsAdmin() {
		materials, err = s.repo.FindAll(ctx)
	} else {
		materials, err = s.repo.FindByTutor(ctx, caller.Email)
	}
	if err != nil {
		return nil, err
	}

	for i := range materials {
		if materials[i].ID != id {
			continue
		}
		if !caller.IsAdmin() && !strings.EqualFold(materials[i].UploadedBy, caller.Email) {
			break
		}
		m := materials[i]
		return &m, nil
	}
	return nil, fmt.Errorf("material %s: %w", id, apperror.ErrNotFound)
}

func (s *service) uploadFile(ctx context.Context, file *commonDto.UploadedFile) (string, error) {
	if file == nil {
		return "", nil
	}
	if s.fileStorage == nil {
		return "", apperror.New(http.StatusServiceUnavailable, "file uploads are not enabled", apperror.ErrUnavailable)
	}
	url, err := s.fileStorage.UploadFile(ctx, file.Reader, s.uploadFolder+"/materials", file.FileName)
	if err != nil {
		return "", fmt.Errorf("upload material file: %w", err)
	}
	return url, nil
}

func (s *service) discardFile(url string) {
	if s.fileStorage == nil {
		return
	}
	if err := s.fileStorage.Delete(context.Background(), url); err != nil {
		slog.Warn("failed to delete material file", "url", url, "error", err)
	}
}

func (s *service) invalidate(ctx context.Context, keys ...querycache.Key) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		slog.Warn("failed to invalidate material queries", "error", err)
	}
}
