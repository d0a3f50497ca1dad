package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	noteDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/note/dto"
	repo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/note/repository"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
	"github.com/microcosm-cc/bluemonday"
)

type Service interface {
	Create(ctx context.Context, email string, req noteDto.NoteRequest) (*entity.Note, error)
	List(ctx context.Context, email string) ([]entity.Note, error)
	Update(ctx context.Context, email, id string, req noteDto.NoteRequest) (*entity.Note, error)
	Delete(ctx context.Context, email, id string) error
}

func notesKey(email string) querycache.Key { return querycache.NewKey("notes", email) }

type service struct {
	repo    repo.Repository
	cache   *querycache.Cache
	title   *bluemonday.Policy
	content *bluemonday.Policy
	now     func() time.Time
}

func NewService(repo repo.Repository, cache *querycache.Cache) Service {
	return &service{
		repo:    repo,
		cache:   cache,
		title:   bluemonday.StrictPolicy(),
		content: bluemonday.UGCPolicy(),
		now:     time.Now,
	}
}

func (s *service) clean(req noteDto.NoteRequest) (repo.Patch, error) {
	p := repo.Patch{
		Title:   strings.TrimSpace(s.title.Sanitize(req.Title)),
		Content: strings.TrimSpace(s.content.Sanitize(req.Content)),
	}
	if p.Title == "" || p.Content == "" {
		return repo.Patch{}, apperror.New(http.StatusBadRequest, "title and content are required", apperror.ErrInvalidInput)
	}
	return p, nil
}

func (s *service) Create(ctx context.Context, email string, req noteDto.NoteRequest) (*entity.Note, error) {
	p, err := s.clean(req)
	if err != nil {
		return nil, err
	}

	note := &entity.Note{
		Title:        p.Title,
		Content:      p.Content,
		StudentEmail: email,
		CreatedAt:    entity.NewDate(s.now()),
	}
	id, err := s.repo.Create(ctx, note)
	if err != nil {
		return nil, err
	}
	note.ID = id

	s.invalidate(ctx, email)
	return note, nil
}

func (s *service) List(ctx context.Context, email string) ([]entity.Note, error) {
	notes, err := querycache.Query(ctx, s.cache, querycache.Request[[]entity.Note]{
		Key:     notesKey(email),
		Fetch:   func(ctx context.Context) ([]entity.Note, error) { return s.repo.FindByEmail(ctx, email) },
		Enabled: email != "",
	})
	if errors.Is(err, querycache.ErrDisabled) {
		return []entity.Note{}, nil
	}
	return notes, err
}

func (s *service) Update(ctx context.Context, email, id string, req noteDto.NoteRequest) (*entity.Note, error) {
	p, err := s.clean(req)
	if err != nil {
		return nil, err
	}

	note, err := s.owned(ctx, email, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, p); err != nil {
		return nil, err
	}
	note.Title = p.Title
	note.Content = p.Content

	s.invalidate(ctx, email)
	return note, nil
}

func (s *service) Delete(ctx context.Context, email, id string) error {
	if _, err := s.owned(ctx, email, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, email)
	return nil
}

// owned looks the note up among the student's own notes, so foreign ids
// read as missing.
func (s *service) owned(ctx context.Context, email, id string) (*entity.Note, error) {
	notes, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		if notes[i].ID == id && strings.EqualFold(notes[i].StudentEmail, email) {
			n := notes[i]
			return &n, nil
		}
	}
	return nil, fmt.Errorf("note %s: %w", id, apperror.ErrNotFound)
}

func (s *service) invalidate(ctx context.Context, email string) {
	if err := s.cache.Invalidate(ctx, notesKey(email)); err != nil {
		slog.Warn("failed to invalidate notes", "email", email, "error", err)
	}
}
