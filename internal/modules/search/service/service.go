package service

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const sessionsIndex = "sessions"

// SearchService indexes approved study sessions for the public catalog.
type SearchService interface {
	IndexSession(session *entity.StudySession) error
	DeleteSession(id string) error
	Search(query string, limit int) ([]SessionDoc, error)
}

// SessionDoc is the indexed projection of an approved session.
type SessionDoc struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	TutorName       string  `json:"tutor_name"`
	TutorEmail      string  `json:"tutor_email"`
	RegistrationFee float64 `json:"registration_fee"`
	RegistrationEnd int64   `json:"registration_end"`
	ClassStart      int64   `json:"class_start"`
	Image           string  `json:"image,omitempty"`
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) SearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterable := []any{"tutor_email", "registration_fee"}
	if _, err := s.client.Index(sessionsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		slog.Warn("failed to update sessions filterable attributes", "error", err)
	}

	sortable := []string{"registration_end", "class_start", "registration_fee"}
	if _, err := s.client.Index(sessionsIndex).UpdateSortableAttributes(&sortable); err != nil {
		slog.Warn("failed to update sessions sortable attributes", "error", err)
	}
}

// cleanForIndex strips markup from rich descriptions.
func (s *meiliSearchService) cleanForIndex(content string) string {
	for _, tag := range []string{"</p>", "<br>", "<br/>", "</div>", "</li>"} {
		content = strings.ReplaceAll(content, tag, " ")
	}
	clean := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(clean), " ")
}

func (s *meiliSearchService) IndexSession(session *entity.StudySession) error {
	if session.Status != entity.SessionApproved {
		return s.DeleteSession(session.ID)
	}

	doc := SessionDoc{
		ID:              session.ID,
		Title:           session.Title,
		Description:     s.cleanForIndex(session.Description),
		TutorName:       session.TutorName,
		TutorEmail:      session.TutorEmail,
		RegistrationFee: session.RegistrationFee,
		RegistrationEnd: session.RegistrationEnd.Unix(),
		ClassStart:      session.ClassStart.Unix(),
		Image:           session.Image,
	}

	primaryKey := "id"
	if _, err := s.client.Index(sessionsIndex).AddDocuments([]SessionDoc{doc}, &primaryKey); err != nil {
		return fmt.Errorf("index session %s: %w", session.ID, err)
	}
	return nil
}

func (s *meiliSearchService) DeleteSession(id string) error {
	if _, err := s.client.Index(sessionsIndex).DeleteDocument(id); err != nil {
		return fmt.Errorf("remove session %s from index: %w", id, err)
	}
	return nil
}

func (s *meiliSearchService) Search(query string, limit int) ([]SessionDoc, error) {
	raw, err := s.client.Index(sessionsIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit: int64(limit),
		Sort:  []string{"registration_end:desc"},
	})
	if err != nil {
		return nil, apperror.New(http.StatusBadGateway, "search is temporarily unavailable",
			fmt.Errorf("%w: search sessions: %v", apperror.ErrUnavailable, err))
	}

	var result struct {
		Hits []SessionDoc `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &result); err != nil {
		return nil, fmt.Errorf("decode search hits: %w", err)
	}
	if result.Hits == nil {
		result.Hits = []SessionDoc{}
	}
	return result.Hits, nil
}

type disabledSearch struct{}

// NewDisabledSearch is used when no search host is configured. Indexing is
// skipped and queries report the feature as unavailable.
func NewDisabledSearch() SearchService {
	return disabledSearch{}
}

func (disabledSearch) IndexSession(*entity.StudySession) error { return nil }

func (disabledSearch) DeleteSession(string) error { return nil }

func (disabledSearch) Search(string, int) ([]SessionDoc, error) {
	return nil, apperror.New(http.StatusServiceUnavailable, "search is not enabled", apperror.ErrUnavailable)
}
