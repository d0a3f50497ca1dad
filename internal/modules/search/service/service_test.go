package service

import (
	"testing"

	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
)

func TestCleanForIndex(t *testing.T) {
	s := &meiliSearchService{sanitizer: bluemonday.StrictPolicy()}

	got := s.cleanForIndex("<p>Learn <b>Go</b></p><p>concurrency &amp; channels</p><script>alert(1)</script>")

	assert.Equal(t, "Learn Go concurrency & channels", got)
}

func TestDisabledSearch(t *testing.T) {
	s := NewDisabledSearch()
	assert.NoError(t, s.IndexSession(nil))
	_, err := s.Search("go", 10)
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}
