package book

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPHandler_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo))

	body := `{"title":"Dune","author":"Frank Herbert","isbn":"9780441172719","total_copies":2}`

	t.Run("created", func(t *testing.T) {
		mockRepo.EXPECT().GetByISBN(gomock.Any(), "9780441172719").Return(Book{}, ErrNotFound)
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(body))
		handler.Create(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			Data AddResult `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, 2, resp.Data.Book.AvailableCopies)
		assert.Contains(t, resp.Data.Message, "successfully added")
	})

	t.Run("conflict", func(t *testing.T) {
		mockRepo.EXPECT().GetByISBN(gomock.Any(), "9780441172719").Return(Book{ID: 1}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(body))
		handler.Create(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("validation", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(`{"title":"Dune","author":"Frank Herbert","isbn":"123","total_copies":2}`))
		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ISBN must be exactly 13 digits.")
	})

	t.Run("storage error", func(t *testing.T) {
		mockRepo.EXPECT().GetByISBN(gomock.Any(), "9780441172719").Return(Book{}, errors.New("db down"))

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(body))
		handler.Create(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_Search(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo))

	t.Run("defaults to title", func(t *testing.T) {
		mockRepo.EXPECT().Search(gomock.Any(), SearchByTitle, "dune").Return([]Book{{ID: 1}}, nil)

		w := httptest.NewRecorder()
		handler.Search(w, httptest.NewRequest(http.MethodGet, "/v1/books/search?q=dune", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown type is empty", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Search(w, httptest.NewRequest(http.MethodGet, "/v1/books/search?q=dune&type=genre", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})
}

func TestHTTPHandler_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo))

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(9)).Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/v1/books/9", nil)
		r.SetPathValue("id", "9")
		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/v1/books/abc", nil)
		r.SetPathValue("id", "abc")
		handler.Get(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
