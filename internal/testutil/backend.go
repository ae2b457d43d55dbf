// Package testutil provides an in-memory stand-in for the backend services used by gateway tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"foodhub-gateway/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type failure struct {
	status int
	times  int
}

// Backend serves the review, user, restaurant, food, visit, hangout and agent APIs from memory
type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	Reviews     map[string]*models.Review
	Comments    map[string]*models.Comment
	Users       map[string]*models.User
	Foods       map[string]*models.Food
	Restaurants map[string]*models.Restaurant
	Visits      map[string]*models.Visit
	Hangouts    map[string]*models.Hangout

	Recommendation *models.Recommendation
	Nutrition      *models.Nutrition

	reviewOrder []string
	calls       map[string]int
	failures    map[string]*failure
	lastAuth    string
}

// NewBackend starts a fake backend that is closed when the test ends
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		Reviews:     map[string]*models.Review{},
		Comments:    map[string]*models.Comment{},
		Users:       map[string]*models.User{},
		Foods:       map[string]*models.Food{},
		Restaurants: map[string]*models.Restaurant{},
		Visits:      map[string]*models.Visit{},
		Hangouts:    map[string]*models.Hangout{},
		Recommendation: &models.Recommendation{
			RecommendedFoods: []models.RecommendedFood{{Name: "Kottu"}},
		},
		Nutrition: &models.Nutrition{
			FoodDescription: "Rice and curry",
			Carbohydrates:   "80g",
			Proteins:        "20g",
			Fats:            "15g",
			TotalCalories:   "550",
		},
		calls:    map[string]int{},
		failures: map[string]*failure{},
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL shared by every fake service
func (b *Backend) URL() string {
	return b.Server.URL
}

// Fail makes the next times requests to method+path answer status; times < 0 fails forever
func (b *Backend) Fail(method, path string, status, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = &failure{status: status, times: times}
}

// Calls returns how many requests reached method+path
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

// TotalCalls returns the number of requests served
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// LastAuthorization returns the Authorization header of the latest request
func (b *Backend) LastAuthorization() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth
}

func (b *Backend) AddUser(u *models.User) *models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Users[u.ID] = u
	return u
}

func (b *Backend) AddReview(r *models.Review) *models.Review {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	b.Reviews[r.ID] = r
	b.reviewOrder = append(b.reviewOrder, r.ID)
	return r
}

func (b *Backend) AddFood(f *models.Food) *models.Food {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Foods[f.ID] = f
	return f
}

func (b *Backend) AddRestaurant(r *models.Restaurant) *models.Restaurant {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Restaurants[r.ID] = r
	return r
}

func (b *Backend) AddVisit(v *models.Visit) *models.Visit {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Visits[v.ID] = v
	return v
}

func (b *Backend) AddHangout(h *models.Hangout) *models.Hangout {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Hangouts[h.ID] = h
	return h
}

func (b *Backend) AddComment(c *models.Comment) *models.Comment {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Comments[c.ID] = c
	return c
}

// User returns a copy of the stored user
func (b *Backend) User(id string) *models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.Users[id])
}

// Review returns a copy of the stored review
func (b *Backend) Review(id string) *models.Review {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.Reviews[id])
}

// Food returns a copy of the stored food
func (b *Backend) Food(id string) *models.Food {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.Foods[id])
}

// Hangout returns a copy of the stored hangout
func (b *Backend) Hangout(id string) *models.Hangout {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.Hangouts[id])
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.track)

	r.Route("/api/review", func(r chi.Router) {
		r.Get("/", b.listReviews)
		r.Post("/", b.createReview)
		r.Get("/user/{id}", b.listReviewsByUser)
		r.Get("/{id}", getOne(b, func() map[string]*models.Review { return b.Reviews }))
		r.Put("/{id}", putOne(b, func() map[string]*models.Review { return b.Reviews }))
		r.Delete("/{id}", deleteOne(b, func() map[string]*models.Review { return b.Reviews }))
	})
	r.Route("/api/comment", func(r chi.Router) {
		r.Get("/", listAll(b, func() map[string]*models.Comment { return b.Comments }))
		r.Post("/", b.createComment)
		r.Get("/review/{id}", b.listCommentsByReview)
	})
	r.Route("/api/user", func(r chi.Router) {
		r.Get("/", listAll(b, func() map[string]*models.User { return b.Users }))
		r.Post("/", b.createUser)
		r.Get("/all", listAll(b, func() map[string]*models.User { return b.Users }))
		r.Get("/{id}", getOne(b, func() map[string]*models.User { return b.Users }))
		r.Put("/{id}", multipartPut(b, "user", func() map[string]*models.User { return b.Users }))
	})
	r.Route("/api/food", func(r chi.Router) {
		r.Get("/", listAll(b, func() map[string]*models.Food { return b.Foods }))
		r.Post("/", b.createFood)
		r.Get("/{id}", getOne(b, func() map[string]*models.Food { return b.Foods }))
		r.Put("/{id}", multipartPut(b, "food", func() map[string]*models.Food { return b.Foods }))
		r.Delete("/{id}", deleteOne(b, func() map[string]*models.Food { return b.Foods }))
	})
	r.Route("/api/restaurant", func(r chi.Router) {
		r.Get("/", listAll(b, func() map[string]*models.Restaurant { return b.Restaurants }))
		r.Post("/", createOne(b, func() map[string]*models.Restaurant { return b.Restaurants }))
		r.Get("/{id}", getOne(b, func() map[string]*models.Restaurant { return b.Restaurants }))
		r.Put("/{id}", putOne(b, func() map[string]*models.Restaurant { return b.Restaurants }))
	})
	r.Route("/api/visit", func(r chi.Router) {
		r.Get("/", listAll(b, func() map[string]*models.Visit { return b.Visits }))
		r.Post("/", createOne(b, func() map[string]*models.Visit { return b.Visits }))
		r.Get("/{id}", getOne(b, func() map[string]*models.Visit { return b.Visits }))
		r.Put("/{id}", putOne(b, func() map[string]*models.Visit { return b.Visits }))
		r.Delete("/{id}", deleteOne(b, func() map[string]*models.Visit { return b.Visits }))
	})
	r.Route("/api/hangout", func(r chi.Router) {
		r.Get("/", listAll(b, func() map[string]*models.Hangout { return b.Hangouts }))
		r.Post("/", createOne(b, func() map[string]*models.Hangout { return b.Hangouts }))
		r.Get("/{id}", getOne(b, func() map[string]*models.Hangout { return b.Hangouts }))
		r.Put("/{id}", putOne(b, func() map[string]*models.Hangout { return b.Hangouts }))
	})

	r.Post("/get-recommendation", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		rec := *b.Recommendation
		b.mu.Unlock()
		rec.Query = r.URL.Query().Get("query_text")
		writeJSON(w, http.StatusOK, rec)
	})
	r.Post("/analyze-nutrition-url", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ImageURL string `json:"image_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ImageURL == "" {
			http.Error(w, "image_url required", http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		n := *b.Nutrition
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, n)
	})
	return r
}

func (b *Backend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.calls[key]++
		b.lastAuth = r.Header.Get("Authorization")
		f, ok := b.failures[key]
		if ok && f.times != 0 {
			if f.times > 0 {
				f.times--
			}
			b.mu.Unlock()
			http.Error(w, "injected failure", f.status)
			return
		}
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) listReviews(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]*models.Review, 0, len(b.reviewOrder))
	for _, id := range b.reviewOrder {
		if review, ok := b.Reviews[id]; ok {
			out = append(out, review)
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) listReviewsByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	b.mu.Lock()
	out := []*models.Review{}
	for _, id := range b.reviewOrder {
		if review, ok := b.Reviews[id]; ok && review.AuthorID() == userID {
			out = append(out, review)
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createReview(w http.ResponseWriter, r *http.Request) {
	var review models.Review
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	review.ID = ""
	review.CreatedAt = "2025-01-01T10:00:00"
	b.AddReview(&review)
	writeJSON(w, http.StatusCreated, &review)
}

func (b *Backend) createComment(w http.ResponseWriter, r *http.Request) {
	var comment models.Comment
	if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	comment.ID = uuid.NewString()

	b.mu.Lock()
	b.Comments[comment.ID] = &comment
	if review, ok := b.Reviews[comment.ReviewID]; ok {
		review.Comments = append(review.Comments, comment.ID)
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, &comment)
}

func (b *Backend) listCommentsByReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")
	b.mu.Lock()
	out := []*models.Comment{}
	for _, c := range b.Comments {
		if c.ReviewID == reviewID {
			out = append(out, c)
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// createUser keeps the caller-chosen id, like the user service does for identity-provider subjects
func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil || u.ID == "" {
		http.Error(w, "user id required", http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	_, exists := b.Users[u.ID]
	if !exists {
		b.Users[u.ID] = &u
	}
	b.mu.Unlock()
	if exists {
		http.Error(w, "user exists", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, &u)
}

func (b *Backend) createFood(w http.ResponseWriter, r *http.Request) {
	var food models.Food
	if err := decodePart(r, "food", &food); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	food.ID = uuid.NewString()
	if _, header, err := r.FormFile("image"); err == nil {
		food.ImageURL = models.Ptr("https://images.example/" + header.Filename)
	}
	b.AddFood(&food)
	writeJSON(w, http.StatusCreated, &food)
}

type identified interface {
	*models.Review | *models.Comment | *models.User | *models.Food | *models.Restaurant | *models.Visit | *models.Hangout
}

func listAll[T identified](b *Backend, store func() map[string]T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		out := make([]T, 0)
		for _, v := range store() {
			out = append(out, v)
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	}
}

func getOne[T identified](b *Backend, store func() map[string]T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		v, ok := store()[chi.URLParam(r, "id")]
		b.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func createOne[T identified](b *Backend, store func() map[string]T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := newOf[T]()
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id := uuid.NewString()
		setID(v, id)
		b.mu.Lock()
		store()[id] = v
		b.mu.Unlock()
		writeJSON(w, http.StatusCreated, v)
	}
}

func putOne[T identified](b *Backend, store func() map[string]T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		v := newOf[T]()
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		setID(v, id)
		b.mu.Lock()
		_, ok := store()[id]
		if ok {
			store()[id] = v
		}
		b.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func multipartPut[T identified](b *Backend, field string, store func() map[string]T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		v := newOf[T]()
		if err := decodePart(r, field, v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		setID(v, id)
		b.mu.Lock()
		_, ok := store()[id]
		if ok {
			store()[id] = v
		}
		b.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func deleteOne[T identified](b *Backend, store func() map[string]T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		b.mu.Lock()
		_, ok := store()[id]
		delete(store(), id)
		b.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodePart(r *http.Request, field string, v interface{}) error {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return err
	}
	if values := r.MultipartForm.Value[field]; len(values) > 0 {
		return json.Unmarshal([]byte(values[0]), v)
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func newOf[T identified]() T {
	var zero T
	switch any(zero).(type) {
	case *models.Review:
		return any(&models.Review{}).(T)
	case *models.Comment:
		return any(&models.Comment{}).(T)
	case *models.User:
		return any(&models.User{}).(T)
	case *models.Food:
		return any(&models.Food{}).(T)
	case *models.Restaurant:
		return any(&models.Restaurant{}).(T)
	case *models.Visit:
		return any(&models.Visit{}).(T)
	default:
		return any(&models.Hangout{}).(T)
	}
}

func setID(v interface{}, id string) {
	switch e := v.(type) {
	case *models.Review:
		e.ID = id
	case *models.Comment:
		e.ID = id
	case *models.User:
		e.ID = id
	case *models.Food:
		e.ID = id
	case *models.Restaurant:
		e.ID = id
	case *models.Visit:
		e.ID = id
	case *models.Hangout:
		e.ID = id
	}
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	data, _ := json.Marshal(v)
	var out T
	_ = json.Unmarshal(data, &out)
	return &out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
