package studio_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/proofsheet/tablo/internal/domain"
	"github.com/proofsheet/tablo/internal/studio"
)

const stepDataJSON = `{
  "current_step": "retouch",
  "visible_photos": [
    {"id": 1, "filename": "a.jpg", "media": [{"id": 10, "original_url": "https://cdn/a.jpg", "preview_url": "https://cdn/a_s.jpg"}]},
    {"id": 2, "filename": "b.jpg", "url": "https://cdn/b.jpg", "thumbnail_url": "https://cdn/b_s.jpg"},
    {"id": 3, "filename": "c.jpg", "url": "https://cdn/c.jpg"}
  ],
  "selected_photos": [2],
  "step_metadata": {"allow_multiple": true, "max_selection": 5},
  "album_id": 77,
  "progress": {
    "id": 4, "user_id": 5, "work_session_id": 6, "current_step": "retouch",
    "steps_data": {"claimed_photo_ids": [1, 2, 3], "retouch_photo_ids": [2], "tablo_photo_id": 2}
  },
  "work_session": {"id": 6, "max_retouch_photos": 5}
}`

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	key    string
	body   map[string]any
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) get(i int) recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *recorder) {
	t.Helper()
	calls := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			key:    r.Header.Get("Idempotency-Key"),
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			if err := json.Unmarshal(data, &rec.body); err != nil {
				t.Errorf("request body is not JSON: %v", err)
			}
		}
		calls.mu.Lock()
		calls.calls = append(calls.calls, rec)
		calls.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestLoadStepDataMapsPayload(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, stepDataJSON)
	c := studio.NewClient(srv.URL+"/api/", "secret", nil)

	data, err := c.LoadStepData(context.Background(), 42, domain.StepRetouch)
	if err != nil {
		t.Fatalf("LoadStepData: %v", err)
	}

	got := calls.get(0)
	if got.method != http.MethodGet || got.path != "/api/tablo/step-data/42" || got.query != "step=retouch" {
		t.Fatalf("request = %+v", got)
	}
	if got.auth != "Bearer secret" {
		t.Fatalf("auth header = %q", got.auth)
	}

	if data.CurrentStep != domain.StepRetouch || data.AlbumID != 77 {
		t.Fatalf("step=%s album=%d", data.CurrentStep, data.AlbumID)
	}
	if data.StepMetadata.MaxSelection == nil || *data.StepMetadata.MaxSelection != 5 {
		t.Fatal("max selection not mapped")
	}
	want := []domain.Photo{
		{ID: 1, Filename: "a.jpg", FullURL: "https://cdn/a.jpg", ThumbnailURL: "https://cdn/a_s.jpg"},
		{ID: 2, Filename: "b.jpg", FullURL: "https://cdn/b.jpg", ThumbnailURL: "https://cdn/b_s.jpg"},
		{ID: 3, Filename: "c.jpg", FullURL: "https://cdn/c.jpg", ThumbnailURL: "https://cdn/c.jpg"},
	}
	if !slices.Equal(data.VisiblePhotos, want) {
		t.Fatalf("photos = %+v", data.VisiblePhotos)
	}
	if data.Progress.TabloID() != 2 || !slices.Equal(data.Progress.ClaimedIDs(), []int{1, 2, 3}) {
		t.Fatalf("progress = %+v", data.Progress)
	}
}

func TestLoadStepDataWithoutStepOmitsQuery(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, stepDataJSON)
	c := studio.NewClient(srv.URL, "", nil)
	if _, err := c.LoadStepData(context.Background(), 1, ""); err != nil {
		t.Fatal(err)
	}
	if q := calls.get(0).query; q != "" {
		t.Fatalf("query = %q", q)
	}
	if _, err := c.LoadStepDataReadonly(context.Background(), 1, domain.StepClaiming); err != nil {
		t.Fatal(err)
	}
	if q := calls.get(1).query; q != "readonly=true&step=claiming" {
		t.Fatalf("readonly query = %q", q)
	}
}

func TestSaveEndpoints(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"message":"ok","cascade_deleted":{"retouch":[4]},"cascade_message":"1 retouch photo removed"}`)
	c := studio.NewClient(srv.URL, "t", nil)
	ctx := domain.WithIdempotencyKey(context.Background(), "key-1")

	res, err := c.SaveClaiming(ctx, 7, []int{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasCascade() || !slices.Equal(res.CascadeDeleted.Retouch, []int{4}) {
		t.Fatalf("cascade = %+v", res)
	}
	if _, err := c.SaveRetouch(ctx, 7, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SaveTablo(ctx, 7, 9); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ClearTablo(ctx, 7); err != nil {
		t.Fatal(err)
	}

	paths := []string{"/tablo/claiming", "/tablo/retouch/auto-save", "/tablo/tablo/auto-save", "/tablo/tablo/clear"}
	for i, p := range paths {
		if calls.get(i).path != p || calls.get(i).method != http.MethodPost {
			t.Fatalf("call %d = %s %s", i, calls.get(i).method, calls.get(i).path)
		}
		if calls.get(i).key != "key-1" {
			t.Fatalf("call %d idempotency key = %q", i, calls.get(i).key)
		}
		if calls.get(i).body["gallerySessionId"] != float64(7) {
			t.Fatalf("call %d body = %v", i, calls.get(i).body)
		}
	}
	if ids, ok := calls.get(1).body["photoIds"].([]any); !ok || len(ids) != 0 {
		t.Fatalf("empty retouch must send photoIds: [] but sent %v", calls.get(1).body)
	}
	if calls.get(2).body["photoId"] != float64(9) {
		t.Fatalf("tablo body = %v", calls.get(2).body)
	}
}

func TestTransitions(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, stepDataJSON)
	c := studio.NewClient(srv.URL, "t", nil)
	ctx := context.Background()

	if _, err := c.NextStep(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := c.PreviousStep(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := c.MoveToStep(ctx, 3, domain.StepClaiming); err != nil {
		t.Fatal(err)
	}
	if calls.get(2).path != "/tablo/move-to-step" || calls.get(2).body["targetStep"] != "claiming" {
		t.Fatalf("move call = %+v", calls.get(2))
	}
	data, err := c.Finalize(ctx, 3)
	if err != nil || data == nil {
		t.Fatalf("finalize with payload: %v %v", data, err)
	}
}

func TestFinalizeWithoutSnapshot(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"message":"finalized"}`)
	c := studio.NewClient(srv.URL, "t", nil)
	data, err := c.Finalize(context.Background(), 3)
	if err != nil || data != nil {
		t.Fatalf("finalize = %v, %v; want nil, nil", data, err)
	}
}

func TestRequestModification(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"success":true,"was_free":true,"message":"reopened"}`)
	c := studio.NewClient(srv.URL, "t", nil)
	res, err := c.RequestModification(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || !res.WasFree || res.Message != "reopened" {
		t.Fatalf("result = %+v", res)
	}
	if calls.get(0).path != "/tablo/workflow/request-modification" {
		t.Fatalf("path = %s", calls.get(0).path)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		status  int
		body    string
		want    error
		message string
	}{
		{http.StatusUnauthorized, `{}`, domain.ErrAuthFailed, domain.MsgUnauthorized},
		{http.StatusForbidden, ``, domain.ErrForbidden, domain.MsgFinalized},
		{http.StatusNotFound, `{"message":"Gallery missing"}`, domain.ErrNotFound, "Gallery missing"},
	}
	for _, tc := range cases {
		srv, _ := newServer(t, tc.status, tc.body)
		c := studio.NewClient(srv.URL, "t", nil)
		_, err := c.LoadStepData(context.Background(), 1, "")
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: error = %v, want %v", tc.status, err, tc.want)
		}
		if domain.IsTransient(err) {
			t.Fatalf("status %d must not be transient", tc.status)
		}
		if got := domain.UserMessage(err); got != tc.message {
			t.Fatalf("status %d: message = %q, want %q", tc.status, got, tc.message)
		}
	}

	srv, _ := newServer(t, http.StatusServiceUnavailable, `{}`)
	_, err := studio.NewClient(srv.URL, "t", nil).LoadStepData(context.Background(), 1, "")
	if !domain.IsTransient(err) {
		t.Fatalf("503 should be transient: %v", err)
	}
}

func TestOfflineAndTimeout(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := studio.NewClient(url, "t", nil).LoadStepData(context.Background(), 1, "")
	if !errors.Is(err, domain.ErrServerOffline) || !domain.IsTransient(err) {
		t.Fatalf("closed server error = %v", err)
	}
	if domain.UserMessage(err) != domain.MsgOffline {
		t.Fatalf("message = %q", domain.UserMessage(err))
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = studio.NewClient(slow.URL, "t", nil).SaveClaiming(ctx, 1, []int{1})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("deadline error = %v, want ErrTimeout", err)
	}
}
