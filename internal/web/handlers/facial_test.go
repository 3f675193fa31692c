package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/facial-recognition/internal/constants"
	"github.com/kozaktomas/facial-recognition/internal/database/mock"
	"github.com/kozaktomas/facial-recognition/internal/events"
	"github.com/kozaktomas/facial-recognition/internal/facial"
	"github.com/kozaktomas/facial-recognition/internal/metrics"
	"github.com/kozaktomas/facial-recognition/internal/strategy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type facialFixture struct {
	handler   *FacialHandler
	store     *mock.MockStore
	publisher *recordingPublisher
	metrics   *metrics.Metrics
}

func newFacialFixture(t *testing.T) *facialFixture {
	t.Helper()
	store := mock.NewMockStore()
	pub := &recordingPublisher{}
	m := metrics.New(prometheus.NewRegistry())
	svc := facial.NewService(strategy.NewPixelSum(0), store, nil)
	return &facialFixture{
		handler:   NewFacialHandler(svc, pub, m),
		store:     store,
		publisher: pub,
		metrics:   m,
	}
}

func (f *facialFixture) enroll(t *testing.T, username string, image []byte) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.Enroll(rec, multipartRequest(t, "/api/v1/facial/enroll", map[string]string{"username": username}, "face.png", image))
	return rec
}

func TestFacialHandler_Enroll(t *testing.T) {
	f := newFacialFixture(t)
	imageA := encodePNG(t, 2, 2, 10)

	rec := f.enroll(t, "alice", imageA)
	assertStatusCode(t, rec, http.StatusCreated)
	assertContentType(t, rec, "text/plain; charset=utf-8")
	assertBody(t, rec, "Facial template enrolled successfully for user: alice")

	rec = f.enroll(t, "alice", imageA)
	assertStatusCode(t, rec, http.StatusOK)
	assertBody(t, rec, "Facial template updated successfully for user: alice")

	templates, _ := f.store.ListTemplates(t.Context())
	if len(templates) != 1 {
		t.Fatalf("expected one template, got %d", len(templates))
	}
	if templates[0].SourceImageName != "face.png" {
		t.Errorf("expected source image name face.png, got %q", templates[0].SourceImageName)
	}

	published := f.publisher.published()
	if len(published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(published))
	}
	if published[0].Type != events.TypeTemplateCreated || published[1].Type != events.TypeTemplateUpdated {
		t.Errorf("unexpected event types %s, %s", published[0].Type, published[1].Type)
	}

	if got := testutil.ToFloat64(f.metrics.Operations.WithLabelValues("enroll", "created")); got != 1 {
		t.Errorf("expected 1 enroll/created, got %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.Operations.WithLabelValues("enroll", "updated")); got != 1 {
		t.Errorf("expected 1 enroll/updated, got %v", got)
	}
}

func TestFacialHandler_Enroll_Errors(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		fileName   string
		file       []byte
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing file",
			username:   "alice",
			wantStatus: http.StatusBadRequest,
			wantBody:   "Please select an image file to enroll.",
		},
		{
			name:       "empty file",
			username:   "alice",
			fileName:   "empty.png",
			file:       []byte{},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Please select an image file to enroll.",
		},
		{
			name:       "blank username",
			username:   "   ",
			fileName:   "a.png",
			file:       []byte{1, 2, 3},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Username cannot be empty.",
		},
		{
			name:       "undecodable image",
			username:   "alice",
			fileName:   "a.png",
			file:       []byte("definitely not a picture"),
			wantStatus: http.StatusBadRequest,
			wantBody:   "No face detected or failed to extract embedding from the image.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFacialFixture(t)
			rec := httptest.NewRecorder()
			req := multipartRequest(t, "/api/v1/facial/enroll", map[string]string{"username": tt.username}, tt.fileName, tt.file)

			f.handler.Enroll(rec, req)

			assertStatusCode(t, rec, tt.wantStatus)
			assertBody(t, rec, tt.wantBody)
			if len(f.publisher.published()) != 0 {
				t.Error("expected no events for failed enrollment")
			}
		})
	}
}

func TestFacialHandler_Enroll_StorageFailure(t *testing.T) {
	f := newFacialFixture(t)
	f.store.UpsertError = errors.New("connection reset")

	rec := f.enroll(t, "alice", encodePNG(t, 1, 1, 1))

	assertStatusCode(t, rec, http.StatusInternalServerError)
	assertBody(t, rec, "An error occurred during facial enrollment.")
	if got := testutil.ToFloat64(f.metrics.Operations.WithLabelValues("enroll", "error")); got != 1 {
		t.Errorf("expected 1 enroll/error, got %v", got)
	}
}

func TestFacialHandler_Enroll_PublishFailureIgnored(t *testing.T) {
	f := newFacialFixture(t)
	f.publisher.err = errors.New("broker down")

	rec := f.enroll(t, "alice", encodePNG(t, 1, 1, 1))

	assertStatusCode(t, rec, http.StatusCreated)
}

func TestFacialHandler_Enroll_NotMultipart(t *testing.T) {
	f := newFacialFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/facial/enroll", strings.NewReader("username=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	f.handler.Enroll(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertBody(t, rec, "Please select an image file to enroll.")
}

func TestFacialHandler_Enroll_MalformedMultipart(t *testing.T) {
	f := newFacialFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/facial/enroll", strings.NewReader("garbage"))
	req.Header.Set("Content-Type", "multipart/form-data")
	rec := httptest.NewRecorder()

	f.handler.Enroll(rec, req)

	assertStatusCode(t, rec, http.StatusInternalServerError)
	assertBody(t, rec, "Failed to read image file.")
}

func TestFacialHandler_Enroll_TooLarge(t *testing.T) {
	f := newFacialFixture(t)
	big := bytes.Repeat([]byte{0xff}, constants.MaxUploadSize+1)
	req := multipartRequest(t, "/api/v1/facial/enroll", map[string]string{"username": "alice"}, "big.png", big)
	rec := httptest.NewRecorder()

	f.handler.Enroll(rec, req)

	assertStatusCode(t, rec, http.StatusRequestEntityTooLarge)
	assertBody(t, rec, "Image file too large.")
}

func TestFacialHandler_Recognize(t *testing.T) {
	f := newFacialFixture(t)
	imageA := encodePNG(t, 2, 2, 10)
	imageB := encodePNG(t, 2, 2, 20)
	imageC := encodePNG(t, 3, 3, 10)

	assertStatusCode(t, f.enroll(t, "alice", imageA), http.StatusCreated)
	assertStatusCode(t, f.enroll(t, "bob", imageB), http.StatusCreated)

	tests := []struct {
		name     string
		image    []byte
		wantBody string
	}{
		{name: "alice", image: imageA, wantBody: "Match found for user: alice"},
		{name: "bob", image: imageB, wantBody: "Match found for user: bob"},
		{name: "novel", image: imageC, wantBody: "No match found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.handler.Recognize(rec, multipartRequest(t, "/api/v1/facial/recognize", nil, "q.png", tt.image))

			assertStatusCode(t, rec, http.StatusOK)
			assertBody(t, rec, tt.wantBody)
		})
	}
}

func TestFacialHandler_Recognize_Errors(t *testing.T) {
	f := newFacialFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Recognize(rec, multipartRequest(t, "/api/v1/facial/recognize", nil, "", nil))
	assertStatusCode(t, rec, http.StatusBadRequest)
	assertBody(t, rec, "Please select an image file to recognize.")

	f.store.ListError = errors.New("timeout")
	rec = httptest.NewRecorder()
	f.handler.Recognize(rec, multipartRequest(t, "/api/v1/facial/recognize", nil, "q.png", encodePNG(t, 1, 1, 1)))
	assertStatusCode(t, rec, http.StatusInternalServerError)
	assertBody(t, rec, "An error occurred during facial recognition.")
}

func TestFacialHandler_Verify(t *testing.T) {
	f := newFacialFixture(t)
	imageA := encodePNG(t, 2, 2, 10)
	imageB := encodePNG(t, 2, 2, 20)

	assertStatusCode(t, f.enroll(t, "alice", imageA), http.StatusCreated)
	if _, err := f.store.CreateUser(t.Context(), "frank"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	tests := []struct {
		name       string
		fields     map[string]string
		fileName   string
		image      []byte
		wantStatus int
		wantBody   string
	}{
		{
			name:       "match",
			fields:     map[string]string{"username": "alice"},
			fileName:   "a.png",
			image:      imageA,
			wantStatus: http.StatusOK,
			wantBody:   "Verification successful: Face matches user alice",
		},
		{
			name:       "mismatch",
			fields:     map[string]string{"username": "alice"},
			fileName:   "b.png",
			image:      imageB,
			wantStatus: http.StatusOK,
			wantBody:   "Verification failed: Face does NOT match user alice",
		},
		{
			name:       "unknown user",
			fields:     map[string]string{"username": "carol"},
			fileName:   "a.png",
			image:      imageA,
			wantStatus: http.StatusNotFound,
			wantBody:   "User not found: carol",
		},
		{
			name:       "user without template",
			fields:     map[string]string{"username": " frank "},
			fileName:   "a.png",
			image:      imageA,
			wantStatus: http.StatusNotFound,
			wantBody:   "No facial template found for user: frank",
		},
		{
			name:       "missing file",
			fields:     map[string]string{"username": "alice"},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Please select an image file for verification.",
		},
		{
			name:       "missing username",
			fileName:   "a.png",
			image:      imageA,
			wantStatus: http.StatusBadRequest,
			wantBody:   "Username cannot be empty for verification.",
		},
		{
			name:       "no face",
			fields:     map[string]string{"username": "alice"},
			fileName:   "a.png",
			image:      []byte("nope"),
			wantStatus: http.StatusBadRequest,
			wantBody:   "No face detected or failed to extract embedding from the image.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.handler.Verify(rec, multipartRequest(t, "/api/v1/facial/verify", tt.fields, tt.fileName, tt.image))

			assertStatusCode(t, rec, tt.wantStatus)
			assertBody(t, rec, tt.wantBody)
		})
	}
}

func TestFacialHandler_Verify_StorageFailure(t *testing.T) {
	f := newFacialFixture(t)
	f.store.FindUserError = errors.New("down")

	rec := httptest.NewRecorder()
	f.handler.Verify(rec, multipartRequest(t, "/api/v1/facial/verify", map[string]string{"username": "alice"}, "a.png", encodePNG(t, 1, 1, 1)))

	assertStatusCode(t, rec, http.StatusInternalServerError)
	assertBody(t, rec, "An error occurred during facial verification.")
}

func TestNewFacialHandler_NilPublisher(t *testing.T) {
	svc := facial.NewService(strategy.NewPixelSum(0), mock.NewMockStore(), nil)
	h := NewFacialHandler(svc, nil, nil)

	rec := httptest.NewRecorder()
	h.Enroll(rec, multipartRequest(t, "/api/v1/facial/enroll", map[string]string{"username": "alice"}, "a.png", encodePNG(t, 1, 1, 1)))

	assertStatusCode(t, rec, http.StatusCreated)
}
