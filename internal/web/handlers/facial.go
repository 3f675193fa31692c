package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kozaktomas/facial-recognition/internal/constants"
	"github.com/kozaktomas/facial-recognition/internal/events"
	"github.com/kozaktomas/facial-recognition/internal/facial"
	"github.com/kozaktomas/facial-recognition/internal/metrics"
	"github.com/rs/zerolog"
)

// Response bodies.
const (
	msgEnrolled          = "Facial template enrolled successfully for user: %s"
	msgUpdated           = "Facial template updated successfully for user: %s"
	msgMatchFound        = "Match found for user: %s"
	msgNoMatch           = "No match found."
	msgVerifyOK          = "Verification successful: Face matches user %s"
	msgVerifyFail        = "Verification failed: Face does NOT match user %s"
	msgNoFace            = "No face detected or failed to extract embedding from the image."
	msgUserNotFound      = "User not found: %s"
	msgTemplateNotFound  = "No facial template found for user: %s"
	msgImageReadFailed   = "Failed to read image file."
	msgImageTooLarge     = "Image file too large."
	msgEnrollInternal    = "An error occurred during facial enrollment."
	msgRecognizeInternal = "An error occurred during facial recognition."
	msgVerifyInternal    = "An error occurred during facial verification."
)

// Operation names used in logs and metrics.
const (
	opEnroll    = "enroll"
	opRecognize = "recognize"
	opVerify    = "verify"
)

var (
	errImageRead     = errors.New("failed to read image")
	errImageTooLarge = errors.New("image too large")
)

// FacialHandler serves the enroll, recognize and verify endpoints.
type FacialHandler struct {
	service   *facial.Service
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// NewFacialHandler creates a facial handler. A nil publisher disables enrollment events.
func NewFacialHandler(service *facial.Service, publisher events.Publisher, m *metrics.Metrics) *FacialHandler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &FacialHandler{service: service, publisher: publisher, metrics: m}
}

// upload is the parsed multipart form of a facial request.
type upload struct {
	username   string
	image      []byte
	sourceName string
}

// readUpload parses the multipart body. A missing form or file part yields an empty
// image so the coordinator reports it as bad input.
func readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)

	if err := r.ParseMultipartForm(constants.MaxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, fmt.Errorf("%w: %w", errImageTooLarge, err)
		case errors.Is(err, http.ErrNotMultipart):
			return &upload{username: r.PostFormValue(constants.FormFieldUsername)}, nil
		default:
			return nil, fmt.Errorf("%w: %w", errImageRead, err)
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup
	}

	u := &upload{username: r.FormValue(constants.FormFieldUsername)}

	file, header, err := r.FormFile(constants.FormFieldFile)
	if errors.Is(err, http.ErrMissingFile) {
		return u, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errImageRead, err)
	}
	defer file.Close()

	u.image, err = io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errImageRead, err)
	}
	u.sourceName = header.Filename
	return u, nil
}

// respondUploadError maps a readUpload failure to its response.
func (h *FacialHandler) respondUploadError(w http.ResponseWriter, r *http.Request, op string, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("operation", op).Msg("Failed to read upload")
	h.metrics.Operation(op, "image_read_failed")
	if errors.Is(err, errImageTooLarge) {
		respondText(w, http.StatusRequestEntityTooLarge, msgImageTooLarge)
		return
	}
	respondText(w, http.StatusInternalServerError, msgImageReadFailed)
}

// respondFacialError maps a coordinator error to its status and plain text body.
func (h *FacialHandler) respondFacialError(w http.ResponseWriter, r *http.Request, op, username string, err error) {
	var verr *facial.ValidationError
	switch {
	case errors.As(err, &verr):
		h.metrics.Operation(op, "bad_input")
		respondText(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, facial.ErrNoFace):
		h.metrics.Operation(op, "no_face")
		respondText(w, http.StatusBadRequest, msgNoFace)
	case errors.Is(err, facial.ErrUserNotFound):
		h.metrics.Operation(op, "user_not_found")
		respondText(w, http.StatusNotFound, fmt.Sprintf(msgUserNotFound, username))
	case errors.Is(err, facial.ErrTemplateNotFound):
		h.metrics.Operation(op, "template_not_found")
		respondText(w, http.StatusNotFound, fmt.Sprintf(msgTemplateNotFound, username))
	default:
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Str("operation", op).
			Str("username", sanitizeForLog(username)).
			Msg("Facial operation failed")
		h.metrics.Operation(op, "error")
		respondText(w, http.StatusInternalServerError, internalMessage(op))
	}
}

func internalMessage(op string) string {
	switch op {
	case opEnroll:
		return msgEnrollInternal
	case opRecognize:
		return msgRecognizeInternal
	default:
		return msgVerifyInternal
	}
}

// Enroll handles POST /api/v1/facial/enroll.
func (h *FacialHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	u, err := readUpload(w, r)
	if err != nil {
		h.respondUploadError(w, r, opEnroll, err)
		return
	}

	ctx := r.Context()
	res, err := h.service.Enroll(ctx, facial.EnrollRequest{
		Username:   u.username,
		Image:      u.image,
		SourceName: u.sourceName,
	})
	if err != nil {
		h.respondFacialError(w, r, opEnroll, facial.NormalizeUsername(u.username), err)
		return
	}

	created := res.Outcome == facial.OutcomeCreated
	if err := h.publisher.Publish(ctx, events.TemplateEnrolled(created, res.Template)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("username", sanitizeForLog(res.Username)).Msg("Failed to publish enrollment event")
	}

	h.metrics.Operation(opEnroll, res.Outcome.String())
	zerolog.Ctx(ctx).Info().
		Str("username", sanitizeForLog(res.Username)).
		Int64("template_id", res.Template.ID).
		Str("outcome", res.Outcome.String()).
		Msg("Facial template enrolled")

	if created {
		respondText(w, http.StatusCreated, fmt.Sprintf(msgEnrolled, res.Username))
		return
	}
	respondText(w, http.StatusOK, fmt.Sprintf(msgUpdated, res.Username))
}

// Recognize handles POST /api/v1/facial/recognize.
func (h *FacialHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	u, err := readUpload(w, r)
	if err != nil {
		h.respondUploadError(w, r, opRecognize, err)
		return
	}

	rec, err := h.service.Recognize(r.Context(), u.image)
	if err != nil {
		h.respondFacialError(w, r, opRecognize, "", err)
		return
	}

	if !rec.Matched {
		h.metrics.Operation(opRecognize, "no_match")
		respondText(w, http.StatusOK, msgNoMatch)
		return
	}
	h.metrics.Operation(opRecognize, "match")
	respondText(w, http.StatusOK, fmt.Sprintf(msgMatchFound, rec.Username))
}

// Verify handles POST /api/v1/facial/verify.
func (h *FacialHandler) Verify(w http.ResponseWriter, r *http.Request) {
	u, err := readUpload(w, r)
	if err != nil {
		h.respondUploadError(w, r, opVerify, err)
		return
	}

	username := facial.NormalizeUsername(u.username)
	v, err := h.service.Verify(r.Context(), username, u.image)
	if err != nil {
		h.respondFacialError(w, r, opVerify, username, err)
		return
	}

	if v.Matched {
		h.metrics.Operation(opVerify, "match")
		respondText(w, http.StatusOK, fmt.Sprintf(msgVerifyOK, v.Username))
		return
	}
	h.metrics.Operation(opVerify, "no_match")
	respondText(w, http.StatusOK, fmt.Sprintf(msgVerifyFail, v.Username))
}
