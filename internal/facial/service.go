package facial

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/facial-recognition/internal/database"
	"github.com/kozaktomas/facial-recognition/internal/strategy"
)

// Validation messages returned to callers.
const (
	msgEnrollImage    = "Please select an image file to enroll."
	msgEnrollUsername = "Username cannot be empty."
	msgRecognizeImage = "Please select an image file to recognize."
	msgVerifyImage    = "Please select an image file for verification."
	msgVerifyUsername = "Username cannot be empty for verification."
)

// Outcome tells whether an enrollment created or replaced a template.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// EnrollRequest is the input of Enroll.
type EnrollRequest struct {
	Username   string
	Image      []byte
	SourceName string // informational, stored as the template's source image name
}

// EnrollResult is the outcome of a successful enrollment.
type EnrollResult struct {
	Outcome  Outcome
	Username string
	Template *database.Template
}

// Recognition is the outcome of Recognize. Template is nil when nothing matched.
type Recognition struct {
	Matched  bool
	Username string
	Template *database.Template
}

// Verification is the outcome of Verify. A mismatch is not an error.
type Verification struct {
	Username string
	Matched  bool
}

// Service runs the three facial operations against one strategy and one store.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	strategy strategy.Strategy
	store    database.Store
	now      func() time.Time
}

// NewService creates a coordinator. A nil clock means time.Now.
func NewService(s strategy.Strategy, store database.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{strategy: s, store: store, now: now}
}

// Strategy returns the active strategy.
func (s *Service) Strategy() strategy.Strategy {
	return s.strategy
}

// NormalizeUsername trims surrounding whitespace; the result is what gets stored and reported.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Enroll creates the user on first use and creates or replaces their template.
// The user is resolved before extraction, so a NO_FACE result can still leave a new user behind.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResult, error) {
	if len(req.Image) == 0 {
		return nil, invalid(FieldImage, msgEnrollImage)
	}
	username := NormalizeUsername(req.Username)
	if username == "" {
		return nil, invalid(FieldUsername, msgEnrollUsername)
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, storageFailure("enroll: find user", err)
	}
	if user == nil {
		user, err = s.store.CreateUser(ctx, username)
		if err != nil {
			return nil, storageFailure("enroll: create user", err)
		}
	}

	embedding, err := s.extract(ctx, req.Image)
	if err != nil {
		return nil, fmt.Errorf("enroll %q: %w", username, err)
	}

	existing, err := s.store.FindTemplateByUser(ctx, user.ID)
	if err != nil {
		return nil, storageFailure("enroll: find template", err)
	}
	outcome := OutcomeCreated
	if existing != nil {
		outcome = OutcomeUpdated
	}

	tpl, err := s.store.UpsertTemplate(ctx, user.ID, embedding, req.SourceName, s.now())
	if err != nil {
		return nil, storageFailure("enroll: save template", err)
	}

	return &EnrollResult{Outcome: outcome, Username: user.Username, Template: tpl}, nil
}

// Recognize returns the first stored template, in store order, that matches the image.
func (s *Service) Recognize(ctx context.Context, image []byte) (*Recognition, error) {
	if len(image) == 0 {
		return nil, invalid(FieldImage, msgRecognizeImage)
	}

	query, err := s.extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, storageFailure("recognize: list templates", err)
	}

	for i := range templates {
		if s.strategy.Match(query, templates[i].Embedding) {
			tpl := templates[i]
			return &Recognition{Matched: true, Username: tpl.Username, Template: &tpl}, nil
		}
	}
	return &Recognition{}, nil
}

// Verify compares the image with one user's template.
// Checks run in order: input, user, template, extraction, comparison.
func (s *Service) Verify(ctx context.Context, username string, image []byte) (*Verification, error) {
	if len(image) == 0 {
		return nil, invalid(FieldImage, msgVerifyImage)
	}
	username = NormalizeUsername(username)
	if username == "" {
		return nil, invalid(FieldUsername, msgVerifyUsername)
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, storageFailure("verify: find user", err)
	}
	if user == nil {
		return nil, fmt.Errorf("verify %q: %w", username, ErrUserNotFound)
	}

	stored, err := s.store.FindTemplateByUser(ctx, user.ID)
	if err != nil {
		return nil, storageFailure("verify: find template", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("verify %q: %w", username, ErrTemplateNotFound)
	}

	query, err := s.extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("verify %q: %w", username, err)
	}

	return &Verification{
		Username: user.Username,
		Matched:  s.strategy.Match(query, stored.Embedding),
	}, nil
}

func (s *Service) extract(ctx context.Context, image []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embedding := s.strategy.Extract(image)
	if len(embedding) == 0 {
		return nil, ErrNoFace
	}
	return embedding, nil
}
