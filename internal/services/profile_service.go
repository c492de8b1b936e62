package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/glocktrack/glocktrack/internal/apperrors"
	"github.com/glocktrack/glocktrack/internal/database"
	"github.com/glocktrack/glocktrack/internal/store"
)

// ProfileInput carries profile fields from the caller. A zero ID means
// create; a set ID means full replacement of that record.
//
// Target bounds are stored as given; min greater than max is not rejected
// here, matching the permissive input handling of the app's form.
type ProfileInput struct {
	ID                    uint
	Name                  string
	DiabetesType          database.DiabetesType
	TargetFastingMin      int
	TargetFastingMax      int
	TargetPostPrandialMin int
	TargetPostPrandialMax int
	Unit                  database.GlucoseUnit
	Photo                 string
}

// ProfileService manages the single active profile
type ProfileService struct {
	store *store.Store
}

// NewProfileService creates a new profile service
func NewProfileService(s *store.Store) *ProfileService {
	return &ProfileService{store: s}
}

// Save creates the profile on first save or fully replaces the record when
// input.ID is set. Returns the profile id.
func (s *ProfileService) Save(ctx context.Context, input ProfileInput) (uint, error) {
	if strings.TrimSpace(input.Name) == "" {
		return 0, apperrors.NewValidationError("profile name is required")
	}
	if !input.DiabetesType.Valid() {
		return 0, apperrors.NewValidationError(fmt.Sprintf("unknown diabetes type %q", input.DiabetesType))
	}
	if input.Unit == "" {
		input.Unit = database.UnitMgDL
	}
	if !input.Unit.Valid() {
		return 0, apperrors.NewValidationError(fmt.Sprintf("unknown unit %q", input.Unit))
	}

	profile := database.UserProfile{
		ID:                    input.ID,
		Name:                  input.Name,
		DiabetesType:          input.DiabetesType,
		TargetFastingMin:      input.TargetFastingMin,
		TargetFastingMax:      input.TargetFastingMax,
		TargetPostPrandialMin: input.TargetPostPrandialMin,
		TargetPostPrandialMax: input.TargetPostPrandialMax,
		Unit:                  input.Unit,
		Photo:                 input.Photo,
	}
	return s.store.UpsertProfile(ctx, &profile)
}

// Get returns the active profile, or nil when none has been saved yet
func (s *ProfileService) Get(ctx context.Context) (*database.UserProfile, error) {
	return s.store.ActiveProfile(ctx)
}

// EncodePhoto converts raw image bytes into the self-contained data URL
// stored on the profile. The previous photo is replaced wholesale.
func EncodePhoto(raw []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(raw))
}
