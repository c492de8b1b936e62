package services

import (
	"context"
	"strings"
	"testing"

	"github.com/glocktrack/glocktrack/internal/apperrors"
	"github.com/glocktrack/glocktrack/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileSaveCreatesThenUpdates(t *testing.T) {
	s := newTestStore(t)
	profiles := NewProfileService(s)
	ctx := context.Background()

	id, err := profiles.Save(ctx, ProfileInput{
		Name:                  "Asha",
		DiabetesType:          database.DiabetesType2,
		TargetFastingMin:      70,
		TargetFastingMax:      100,
		TargetPostPrandialMin: 120,
		TargetPostPrandialMax: 140,
		Unit:                  database.UnitMgDL,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	// second save with the returned id updates in place
	updatedID, err := profiles.Save(ctx, ProfileInput{
		ID:               id,
		Name:             "Asha",
		DiabetesType:     database.DiabetesType2,
		TargetFastingMin: 75,
		TargetFastingMax: 105,
		Unit:             database.UnitMmolL,
	})
	require.NoError(t, err)
	assert.Equal(t, id, updatedID)

	count, err := s.CountProfiles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	profile, err := profiles.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 75, profile.TargetFastingMin)
	assert.Equal(t, database.UnitMmolL, profile.Unit)
	// full replacement, not a merge: fields left out of the update reset
	assert.Equal(t, 0, profile.TargetPostPrandialMin)
}

func TestProfileSaveValidation(t *testing.T) {
	s := newTestStore(t)
	profiles := NewProfileService(s)
	ctx := context.Background()

	_, err := profiles.Save(ctx, ProfileInput{Name: "  ", DiabetesType: database.DiabetesType1})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = profiles.Save(ctx, ProfileInput{Name: "Asha", DiabetesType: "Type 3"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = profiles.Save(ctx, ProfileInput{Name: "Asha", DiabetesType: database.DiabetesType1, Unit: "mol/L"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestProfileSaveDefaultsUnit(t *testing.T) {
	s := newTestStore(t)
	profiles := NewProfileService(s)
	ctx := context.Background()

	_, err := profiles.Save(ctx, ProfileInput{Name: "Asha", DiabetesType: database.DiabetesPre})
	require.NoError(t, err)

	profile, err := profiles.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, database.UnitMgDL, profile.Unit)
}

func TestProfilePhotoReplacedWholesale(t *testing.T) {
	s := newTestStore(t)
	profiles := NewProfileService(s)
	ctx := context.Background()

	id, err := profiles.Save(ctx, ProfileInput{
		Name:         "Asha",
		DiabetesType: database.DiabetesType1,
		Photo:        EncodePhoto([]byte("old-picture"), "image/png"),
	})
	require.NoError(t, err)

	_, err = profiles.Save(ctx, ProfileInput{
		ID:           id,
		Name:         "Asha",
		DiabetesType: database.DiabetesType1,
		Photo:        EncodePhoto([]byte("new-picture"), "image/jpeg"),
	})
	require.NoError(t, err)

	profile, err := profiles.Get(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(profile.Photo, "data:image/jpeg;base64,"))
	assert.NotContains(t, profile.Photo, "image/png")
}

func TestEncodePhoto(t *testing.T) {
	encoded := EncodePhoto([]byte{0x89, 0x50, 0x4E, 0x47}, "image/png")
	assert.Equal(t, "data:image/png;base64,iVBORw==", encoded)

	// unknown mime falls back to jpeg
	assert.True(t, strings.HasPrefix(EncodePhoto([]byte("x"), ""), "data:image/jpeg;base64,"))
}
