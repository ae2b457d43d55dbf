package models_test

import (
	"testing"

	"foodhub-gateway/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestHangoutStatus(t *testing.T) {
	yes, no := models.Ptr(true), models.Ptr(false)

	cases := []struct {
		name   string
		a, b   *bool
		expect models.HangoutStatus
	}{
		{"both accepted", yes, yes, models.HangoutAccepted},
		{"one declined", yes, no, models.HangoutDeclined},
		{"declined while other pending", nil, no, models.HangoutDeclined},
		{"one pending", yes, nil, models.HangoutPending},
		{"untouched", nil, nil, models.HangoutPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := models.Hangout{ApprovedByUser1: tc.a, ApprovedByUser2: tc.b}
			assert.Equal(t, tc.expect, h.Status())
		})
	}
}

func TestReviewTarget(t *testing.T) {
	r := models.Review{FoodID: models.Ptr("f1")}
	kind, id := r.Target()
	assert.Equal(t, models.TargetFood, kind)
	assert.Equal(t, "f1", id)

	r = models.Review{RestaurantID: models.Ptr("r1")}
	kind, id = r.Target()
	assert.Equal(t, models.TargetRestaurant, kind)
	assert.Equal(t, "r1", id)

	r = models.Review{FoodID: models.Ptr("")}
	kind, _ = r.Target()
	assert.Equal(t, models.TargetGeneral, kind)
}

func TestUserDisplayName(t *testing.T) {
	u := models.User{ID: "u1", FirstName: models.Ptr("Ada"), LastName: models.Ptr("Lovelace")}
	assert.Equal(t, "Ada Lovelace", u.DisplayName())

	u.Name = models.Ptr("ada")
	assert.Equal(t, "ada", u.DisplayName())

	assert.Equal(t, "u2", (&models.User{ID: "u2"}).DisplayName())
}

func TestParseTimestamp(t *testing.T) {
	_, ok := models.ParseTimestamp("2025-03-01T10:15:30")
	assert.True(t, ok)
	_, ok = models.ParseTimestamp("2025-03-01T10:15:30.123456Z")
	assert.True(t, ok)
	_, ok = models.ParseTimestamp("yesterday")
	assert.False(t, ok)
}
