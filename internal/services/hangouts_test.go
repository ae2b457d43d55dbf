package services_test

import (
	"testing"

	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/services"
	"foodhub-gateway/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
		{"declined before answer", no, nil, models.HangoutDeclined},
		{"one pending", yes, nil, models.HangoutPending},
		{"nobody answered", nil, nil, models.HangoutPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &models.Hangout{ApprovedByUser1: tc.a, ApprovedByUser2: tc.b}
			assert.Equal(t, tc.expect, h.Status())
		})
	}
}

func TestHangoutLifecycle(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(user("host", "Host"))
	f.backend.AddUser(user("guest", "Guest"))
	guestConn, hostConn := &fakeConn{}, &fakeConn{}
	f.hub.Register("guest", guestConn)
	f.hub.Register("host", hostConn)

	_, err := f.hangouts.Create(as("host"), "host", services.HangoutInput{InviteeID: "host"})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	view, err := f.hangouts.Create(as("host"), "host", services.HangoutInput{InviteeID: "guest", Message: models.Ptr("lunch?")})
	require.NoError(t, err)
	assert.Equal(t, models.HangoutPending, view.Status)
	assert.Equal(t, "Guest", view.Counterpart.Name)
	assert.Equal(t, services.EventHangoutCreated, guestConn.events(t)[0].Type)

	_, err = f.hangouts.Respond(as("stranger"), "stranger", view.ID, true)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeForbidden))

	list, err := f.hangouts.ListForUser(as("guest"), "guest")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].AwaitingMe)

	list, err = f.hangouts.ListForUser(as("host"), "host")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].AwaitingMe, "the host approved their own invitation")

	updated, err := f.hangouts.Respond(as("guest"), "guest", view.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.HangoutAccepted, updated.Status)
	assert.Equal(t, services.EventHangoutUpdated, hostConn.events(t)[0].Type)
	assert.True(t, *f.backend.Hangout(view.ID).ApprovedByUser1)
}

func TestHangoutDeclinedByGuest(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(user("host", "Host"))
	f.backend.AddUser(user("guest", "Guest"))

	view, err := f.hangouts.Create(as("host"), "host", services.HangoutInput{InviteeID: "guest"})
	require.NoError(t, err)
	require.NotNil(t, f.backend.Hangout(view.ID).ApprovedByUser1)

	updated, err := f.hangouts.Respond(as("guest"), "guest", view.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.HangoutDeclined, updated.Status)
}
