package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoomStatus(t *testing.T) {
	testCases := []struct {
		raw       string
		expected  RoomStatus
		expectErr bool
	}{
		{raw: "available", expected: RoomAvailable},
		{raw: " Vacant ", expected: RoomAvailable},
		{raw: "filled", expected: RoomFilled},
		{raw: "OCCUPIED", expected: RoomFilled},
		{raw: "damaged", expected: RoomDamaged},
		{raw: "out of order", expected: RoomDamaged},
		{raw: "reserved", expectErr: true},
		{raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			st, err := ParseRoomStatus(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, st)
		})
	}
}

func TestParseApplicationStatus(t *testing.T) {
	for raw, want := range map[string]ApplicationStatus{
		"PENDING":  StatusPending,
		"accepted": StatusApproved,
		"Approved": StatusApproved,
		"rejected": StatusRejected,
	} {
		got, err := ParseApplicationStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseApplicationStatus("waitlisted")
	assert.Error(t, err)
}

func TestApplicationStatusPredicates(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())

	assert.True(t, StatusPending.Active())
	assert.True(t, StatusApproved.Active())
	assert.False(t, StatusRejected.Active())
}

func TestGenderAdmits(t *testing.T) {
	assert.True(t, GenderAny.Admits(GenderFemale))
	assert.True(t, GenderMale.Admits(GenderMale))
	assert.False(t, GenderMale.Admits(GenderFemale))
	assert.True(t, GenderFemale.Admits(""))
}

func TestRoomCloneIsIndependent(t *testing.T) {
	r := Room{ID: "r1", Capacity: 2, Occupants: []string{"S1"}}
	c := r.Clone()
	c.Occupants = append(c.Occupants, "S2")
	c.Occupants[0] = "X"

	assert.Equal(t, []string{"S1"}, []string(r.Occupants))
	assert.Equal(t, 1, r.FreeBeds())
	assert.True(t, r.HasOccupant("S1"))
}
