package proctor

import (
	"testing"
	"time"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/require"
)

func TestViolationTrackerEscalatesOnce(t *testing.T) {
	var escalations []model.ViolationKind
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tr := NewViolationTracker(func(k model.ViolationKind) {
		escalations = append(escalations, k)
	}, func() time.Time { return now })

	require.Equal(t, 0, tr.Record(model.ViolationCopy, ""))
	require.False(t, tr.Live())

	tr.Arm()
	require.Equal(t, 1, tr.Record(model.ViolationCopy, ""))
	require.Equal(t, 2, tr.Record(model.ViolationTabHidden, ""))
	require.False(t, tr.CheckThreshold())
	require.Empty(t, escalations)

	require.Equal(t, 3, tr.Record(model.ViolationRestrictedKey, "F12"))
	require.Empty(t, escalations)
	require.True(t, tr.CheckThreshold())
	require.Equal(t, []model.ViolationKind{model.ViolationRestrictedKey}, escalations)

	require.Equal(t, 4, tr.Record(model.ViolationCut, ""))
	require.False(t, tr.CheckThreshold())
	require.Len(t, escalations, 1)

	events := tr.Events()
	require.Len(t, events, 4)
	require.Equal(t, now, events[2].Timestamp)
	require.Equal(t, "F12", events[2].Detail)
	require.True(t, events[2].Counted)
}

func TestViolationTrackerCloseIsFinal(t *testing.T) {
	tr := NewViolationTracker(nil, nil)
	tr.Arm()
	tr.Record(model.ViolationWindowBlur, "")
	tr.Close()

	require.Equal(t, 1, tr.Record(model.ViolationWindowBlur, ""))
	tr.Note(model.ViolationRightClick, "")
	tr.Arm()
	require.False(t, tr.Live())
	require.Len(t, tr.Events(), 1)
}

func TestViolationTrackerNoteDoesNotCount(t *testing.T) {
	tr := NewViolationTracker(nil, nil)
	tr.Arm()
	for i := 0; i < 10; i++ {
		tr.Note(model.ViolationRightClick, "")
	}

	require.Equal(t, 0, tr.Count())
	require.Len(t, tr.Events(), 10)
	require.False(t, tr.Events()[0].Counted)
}

func TestViolationTrackerEventsIsCopy(t *testing.T) {
	tr := NewViolationTracker(nil, nil)
	tr.Arm()
	tr.Record(model.ViolationCopy, "")

	events := tr.Events()
	events[0].Kind = model.ViolationCut
	require.Equal(t, model.ViolationCopy, tr.Events()[0].Kind)
}
