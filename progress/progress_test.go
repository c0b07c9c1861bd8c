package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvent_String_NoTotalOmitsCounts(t *testing.T) {
	e := Event{Job: "launch", Status: "refreshing manifest index"}
	assert.Equal(t, "launch: refreshing manifest index", e.String())
}

func TestEvent_String_HumanizesCounts(t *testing.T) {
	e := Event{Job: "Resources", Status: "downloading", Completed: 1234, Total: 5678}
	assert.Equal(t, "Resources: 1,234/5,678 (downloading)", e.String())
}

type recordingReporter struct{ events []Event }

func (r *recordingReporter) Report(e Event) { r.events = append(r.events, e) }

func TestDebouncer_DropsEventsFasterThanInterval(t *testing.T) {
	rec := &recordingReporter{}
	d := NewDebouncer(rec, time.Hour)

	d.Report(Event{Completed: 1})
	d.Report(Event{Completed: 2})
	d.Report(Event{Completed: 3})

	assert.Len(t, rec.events, 1, "only the first event within the interval should pass")
}

func TestDebouncer_AlwaysLetsDoneThrough(t *testing.T) {
	rec := &recordingReporter{}
	d := NewDebouncer(rec, time.Hour)

	d.Report(Event{Completed: 1})
	d.Report(Event{Completed: 2, Done: true})

	assert.Len(t, rec.events, 2)
	assert.True(t, rec.events[1].Done)
}

func TestDebouncer_DefaultsIntervalWhenNonPositive(t *testing.T) {
	rec := &recordingReporter{}
	d := NewDebouncer(rec, 0)
	assert.Equal(t, 100*time.Millisecond, d.interval)
}

func TestNop_DiscardsEvents(t *testing.T) {
	assert.NotPanics(t, func() { Nop{}.Report(Event{}) })
}
