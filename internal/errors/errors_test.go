package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaultsBeforeReportingEnabled(t *testing.T) {
	err := New(NewStd("boom")).Build()
	require.Error(t, err)
	assert.Equal(t, ComponentUnknown, err.GetComponent())
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.False(t, err.IsReported())
}

func TestBuilderHonorsExplicitFields(t *testing.T) {
	err := New(NewStd("pool is empty")).
		Component("audiocore").
		Category(CategoryPoolExhaustion).
		Context("bucket", "48000/stereo/256").
		Build()

	assert.Equal(t, "audiocore", err.GetComponent())
	assert.Equal(t, CategoryPoolExhaustion, err.Category)
	assert.Equal(t, "48000/stereo/256", err.GetContext()["bucket"])
}

type fakePublisher struct{ calls int }

func (f *fakePublisher) TryPublish(event any) bool {
	f.calls++
	_, ok := event.(*EnhancedError)
	return ok
}

func TestEventBusReceivesErrorsOnceReportingEnabled(t *testing.T) {
	pub := &fakePublisher{}
	SetEventPublisher(pub)
	defer func() { hasActiveReporting.Store(false) }()

	err := New(NewStd("driver reset")).Category(CategoryDevice).Build()
	assert.True(t, err.IsReported())
	assert.Equal(t, 1, pub.calls)
}

func TestIsCategory(t *testing.T) {
	err := New(NewStd("stall")).Category(CategoryFilterStall).Build()
	assert.True(t, IsCategory(err, CategoryFilterStall))
	assert.False(t, IsCategory(err, CategoryFileStall))
}
