package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeView struct {
	scrollTop      int
	scrollHeight   int
	viewportHeight int
}

func (f *fakeView) ScrollTop() int       { return f.scrollTop }
func (f *fakeView) SetScrollTop(top int) { f.scrollTop = top }
func (f *fakeView) ScrollHeight() int    { return f.scrollHeight }
func (f *fakeView) ViewportHeight() int  { return f.viewportHeight }

func TestAnchorPrepend(t *testing.T) {
	t.Run("pins content across a prepend", func(t *testing.T) {
		view := &fakeView{scrollTop: 100, scrollHeight: 2000, viewportHeight: 600}
		anchor := NewAnchor(view)

		anchor.BeforePrepend()
		// An older page grew the content above the viewport.
		view.scrollHeight = 2800
		anchor.AfterPrepend()

		assert.Equal(t, 900, view.scrollTop, "distance from bottom must be preserved")
		assert.Equal(t, 2800-view.scrollTop, 2000-100, "same content stays in view")
	})

	t.Run("no-op when nothing was added", func(t *testing.T) {
		view := &fakeView{scrollTop: 100, scrollHeight: 2000, viewportHeight: 600}
		anchor := NewAnchor(view)

		anchor.BeforePrepend()
		anchor.AfterPrepend()
		assert.Equal(t, 100, view.scrollTop)
	})
}

func TestAnchorAppend(t *testing.T) {
	t.Run("follows the bottom when near it", func(t *testing.T) {
		view := &fakeView{scrollTop: 1350, scrollHeight: 2000, viewportHeight: 600}
		anchor := NewAnchor(view)

		anchor.BeforeAppend()
		view.scrollHeight = 2100
		anchor.AfterAppend()

		assert.Equal(t, 1500, view.scrollTop)
	})

	t.Run("stays put when scrolled up", func(t *testing.T) {
		view := &fakeView{scrollTop: 200, scrollHeight: 2000, viewportHeight: 600}
		anchor := NewAnchor(view)

		anchor.BeforeAppend()
		view.scrollHeight = 2100
		anchor.AfterAppend()

		assert.Equal(t, 200, view.scrollTop, "reader scrolled into history must not be yanked down")
	})

	t.Run("threshold boundary", func(t *testing.T) {
		// bottomGap exactly at the threshold still follows; one past does not.
		atThreshold := &fakeView{scrollTop: 2000 - 600 - DefaultNearBottomPx, scrollHeight: 2000, viewportHeight: 600}
		anchor := NewAnchor(atThreshold)
		anchor.BeforeAppend()
		atThreshold.scrollHeight = 2100
		anchor.AfterAppend()
		assert.Equal(t, 1500, atThreshold.scrollTop)

		pastThreshold := &fakeView{scrollTop: 2000 - 600 - DefaultNearBottomPx - 1, scrollHeight: 2000, viewportHeight: 600}
		anchor = NewAnchor(pastThreshold)
		anchor.BeforeAppend()
		pastThreshold.scrollHeight = 2100
		anchor.AfterAppend()
		assert.Equal(t, 2000-600-DefaultNearBottomPx-1, pastThreshold.scrollTop)
	})

	t.Run("custom threshold", func(t *testing.T) {
		view := &fakeView{scrollTop: 1200, scrollHeight: 2000, viewportHeight: 600}
		anchor := NewAnchor(view, WithNearBottom(300))

		anchor.BeforeAppend()
		view.scrollHeight = 2100
		anchor.AfterAppend()

		assert.Equal(t, 1500, view.scrollTop)
	})

	t.Run("short content clamps to zero", func(t *testing.T) {
		view := &fakeView{scrollTop: 0, scrollHeight: 100, viewportHeight: 600}
		anchor := NewAnchor(view)

		anchor.BeforeAppend()
		view.scrollHeight = 150
		anchor.AfterAppend()

		assert.Equal(t, 0, view.scrollTop)
	})
}

func TestAnchorAfterLayout(t *testing.T) {
	// Adjustments must run inside the scheduling hook, after the surface
	// has re-measured.
	view := &fakeView{scrollTop: 100, scrollHeight: 2000, viewportHeight: 600}

	var deferred []func()
	anchor := NewAnchor(view, WithAfterLayout(func(fn func()) {
		deferred = append(deferred, fn)
	}))

	anchor.BeforePrepend()
	anchor.AfterPrepend()
	require.Len(t, deferred, 1)
	assert.Equal(t, 100, view.scrollTop, "nothing moves until layout settles")

	view.scrollHeight = 2800
	deferred[0]()
	assert.Equal(t, 900, view.scrollTop)
}
