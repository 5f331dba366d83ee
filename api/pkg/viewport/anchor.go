package viewport

// Metrics abstracts the scrollable surface the feed renders into. Units are
// pixels for a DOM-style view, but any monotonic length unit works; a
// terminal UI can report rows.
type Metrics interface {
	ScrollTop() int
	SetScrollTop(top int)
	ScrollHeight() int
	ViewportHeight() int
}

// DefaultNearBottomPx is how close to the bottom the viewport must be for
// appends to auto-follow.
const DefaultNearBottomPx = 80

type Option func(*Anchor)

// WithNearBottom overrides the auto-follow threshold.
func WithNearBottom(px int) Option {
	return func(a *Anchor) {
		a.nearBottomPx = px
	}
}

// WithAfterLayout installs the hook that defers scroll adjustments until
// the surface has re-measured after a mutation. UI adapters schedule the
// callback post-reflow; the default runs it immediately, which suits
// surfaces whose metrics update synchronously.
func WithAfterLayout(schedule func(func())) Option {
	return func(a *Anchor) {
		a.afterLayout = schedule
	}
}

// Anchor keeps the reader's place while the feed mutates underneath:
// prepended history must not shift the content being read, and appends
// follow the bottom only when the reader was already there.
//
// Capture (BeforePrepend/BeforeAppend) must run before the store mutation,
// and the matching After call once the mutation is applied; the actual
// scroll adjustment happens inside the after-layout hook because it depends
// on the post-mutation scroll height.
type Anchor struct {
	view         Metrics
	nearBottomPx int
	afterLayout  func(func())

	distanceFromBottom int
	wasNearBottom      bool
}

func NewAnchor(view Metrics, opts ...Option) *Anchor {
	a := &Anchor{
		view:         view,
		nearBottomPx: DefaultNearBottomPx,
		afterLayout:  func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BeforePrepend captures the viewport's distance from the bottom.
func (a *Anchor) BeforePrepend() {
	a.distanceFromBottom = a.view.ScrollHeight() - a.view.ScrollTop()
}

// AfterPrepend restores the captured distance once the surface has
// re-measured, pinning the previously visible content in place.
func (a *Anchor) AfterPrepend() {
	distance := a.distanceFromBottom
	a.afterLayout(func() {
		a.view.SetScrollTop(a.view.ScrollHeight() - distance)
	})
}

// BeforeAppend records whether the viewport was near the bottom.
func (a *Anchor) BeforeAppend() {
	a.wasNearBottom = a.nearBottom()
}

// AfterAppend scrolls to the new bottom, but only when BeforeAppend saw the
// reader there; otherwise the reader is left where they are.
func (a *Anchor) AfterAppend() {
	if !a.wasNearBottom {
		return
	}
	a.afterLayout(func() {
		a.view.SetScrollTop(max(a.view.ScrollHeight()-a.view.ViewportHeight(), 0))
	})
}

func (a *Anchor) nearBottom() bool {
	bottomGap := a.view.ScrollHeight() - a.view.ScrollTop() - a.view.ViewportHeight()
	return bottomGap <= a.nearBottomPx
}
