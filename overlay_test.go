package notificare

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlayCoordinatorTransitions(t *testing.T) {
	t.Parallel()

	o := newOverlayCoordinator()

	assert.Equal(t, OverlayHidden, o.State(OverlayMessage))
	assert.False(t, o.IsVisible(OverlayMessage))

	assert.True(t, o.TryShow(OverlayMessage))
	assert.Equal(t, OverlayShowing, o.State(OverlayMessage))
	assert.True(t, o.IsVisible(OverlayMessage))

	// A visible overlay refuses to show again.
	assert.False(t, o.TryShow(OverlayMessage))

	// Other kinds are independent.
	assert.True(t, o.TryShow(OverlayNotification))

	o.SetDismissing(OverlayMessage)
	assert.Equal(t, OverlayDismissing, o.State(OverlayMessage))
	assert.True(t, o.IsVisible(OverlayMessage))
	assert.False(t, o.TryShow(OverlayMessage))

	o.Clear(OverlayMessage)
	assert.Equal(t, OverlayHidden, o.State(OverlayMessage))
	assert.True(t, o.TryShow(OverlayMessage))
}

func TestOverlayStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hidden", OverlayHidden.String())
	assert.Equal(t, "showing", OverlayShowing.String())
	assert.Equal(t, "dismissing", OverlayDismissing.String())
}
