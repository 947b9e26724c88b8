package viewer

import (
	"context"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/navigation"
	"github.com/Carmen-Shannon/panoview/engine/window"
)

// KeyAction is what a key press does in the viewer.
type KeyAction int

const (
	KeyActionNone KeyAction = iota
	KeyActionMove
	KeyActionZoomIn
	KeyActionZoomOut
)

// KeyBinding maps a key code to its action. Arrow keys move relative to the view direction.
//
// Parameters:
//   - keyCode: the virtual key code
//
// Returns:
//   - KeyAction: the action
//   - Direction: the move direction when the action is KeyActionMove
func KeyBinding(keyCode uint32) (KeyAction, Direction) {
	switch keyCode {
	case common.KeyUp:
		return KeyActionMove, DirectionForward
	case common.KeyDown:
		return KeyActionMove, DirectionBackward
	case common.KeyLeft:
		return KeyActionMove, DirectionLeft
	case common.KeyRight:
		return KeyActionMove, DirectionRight
	case common.KeyEqual, common.KeyKPAdd:
		return KeyActionZoomIn, 0
	case common.KeyMinus, common.KeyKPSubtract:
		return KeyActionZoomOut, 0
	default:
		return KeyActionNone, 0
	}
}

// Key applies a key press. Moves run asynchronously through Go.
//
// Parameters:
//   - v: the viewer
//   - keyCode: the virtual key code
//   - zoomStep: zoom input per zoom key press
func Key(v Viewer, keyCode uint32, zoomStep float32) {
	action, dir := KeyBinding(keyCode)
	switch action {
	case KeyActionMove:
		v.Go(func(ctx context.Context) error { return v.Move(ctx, dir) })
	case KeyActionZoomIn:
		v.Zoom(zoomStep)
	case KeyActionZoomOut:
		v.Zoom(-zoomStep)
	}
}

// BindWindow routes a window's input to the viewer. Clicks and key moves run asynchronously so the
// window thread never waits on the network.
//
// Parameters:
//   - v: the viewer
//   - w: the window
func BindWindow(v Viewer, w window.Window) {
	zoomStep := float32(1)
	if impl, ok := v.(*viewerImpl); ok {
		zoomStep = impl.keyZoom
	}

	w.SetMouseDownCallback(func(button window.MouseButton, x, y float32) {
		if button == window.MouseButtonLeft {
			v.PointerDown(x, y)
		}
	})
	w.SetMouseUpCallback(func(button window.MouseButton, x, y float32) {
		switch button {
		case window.MouseButtonLeft:
			if click := v.PointerUp(x, y); click != nil {
				c := *click
				v.Go(func(ctx context.Context) error { return v.Click(ctx, c) })
			}
		case window.MouseButtonRight:
			c := navigation.Click{X: x, Y: y, Secondary: true}
			v.Go(func(ctx context.Context) error { return v.Click(ctx, c) })
		}
	})
	w.SetMouseMoveCallback(v.PointerMove)
	w.SetScrollCallback(v.Zoom)
	w.SetKeyDownCallback(func(keyCode uint32) {
		Key(v, keyCode, zoomStep)
	})
}
