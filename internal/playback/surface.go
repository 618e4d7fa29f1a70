// Package playback protects lesson video playback: interaction suppression, auto-pause, watermarking
// and progress reporting. The page is reached only through capability interfaces so every behavior can be
// exercised with a fake and missing capabilities degrade to no-ops.
package playback

// Surface is the protected video and its page. Pause is the only required capability; the others are
// discovered with type assertions.
type Surface interface {
	Pause()
}

// Release undoes a suppression or unregisters a listener. It is safe to call more than once.
type Release func()

// ContextMenuSuppressor blocks the context menu over the player.
type ContextMenuSuppressor interface {
	SuppressContextMenu() Release
}

// DragSuppressor blocks drag start over the player.
type DragSuppressor interface {
	SuppressDrag() Release
}

// SelectionSuppressor blocks text selection on the page.
type SelectionSuppressor interface {
	SuppressSelection() Release
}

// KeyInterceptor delivers key presses; a handler returning true blocks the key's default action.
type KeyInterceptor interface {
	OnKeyDown(handler func(Key) bool) Release
}

// VisibilityNotifier reports when the document becomes hidden.
type VisibilityNotifier interface {
	OnVisibilityHidden(handler func()) Release
}

// PictureInPictureDisabler turns off picture-in-picture on the video.
type PictureInPictureDisabler interface {
	DisablePictureInPicture()
}

// DownloadDisabler hides the native download control.
type DownloadDisabler interface {
	DisableDownload()
}

// WatermarkRenderer draws a non-interactive overlay.
type WatermarkRenderer interface {
	ShowWatermark(w Watermark) Release
}

// ClipboardClearer empties the system clipboard.
type ClipboardClearer interface {
	ClearClipboard()
}

// Alerter shows a blocking warning dialog.
type Alerter interface {
	Warn(message string)
}

// ProgressSource reports playback position and natural end.
type ProgressSource interface {
	OnTimeUpdate(handler func(current, duration float64)) Release
	OnEnded(handler func()) Release
}

// WindowMetrics reports outer and inner window sizes for devtools detection.
type WindowMetrics interface {
	WindowSize() (outerWidth, outerHeight, innerWidth, innerHeight int)
}
