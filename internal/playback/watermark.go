package playback

import (
	"time"

	"course-guard/internal/identity/domain"
)

// Position is where a watermark copy is placed over the video.
type Position struct {
	Name string
	// Top and Left are percentages of the player box.
	Top  float64
	Left float64
	// Rotation is in degrees.
	Rotation float64
}

// Default placements: four corners and a rotated centre copy.
var (
	TopLeft     = Position{Name: "top-left", Top: 8, Left: 6}
	TopRight    = Position{Name: "top-right", Top: 8, Left: 70}
	BottomLeft  = Position{Name: "bottom-left", Top: 82, Left: 6}
	BottomRight = Position{Name: "bottom-right", Top: 82, Left: 70}
	Centre      = Position{Name: "centre", Top: 45, Left: 30, Rotation: -30}
)

// Watermark describes the overlay. Every element ignores pointer events.
type Watermark struct {
	// Text is the viewer label: display name, else email, else the brand.
	Text string
	// Suffix is the first 8 characters of the account id; empty for anonymous viewers.
	Suffix    string
	Positions []Position
	// Strip is the date/email line drawn along the bottom edge.
	Strip         string
	PointerEvents bool
	Opacity       float64
}

// Label returns the text drawn at each position.
func (w Watermark) Label() string {
	if w.Suffix == "" {
		return w.Text
	}
	return w.Text + " · " + w.Suffix
}

// DefaultBrand labels the overlay when neither the viewer nor the deployment supplies text.
const DefaultBrand = "Academy"

// BuildWatermark builds the overlay for viewer. viewer may be nil.
func BuildWatermark(viewer *domain.Identity, brand string, now time.Time) Watermark {
	if brand == "" {
		brand = DefaultBrand
	}
	text := brand
	var email string
	if viewer != nil {
		email = viewer.Email
		switch {
		case viewer.DisplayName != "":
			text = viewer.DisplayName
		case viewer.Email != "":
			text = viewer.Email
		}
	}
	strip := now.Format("2006-01-02")
	if email != "" {
		strip += " · " + email
	} else {
		strip += " · " + brand
	}
	return Watermark{
		Text:          text,
		Suffix:        viewer.ShortID(),
		Positions:     []Position{TopLeft, TopRight, BottomLeft, BottomRight, Centre},
		Strip:         strip,
		PointerEvents: false,
		Opacity:       0.18,
	}
}
