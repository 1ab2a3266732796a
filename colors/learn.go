package colors

import (
	"pianolight/frame"
	"pianolight/notestate"
)

// ClassColors holds a key class's colors for current vs upcoming notes.
type ClassColors struct {
	Current  RGB `json:"current"`
	Upcoming RGB `json:"upcoming"`
}

// HandColors splits a hand's colors by key class.
type HandColors struct {
	WhiteKeys ClassColors `json:"white_keys"`
	BlackKeys ClassColors `json:"black_keys"`
}

// LearnColors is the full learn-mode lookup table: hand × key class ×
// upcoming flag.
type LearnColors struct {
	LeftHand  HandColors `json:"left_hand"`
	RightHand HandColors `json:"right_hand"`
}

// DefaultLearnColors: green family for the left hand, blue for the right,
// dimmer variants for upcoming notes.
func DefaultLearnColors() LearnColors {
	return LearnColors{
		LeftHand: HandColors{
			WhiteKeys: ClassColors{Current: RGB{0, 255, 0}, Upcoming: RGB{0, 128, 0}},
			BlackKeys: ClassColors{Current: RGB{0, 200, 0}, Upcoming: RGB{0, 100, 0}},
		},
		RightHand: HandColors{
			WhiteKeys: ClassColors{Current: RGB{0, 0, 255}, Upcoming: RGB{0, 0, 128}},
			BlackKeys: ClassColors{Current: RGB{0, 0, 200}, Upcoming: RGB{0, 0, 100}},
		},
	}
}

// Lookup derives the color for a note number: hand from the channel policy,
// key class from the pitch class, dim set for upcoming notes.
func (lc LearnColors) Lookup(hand notestate.Hand, note uint8, upcoming bool) RGB {
	hc := lc.LeftHand
	if hand == notestate.HandRight {
		hc = lc.RightHand
	}
	cc := hc.WhiteKeys
	if frame.IsBlack(int(note)) {
		cc = hc.BlackKeys
	}
	if upcoming {
		return cc.Upcoming
	}
	return cc.Current
}
