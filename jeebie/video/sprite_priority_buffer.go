package video

// SpritePriorityBuffer resolves sprite-to-pixel ownership for DMG (non-CGB)
// drawing priority, see https://gbdev.io/pandocs/OAM.html#drawing-priority:
//
//   - a sprite with a lower X coordinate wins over one with a higher X
//   - when X coordinates are equal, the lower OAM index wins
//
// Rather than sorting overlapping sprites, each pixel records who currently
// owns it (OAM index + that sprite's X, for later comparisons) as sprites
// are scanned in OAM order; a later sprite only takes a pixel away from an
// earlier one by beating it on that same rule. This avoids a sort at the
// cost of a linear scan per sprite.
type SpritePriorityBuffer struct {
	owners [FramebufferWidth]pixelClaim
}

type pixelClaim struct {
	spriteIndex int // OAM index of the current owner, -1 if unclaimed
	spriteX     int // that owner's X, used to arbitrate later claims
}

// Clear resets every pixel to unclaimed, ready for a new scanline.
func (s *SpritePriorityBuffer) Clear() {
	for i := range s.owners {
		s.owners[i] = pixelClaim{spriteIndex: -1, spriteX: 0xFF}
	}
}

// TryClaimPixel attempts to claim pixelX for spriteIndex (at spriteX).
// Returns true if the sprite now owns the pixel.
func (s *SpritePriorityBuffer) TryClaimPixel(pixelX, spriteIndex, spriteX int) bool {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return false
	}

	current := s.owners[pixelX]
	wins := current.spriteIndex == -1 ||
		spriteX < current.spriteX ||
		(spriteX == current.spriteX && spriteIndex < current.spriteIndex)

	if wins {
		s.owners[pixelX] = pixelClaim{spriteIndex: spriteIndex, spriteX: spriteX}
	}
	return wins
}

// GetOwner returns the OAM index owning pixelX, or -1 if unclaimed.
func (s *SpritePriorityBuffer) GetOwner(pixelX int) int {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return -1
	}
	return s.owners[pixelX].spriteIndex
}
