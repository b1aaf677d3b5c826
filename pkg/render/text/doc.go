// Package text renders work graphs as a compact tree grouped by layer.
//
// Each layer gets a header followed by one line per item:
//
//	Layer 0
//	  ○ D [P2] Docs
//	Layer 1
//	  ○ R [P1] Release  needs: D
//
// The leading glyph encodes status (○ open, ◐ in progress, ● blocked,
// ✓ closed, ❄ deferred, ? anything else). "needs" lists the item's direct
// blockers that are still open. Set [Options.Color] to style glyphs with
// lipgloss for terminal output.
package text
