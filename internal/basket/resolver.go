// Package basket derives per-desk basket membership for mivs.
//
// Nothing here touches storage. A miv's basket is computed on every read
// from its read_at, is_ack and is_forgotten fields, the owning
// conversation's archived flag, and the viewing desk.
package basket

import "github.com/tOgg1/missiv/internal/models"

// Resolve returns the basket m belongs to from viewer's perspective.
//
// Rules, first match wins:
//  1. conversation archived: ARCHIVED
//  2. viewer is the recipient: IN while unread, PENDING once read
//  3. viewer is the sender: no basket for an ACK, otherwise SENT
//
// A viewer that is neither party gets ErrNotParticipant, archived or not.
// A nil conversation is treated as open.
func Resolve(conv *models.Conversation, m *models.Miv, viewer string) (models.Basket, error) {
	if m == nil || !m.Involves(viewer) {
		return models.BasketNone, models.ErrNotParticipant
	}

	if conv != nil && conv.IsArchived {
		return models.BasketArchived, nil
	}

	if viewer == m.To {
		if m.ReadAt == nil {
			return models.BasketIn, nil
		}
		return models.BasketPending, nil
	}

	if m.IsAck {
		return models.BasketNone, nil
	}
	return models.BasketSent, nil
}

// Visible reports whether m is listed in basket b for viewer. On top of
// Resolve, the SENT basket drops forgotten mivs.
func Visible(conv *models.Conversation, m *models.Miv, viewer string, b models.Basket) bool {
	got, err := Resolve(conv, m, viewer)
	if err != nil || got == models.BasketNone || got != b {
		return false
	}
	if b == models.BasketSent && (m.IsForgotten || m.IsAck) {
		return false
	}
	return true
}
