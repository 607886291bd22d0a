package basket

import (
	"sort"

	"github.com/tOgg1/missiv/internal/models"
)

// Snapshot is everything one desk can see, read in a single transaction.
type Snapshot struct {
	Conversations map[string]*models.Conversation
	Mivs          []*models.Miv
}

// View is one basket listing. Count is always len(Mivs).
type View struct {
	Basket models.Basket `json:"basket"`
	Count  int           `json:"count"`
	Mivs   []*models.Miv `json:"mivs"`

	// Conversations is set for ARCHIVED, in listing order.
	Conversations []*models.Conversation `json:"conversations,omitempty"`
}

// Query lists basket b for desk from snapshot.
//
// IN, PENDING and SENT are ordered newest first. ARCHIVED groups mivs by
// conversation, most recently updated conversation first, and keeps
// seq_no order inside each conversation.
func Query(snapshot *Snapshot, desk string, b models.Basket) (*View, error) {
	if !b.Valid() {
		return nil, models.ErrInvalidBasket
	}
	if snapshot == nil {
		snapshot = &Snapshot{}
	}

	view := &View{Basket: b, Mivs: []*models.Miv{}}
	if b == models.BasketArchived {
		queryArchived(snapshot, desk, view)
	} else {
		queryOpen(snapshot, desk, b, view)
	}
	view.Count = len(view.Mivs)
	return view, nil
}

// Counts returns the size of every basket for desk, using the same
// filtering as Query.
func Counts(snapshot *Snapshot, desk string) map[models.Basket]int {
	counts := make(map[models.Basket]int, len(models.Baskets))
	for _, b := range models.Baskets {
		view, err := Query(snapshot, desk, b)
		if err != nil {
			continue
		}
		counts[b] = view.Count
	}
	return counts
}

func queryOpen(snapshot *Snapshot, desk string, b models.Basket, view *View) {
	for _, m := range snapshot.Mivs {
		conv := snapshot.Conversations[m.ConversationID]
		if conv != nil && conv.IsArchived {
			continue
		}
		if Visible(conv, m, desk, b) {
			view.Mivs = append(view.Mivs, m)
		}
	}

	sort.SliceStable(view.Mivs, func(i, j int) bool {
		a, c := view.Mivs[i], view.Mivs[j]
		if !a.CreatedAt.Equal(c.CreatedAt) {
			return a.CreatedAt.After(c.CreatedAt)
		}
		if a.SeqNo != c.SeqNo {
			return a.SeqNo > c.SeqNo
		}
		return a.ID < c.ID
	})
}

func queryArchived(snapshot *Snapshot, desk string, view *View) {
	byConversation := make(map[string][]*models.Miv)
	for _, m := range snapshot.Mivs {
		conv := snapshot.Conversations[m.ConversationID]
		if conv == nil || !conv.IsArchived {
			continue
		}
		if !Visible(conv, m, desk, models.BasketArchived) {
			continue
		}
		byConversation[conv.ID] = append(byConversation[conv.ID], m)
	}

	conversations := make([]*models.Conversation, 0, len(byConversation))
	for id := range byConversation {
		conversations = append(conversations, snapshot.Conversations[id])
	}
	sort.Slice(conversations, func(i, j int) bool {
		a, c := conversations[i], conversations[j]
		if !a.UpdatedAt.Equal(c.UpdatedAt) {
			return a.UpdatedAt.After(c.UpdatedAt)
		}
		return a.ID < c.ID
	})

	for _, conv := range conversations {
		mivs := byConversation[conv.ID]
		sort.Slice(mivs, func(i, j int) bool { return mivs[i].SeqNo < mivs[j].SeqNo })
		view.Mivs = append(view.Mivs, mivs...)
	}
	view.Conversations = conversations
}
