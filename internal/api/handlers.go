package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/tOgg1/missiv/internal/basket"
	"github.com/tOgg1/missiv/internal/db"
	"github.com/tOgg1/missiv/internal/missiv"
	"github.com/tOgg1/missiv/internal/models"
)

type createConversationRequest struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	IsEncrypted bool   `json:"is_encrypted"`
}

type replyRequest struct {
	Body        string `json:"body"`
	IsAck       bool   `json:"is_ack"`
	IsEncrypted bool   `json:"is_encrypted"`
}

// mivResponse carries the body as text and the display names of both
// parties.
type mivResponse struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	SeqNo          int           `json:"seq_no"`
	From           string        `json:"from"`
	FromDisplay    string        `json:"from_display,omitempty"`
	To             string        `json:"to"`
	ToDisplay      string        `json:"to_display,omitempty"`
	Subject        string        `json:"subject"`
	Body           string        `json:"body"`
	IsEncrypted    bool          `json:"is_encrypted"`
	IsAck          bool          `json:"is_ack"`
	IsForgotten    bool          `json:"is_forgotten"`
	Basket         models.Basket `json:"basket,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	SentAt         *time.Time    `json:"sent_at,omitempty"`
	ReceivedAt     *time.Time    `json:"received_at,omitempty"`
	ReadAt         *time.Time    `json:"read_at,omitempty"`
}

type conversationResponse struct {
	Conversation *models.Conversation `json:"conversation"`
	Mivs         []*mivResponse       `json:"mivs"`
}

type summaryResponse struct {
	Conversation *models.Conversation `json:"conversation"`
	LatestMiv    *mivResponse         `json:"latest_miv,omitempty"`
	UnreadCount  int                  `json:"unread_count"`
}

type listConversationsResponse struct {
	Conversations []*summaryResponse `json:"conversations"`
	Total         int                `json:"total"`
}

type basketResponse struct {
	Basket        models.Basket          `json:"basket"`
	Count         int                    `json:"count"`
	Mivs          []*mivResponse         `json:"mivs"`
	Conversations []*models.Conversation `json:"conversations,omitempty"`
}

type countsResponse struct {
	DeskID string                `json:"desk_id"`
	Counts map[models.Basket]int `json:"counts"`
}

func (a *API) present(m *models.Miv, b models.Basket) *mivResponse {
	if m == nil {
		return nil
	}
	resp := &mivResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SeqNo:          m.SeqNo,
		From:           m.From,
		To:             m.To,
		Subject:        m.Subject,
		Body:           string(m.Body),
		IsEncrypted:    m.IsEncrypted,
		IsAck:          m.IsAck,
		IsForgotten:    m.IsForgotten,
		Basket:         b,
		CreatedAt:      m.CreatedAt,
		SentAt:         m.SentAt,
		ReceivedAt:     m.ReceivedAt,
		ReadAt:         m.ReadAt,
	}
	if a.directory != nil {
		resp.FromDisplay, _ = a.directory.DisplayName(m.From)
		resp.ToDisplay, _ = a.directory.DisplayName(m.To)
	}
	return resp
}

func (a *API) presentDetail(detail *missiv.ConversationDetail) *conversationResponse {
	resp := &conversationResponse{Conversation: detail.Conversation, Mivs: make([]*mivResponse, 0, len(detail.Mivs))}
	for _, m := range detail.Mivs {
		resp.Mivs = append(resp.Mivs, a.present(m.Miv, m.Basket))
	}
	return resp
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid json: "+err.Error())
		return false
	}
	return true
}

func deskParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("desk_id"))
}

// createConversation handles POST /api/conversations.
func (a *API) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if !decode(w, r, &req) {
		return
	}
	detail, err := a.svc.CreateConversation(r.Context(), models.NewConversationInput{
		From:        deskParam(r),
		To:          strings.TrimSpace(req.To),
		Subject:     req.Subject,
		Body:        []byte(req.Body),
		IsEncrypted: req.IsEncrypted,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.presentDetail(detail))
}

// listConversations handles GET /api/conversations.
func (a *API) listConversations(w http.ResponseWriter, r *http.Request) {
	desk := deskParam(r)
	summaries, err := a.svc.ListConversations(r.Context(), desk)
	if err != nil {
		a.writeError(w, err)
		return
	}
	resp := listConversationsResponse{Conversations: make([]*summaryResponse, 0, len(summaries)), Total: len(summaries)}
	for _, s := range summaries {
		var b models.Basket
		if s.LatestMiv != nil {
			b, _ = basket.Resolve(s.Conversation, s.LatestMiv, desk)
		}
		resp.Conversations = append(resp.Conversations, &summaryResponse{
			Conversation: s.Conversation,
			LatestMiv:    a.present(s.LatestMiv, b),
			UnreadCount:  s.UnreadCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// getConversation handles GET /api/conversations/{id}. With desk_id the
// desk's unread mivs are marked read.
func (a *API) getConversation(w http.ResponseWriter, r *http.Request) {
	detail, err := a.svc.GetConversation(r.Context(), mux.Vars(r)["id"], deskParam(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.presentDetail(detail))
}

// reply handles POST /api/conversations/{id}/reply.
func (a *API) reply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := a.svc.Reply(r.Context(), models.ReplyInput{
		ConversationID: mux.Vars(r)["id"],
		From:           deskParam(r),
		Body:           []byte(req.Body),
		IsAck:          req.IsAck,
		IsEncrypted:    req.IsEncrypted,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.present(m, models.BasketSent))
}

// archive handles POST /api/conversations/{id}/archive.
func (a *API) archive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.svc.ArchiveConversation(r.Context(), id, deskParam(r)); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversation_id": id, "archived": true})
}

// markRead handles POST /api/mivs/{id}/read.
func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.svc.MarkMivRead(r.Context(), id, deskParam(r)); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"miv_id": id, "read": true})
}

// forget handles POST /api/mivs/{id}/forget.
func (a *API) forget(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.svc.ForgetMiv(r.Context(), id, deskParam(r)); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"miv_id": id, "forgotten": true})
}

// basketCounts handles GET /api/baskets.
func (a *API) basketCounts(w http.ResponseWriter, r *http.Request) {
	desk := deskParam(r)
	counts, err := a.svc.BasketCounts(r.Context(), desk)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countsResponse{DeskID: desk, Counts: counts})
}

// listBasket handles GET /api/baskets/{basket}. The basket name is case
// insensitive.
func (a *API) listBasket(w http.ResponseWriter, r *http.Request) {
	b, err := models.ParseBasket(mux.Vars(r)["basket"])
	if err != nil {
		a.writeError(w, err)
		return
	}
	desk := deskParam(r)
	view, err := a.svc.ListBasket(r.Context(), desk, b)
	if err != nil {
		a.writeError(w, err)
		return
	}

	resp := basketResponse{Basket: view.Basket, Count: view.Count, Mivs: make([]*mivResponse, 0, len(view.Mivs))}
	for _, m := range view.Mivs {
		resp.Mivs = append(resp.Mivs, a.present(m, view.Basket))
	}
	resp.Conversations = view.Conversations
	writeJSON(w, http.StatusOK, resp)
}

// listEvents handles GET /api/events, the desk's notification feed.
// unread_only=true restricts the page to notifications not yet marked read.
func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := db.FeedQuery{Cursor: query.Get("cursor"), Limit: defaultEventLimit}
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		q.Limit = min(n, maxEventLimit)
	}
	if raw := query.Get("unread_only"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "unread_only must be true or false")
			return
		}
		q.UnreadOnly = unread
	}

	feed, err := a.svc.Notifications(r.Context(), deskParam(r), q)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// markEventRead handles POST /api/events/{id}/read.
func (a *API) markEventRead(w http.ResponseWriter, r *http.Request) {
	event, err := a.svc.MarkNotificationRead(r.Context(), mux.Vars(r)["id"], deskParam(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}
