package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/youowe/internal/action"
	"github.com/mmynk/youowe/internal/auth"
	"github.com/mmynk/youowe/internal/middleware"
	"github.com/mmynk/youowe/internal/models"
	"github.com/mmynk/youowe/internal/realtime"
	"github.com/mmynk/youowe/internal/service"
	"github.com/mmynk/youowe/internal/storage"
)

type handler struct {
	actions *action.Actions
	hub     *realtime.Hub
	store   Pinger
	cookie  string
	secure  bool
}

type closeGroupRequest struct {
	IsClosed bool `json:"is_closed"`
}

type memberAndGroupRequest struct {
	Member service.NewMember `json:"member"`
	Group  service.NewGroup  `json:"group"`
}

type memberAndGroupResponse struct {
	Member *models.Member    `json:"member"`
	Group  *models.GroupView `json:"group"`
}

type updateOrderRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req service.NewGroup
	if !decodeBody(w, r, &req) {
		return
	}
	writeResult(w, h.actions.CreateGroup(r.Context(), req))
}

func (h *handler) fetchGroup(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.FetchGroup(r.Context(), chi.URLParam(r, "id")))
}

func (h *handler) closeGroup(w http.ResponseWriter, r *http.Request) {
	var req closeGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx := r.Context()
	writeResult(w, h.actions.CloseGroup(ctx, chi.URLParam(r, "id"), middleware.GetAuthUserID(ctx), req.IsClosed))
}

func (h *handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeStatus(w, h.actions.DeleteGroup(ctx, chi.URLParam(r, "id"), middleware.GetAuthUserID(ctx)))
}

func (h *handler) groupBalances(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.GroupBalances(r.Context(), chi.URLParam(r, "id")))
}

// subscribeOrders upgrades to a websocket that receives the group's order events.
func (h *handler) subscribeOrders(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	if res := h.actions.FetchGroup(r.Context(), groupID); !res.Success {
		writeResult(w, res)
		return
	}

	if err := h.hub.ServeWS(w, r, realtime.OrdersChannel(groupID)); err != nil {
		slog.Debug("realtime subscription failed", "group_id", groupID, "error", err)
	}
}

func (h *handler) createMember(w http.ResponseWriter, r *http.Request) {
	var req service.NewMember
	if !decodeBody(w, r, &req) {
		return
	}

	res := h.actions.CreateMember(r.Context(), req)
	if !res.Success {
		writeResult(w, res)
		return
	}
	h.setSessionCookie(w, res.Payload.Session)
	writeJSON(w, res.HTTPCode, res.Payload.Member)
}

func (h *handler) createMemberAndGroup(w http.ResponseWriter, r *http.Request) {
	var req memberAndGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res := h.actions.CreateMemberAndGroup(r.Context(), req.Member, req.Group)
	if !res.Success {
		writeResult(w, res)
		return
	}
	h.setSessionCookie(w, res.Payload.Session)
	writeJSON(w, res.HTTPCode, memberAndGroupResponse{Member: res.Payload.Member, Group: res.Payload.Group})
}

func (h *handler) fetchMember(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.actions.FetchMember(r.Context(), chi.URLParam(r, "id")))
}

func (h *handler) fetchMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeResult(w, h.actions.FetchMe(ctx, middleware.GetAuthUserID(ctx)))
}

func (h *handler) deleteMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeStatus(w, h.actions.DeleteMember(ctx, chi.URLParam(r, "id"), middleware.GetAuthUserID(ctx)))
}

func (h *handler) joinGroup(w http.ResponseWriter, r *http.Request) {
	var req service.GroupJoin
	if !decodeBody(w, r, &req) {
		return
	}
	writeStatus(w, h.actions.JoinGroup(r.Context(), req))
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req service.NewOrder
	if !decodeBody(w, r, &req) {
		return
	}
	writeResult(w, h.actions.CreateOrder(r.Context(), req))
}

func (h *handler) fetchOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	writeResult(w, h.actions.FetchOrders(r.Context(), query.Get("group_id"), query.Get("creator_member_id")))
}

func (h *handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	update := storage.OrderUpdate{Title: req.Title, Description: req.Description, Price: req.Price}
	writeResult(w, h.actions.UpdateOrder(ctx, chi.URLParam(r, "id"), middleware.GetAuthUserID(ctx), update))
}

func (h *handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeStatus(w, h.actions.DeleteOrder(ctx, chi.URLParam(r, "id"), middleware.GetAuthUserID(ctx)))
}

// setSessionCookie hands the new identity's access token to the browser.
func (h *handler) setSessionCookie(w http.ResponseWriter, session *auth.Session) {
	if h.cookie == "" || session == nil || session.AccessToken == "" {
		return
	}

	cookie := &http.Cookie{
		Name:     h.cookie,
		Value:    session.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl := time.Until(session.ExpiresAt); ttl > 0 {
		cookie.Expires = session.ExpiresAt
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
}
