package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/talkabout/internal/adapters/signal"
	"github.com/dkeye/talkabout/internal/app/orch"
	"github.com/dkeye/talkabout/internal/app/waitroom"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const participantKey = "participant"

type handlers struct {
	ctx  context.Context
	orch *orch.Orchestrator
	ctrl *signal.SignalWSController
}

type IdentityRequest struct {
	Participant string `json:"participant"`
}

type IdentityResponse struct {
	Participant domain.ParticipantID `json:"participant,omitempty"`
	ClientToken string               `json:"client_token"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// participantOf prefers the query parameter over the cookie session; neither
// means an anonymous session.
func participantOf(c *gin.Context) (domain.ParticipantID, error) {
	if raw, ok := c.GetQuery(participantKey); ok {
		return domain.NewParticipantID(raw)
	}
	if v, ok := sessions.Default(c).Get(participantKey).(string); ok {
		return domain.ParticipantID(v), nil
	}
	return "", nil
}

func (h *handlers) waitroom(c *gin.Context) {
	slot := domain.SlotID(c.Param("slot"))
	participant, err := participantOf(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orch.CheckSlot(c.Request.Context(), slot); err != nil {
		status, code := slotErrorStatus(err)
		log.Info().Err(err).Str("module", "adapters.http").Str("slot", string(slot)).Int("status", status).Msg("waitroom rejected")
		c.JSON(status, gin.H{"error": code})
		return
	}

	log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Str("slot", string(slot)).Msg("ws waitroom endpoint hit")
	h.ctrl.HandleSignal(h.ctx, c, slot, participant)
}

func slotErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, waitroom.ErrRoomClosed):
		return http.StatusGone, "room_closed"
	case errors.Is(err, domain.ErrSlotNotFound):
		return http.StatusNotFound, "slot_not_found"
	default:
		return http.StatusServiceUnavailable, "lookup_failed"
	}
}

func (h *handlers) getIdentity(c *gin.Context) {
	resp := IdentityResponse{ClientToken: c.GetString("client_token")}
	if v, ok := sessions.Default(c).Get(participantKey).(string); ok {
		resp.Participant = domain.ParticipantID(v)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) setIdentity(c *gin.Context) {
	var req IdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid participant"})
		return
	}
	p, err := domain.NewParticipantID(req.Participant)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := sessions.Default(c)
	sess.Set(participantKey, string(p))
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save identity")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_save_failed"})
		return
	}
	c.JSON(http.StatusOK, IdentityResponse{Participant: p, ClientToken: c.GetString("client_token")})
}

func (h *handlers) clearIdentity(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Delete(participantKey)
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("clear identity")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_save_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Rooms.List()})
}

func (h *handlers) getRoom(c *gin.Context) {
	slot := domain.SlotID(c.Param("slot"))
	if room, ok := h.orch.Rooms.Lookup(slot); ok {
		c.JSON(http.StatusOK, room.Info())
		return
	}
	if h.orch.Rooms.Launched(slot) {
		c.JSON(http.StatusGone, waitroom.RoomInfo{Slot: slot, State: waitroom.StateClosed})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
}

func (h *handlers) evictRoom(c *gin.Context) {
	slot := domain.SlotID(c.Param("slot"))
	if !h.orch.EvictRoom(slot) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("slot", string(slot)).Msg("room evicted")
	c.Status(http.StatusNoContent)
}

func (h *handlers) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rooms":    h.orch.Rooms.Stats(),
		"sessions": h.orch.Registry.Count(),
	})
}
