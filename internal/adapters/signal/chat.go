package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Davy-M/chat-app/internal/core"
)

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p core.JoinEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "bad_payload",
		})
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("username", p.Username).Msg("join")
	if err := ctl.Coord.Join(sid, p.Username); err != nil {
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "invalid_name",
		})
	}
}

func (ctl *SignalWSController) handleMessage(sid core.SessionID, data []byte) {
	var p core.ChatEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad message payload")
		return
	}
	if !ctl.Limiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("chat rate limit, dropping")
		return
	}
	ctl.Coord.Message(p)
}

func (ctl *SignalWSController) handleTyping(sid core.SessionID, data []byte) {
	var p core.TypingEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad typing payload")
		return
	}
	ctl.Coord.Typing(sid, p.Username)
}

func (ctl *SignalWSController) handleStopTyping(sid core.SessionID, data []byte) {
	var p core.TypingEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad stopTyping payload")
		return
	}
	ctl.Coord.StopTyping(sid, p.Username)
}

func (ctl *SignalWSController) handleStatus(sid core.SessionID, data []byte) {
	var p core.StatusEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad status payload")
		return
	}
	ctl.Coord.UpdateStatus(sid, p)
}
