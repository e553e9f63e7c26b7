package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/Davy-M/chat-app/internal/core"
)

func (ctl *SignalWSController) handleWatcher(sid core.SessionID, data []byte) {
	var p core.WatchEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad watcher payload")
		return
	}
	if p.Target == "" {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("watcher without target")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("target", string(p.Target)).Msg("watch request")
	ctl.Coord.Watcher(sid, p.Target)
}

// handleRelay covers offer, answer and candidate. The SDP/candidate bodies
// stay raw: the coordinator routes by address only and never understands the
// negotiation protocol.
func (ctl *SignalWSController) handleRelay(sid core.SessionID, data []byte) {
	var p core.SignalEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad relay payload")
		return
	}
	if p.Target == "" {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", p.Type).Msg("relay without target")
		return
	}
	log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("target", string(p.Target)).Str("type", p.Type).Msg("relay")
	ctl.Coord.Relay(sid, p)
}
