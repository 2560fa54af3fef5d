package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/duskvale/server/engine"
	"github.com/duskvale/server/internal/bot"
	"github.com/duskvale/server/internal/game"
	"github.com/duskvale/server/internal/models"
	"github.com/duskvale/server/internal/registry"
)

// Server exposes the HTTP surface: session creation plus the websocket
// join endpoint.
type Server struct {
	hub        *Hub
	reg        *registry.Registry
	defaultCfg game.Config
	fastCfg    game.Config
	log        *logrus.Entry
}

// NewServer creates the HTTP/websocket front end.
func NewServer(hub *Hub, reg *registry.Registry) *Server {
	return &Server{
		hub:        hub,
		reg:        reg,
		defaultCfg: game.DefaultConfig(),
		fastCfg:    game.FastConfig(),
		log:        logrus.WithField("component", "http"),
	}
}

// Routes registers the handlers on a mux.
func (srv *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", srv.handleCreate)
	mux.HandleFunc("GET /ws/join", srv.handleJoin)
}

type createRequest struct {
	Fast bool `json:"fast"`
	Bots int  `json:"bots"`
}

type createResponse struct {
	Code string `json:"code"`
}

func (srv *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req) // empty body means defaults
	}

	cfg := srv.defaultCfg
	if req.Fast {
		cfg = srv.fastCfg
	}
	s, err := srv.reg.Create(cfg)
	if err != nil {
		if errors.Is(err, registry.ErrFull) {
			http.Error(w, "session limit reached", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "create failed", http.StatusInternalServerError)
		return
	}
	srv.hub.Bind(s)

	for i := 0; i < req.Bots && i < 16; i++ {
		if err := s.AddPlayer(uuid.New(), botName(i), bot.New()); err != nil {
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(createResponse{Code: s.Code})
}

func botName(i int) string {
	names := []string{"Aldo", "Brin", "Cass", "Dara", "Eryn", "Falk", "Goss", "Hale",
		"Iver", "Jory", "Kest", "Lund", "Mara", "Nils", "Orin", "Pell"}
	return names[i%len(names)] + " (bot)"
}

// handleJoin upgrades to websocket and attaches the caller to a
// session. Reconnects pass their previous participant id.
func (srv *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	name := r.URL.Query().Get("name")
	s, err := srv.reg.Get(code)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if name == "" {
		name = "anonymous"
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		srv.log.WithError(err).Debug("websocket accept failed")
		return
	}

	pid := uuid.Nil
	if raw := r.URL.Query().Get("id"); raw != "" {
		pid, _ = uuid.Parse(raw)
	}

	var p *models.Player
	if pid != uuid.Nil {
		if existing := srv.hub.player(code, pid); existing != nil {
			existing.Attach(conn)
			p = existing
			srv.sendSnapshot(s, p)
		}
	}
	if p == nil {
		pid = uuid.New()
		p = models.NewPlayer(pid, name, code, conn)
		if err := s.AddPlayer(pid, name, nil); err != nil {
			conn.Close(websocket.StatusPolicyViolation, "session already in progress")
			return
		}
		srv.hub.attach(code, p)
		p.SendJSON(map[string]interface{}{"type": "joined", "id": pid, "session": code})
	}

	srv.readLoop(r.Context(), s, p, conn)
}

// sendSnapshot pushes the viewer-scoped state, used on reconnect.
func (srv *Server) sendSnapshot(s *game.Session, p *models.Player) {
	snap, err := s.Snapshot(p.ID)
	if err != nil {
		return
	}
	p.SendJSON(map[string]interface{}{"type": "snapshot", "state": snap})
}

type clientMessage struct {
	Type   string    `json:"type"`
	Action string    `json:"action,omitempty"`
	Target uuid.UUID `json:"target,omitempty"`
	Ready  bool      `json:"ready,omitempty"`
}

// errUnknownAction rejects an action name outside the wire vocabulary;
// it is a malformed message, not a rules violation.
var errUnknownAction = errors.New("unknown action kind")

var actionKinds = map[string]engine.NightActionKind{
	engine.ActionKill.String():    engine.ActionKill,
	engine.ActionProtect.String(): engine.ActionProtect,
	engine.ActionInspect.String(): engine.ActionInspect,
	engine.ActionHeal.String():    engine.ActionHeal,
	engine.ActionPoison.String():  engine.ActionPoison,
	engine.ActionPair.String():    engine.ActionPair,
	engine.ActionPass.String():    engine.ActionPass,
}

// readLoop drives one connection until it drops. Submission errors go
// back to the sender only; they never mutate the session.
func (srv *Server) readLoop(ctx context.Context, s *game.Session, p *models.Player, conn *websocket.Conn) {
	defer srv.disconnect(s, p)

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			srv.reject(p, errors.New("malformed message"))
			continue
		}
		s.NoteMessage(p.ID)
		srv.dispatch(s, p, msg)
	}
}

// disconnect handles a dropped connection. Lobby departures free both
// the roster seat and the room entry; mid-game drops keep the
// participant so they can reconnect by id.
func (srv *Server) disconnect(s *game.Session, p *models.Player) {
	p.Detach()
	if s.Phase() == game.PhaseLobby {
		s.RemovePlayer(p.ID)
		srv.hub.detach(s.Code, p.ID)
	}
}

func (srv *Server) dispatch(s *game.Session, p *models.Player, msg clientMessage) {
	var err error
	switch msg.Type {
	case "ready":
		err = s.SetReady(p.ID, msg.Ready)
	case "start":
		if err = s.Start(p.ID); err == nil {
			srv.reg.NotifyStarted(s)
		}
	case "stop":
		err = s.ForceStop(p.ID)
	case "action":
		kind, ok := actionKinds[msg.Action]
		if !ok {
			err = errUnknownAction
			break
		}
		err = s.SubmitNightAction(p.ID, kind, msg.Target)
	case "vote":
		err = s.SubmitVote(p.ID, msg.Target)
	case "revenge":
		err = s.SubmitRevengeShot(p.ID, msg.Target)
	case "snapshot":
		srv.sendSnapshot(s, p)
	default:
		err = errors.New("unknown message type")
	}
	if err != nil {
		srv.reject(p, err)
	}
}

func (srv *Server) reject(p *models.Player, err error) {
	p.SendJSON(game.Event{Type: game.EventError, Action: err.Error()})
}
