package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/benevolentblend/cards/internal/game"
)

const writeTimeout = 5 * time.Second

// wsConn adapts a websocket connection to the room's Conn interface. Send is
// only ever called from the owning room's event loop, so writes need no
// extra locking.
type wsConn struct {
	id   string
	name string
	conn *websocket.Conn
}

func (c *wsConn) UserID() string      { return c.id }
func (c *wsConn) DisplayName() string { return c.name }

func (c *wsConn) Send(msg game.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, msg)
}

// handleConnect upgrades the request and pumps frames into the room until
// the client goes away.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	id, name := s.identify(r)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.WithError(err).Debug("websocket accept failed")
		return
	}
	defer ws.CloseNow()

	room := s.room(roomID)
	conn := &wsConn{id: id, name: name, conn: ws}
	log := s.log.WithFields(logrus.Fields{"room": roomID, "user": id})
	log.Info("connection opened")

	room.Join(conn)
	defer func() {
		room.Leave(conn)
		log.Info("connection closed")
	}()

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		room.Receive(conn, data)
	}
}

// identify resolves the connection's user identity. A valid guest token wins;
// otherwise the client-supplied id is honored (it is what lets a browser
// reclaim its seat after a reload), falling back to a fresh id.
func (s *Server) identify(r *http.Request) (id, name string) {
	q := r.URL.Query()
	if token := q.Get("token"); token != "" && s.auth.Enabled() {
		if tid, tname, err := s.auth.VerifyGuestToken(token); err == nil {
			return tid, tname
		}
		s.log.Debug("ignoring invalid guest token")
	}
	id = q.Get("id")
	if id == "" {
		id = uuid.NewString()
	}
	name = q.Get("name")
	if name == "" {
		name = defaultDisplayName
	}
	return id, name
}
