package websocket

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kalastudio/concierge/utils/log"
)

// Handler serves the "/ws" endpoint: upgrade, build the session, run the
// pumps, relay action events until the connection dies. One connection per
// session: a second tab with the same token is turned away.
func (s *Server) Handler(c echo.Context) error {
	sessionID := c.Get("session_id").(string)

	if s.hub.IsSessionConnected(sessionID) {
		return echo.NewHTTPError(http.StatusConflict, "Session already connected")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sess := s.newSession(sessionID)
	client := NewClient(conn, sessionID, sess.handleFrame)
	sess.client = client

	s.hub.Register(client)
	client.Run()
	go sess.forwardActions(client.Context())

	log.WithCtx(client.Context()).Debug("companion session connected",
		zap.Int("clients", s.hub.ClientCount()))

	defer s.hub.Unregister(client)

	// Wait for the client context to be done (connection closed)
	<-client.Context().Done()

	return nil
}
