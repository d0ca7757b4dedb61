package events

import (
	"encoding/json"
	"time"

	"modguard/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

func decodeVoteUpdate(payload []byte) (models.VoteUpdate, error) {
	var update models.VoteUpdate
	err := json.Unmarshal(payload, &update)
	return update, err
}

// WebSocketSubscriber streams vote updates to one dashboard connection.
type WebSocketSubscriber struct {
	ModeratorID string
	Conn        *websocket.Conn
	Dispatcher  *Dispatcher
	Send        chan models.VoteUpdate
}

func (c *WebSocketSubscriber) GetSendChannel() chan<- models.VoteUpdate { return c.Send }

// Run starts the write and read pumps.
func (c *WebSocketSubscriber) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the Send channel, which stops the write pump.
func (c *WebSocketSubscriber) Close() {
	close(c.Send)
}

func (c *WebSocketSubscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case update, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(update); err != nil {
				log.Error().Err(err).Str("moderator_id", c.ModeratorID).
					Msg("feed write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the feed is one-way. It exists to
// notice the peer going away and unregister the subscriber.
func (c *WebSocketSubscriber) readPump() {
	defer func() {
		c.Dispatcher.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("moderator_id", c.ModeratorID).Msg("feed read failed")
			}
			return
		}
	}
}
