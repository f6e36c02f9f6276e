package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"chat-sync-service/internal/observability"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4 * 1024

	sendQueueSize = 64
)

// TopicAuthorizer decides whether a user may subscribe to a topic.
type TopicAuthorizer func(ctx context.Context, userID, topic string) error

// Command is a client to server frame.
type Command struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// Client is one websocket connection and its outbound queue.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	info      ConnInfo
	authorize TopicAuthorizer
}

func newClient(hub *Hub, conn *websocket.Conn, info ConnInfo, authorize TopicAuthorizer) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendQueueSize),
		info:      info,
		authorize: authorize,
	}
}

// subscribe checks authorization and joins the topic.
func (c *Client) subscribe(ctx context.Context, topic string) error {
	if c.authorize != nil {
		if err := c.authorize(ctx, c.info.UserID, topic); err != nil {
			return err
		}
	}
	c.hub.Subscribe(c, topic)
	return nil
}

// enqueue never blocks; a full queue drops the frame.
func (c *Client) enqueue(topic string, data []byte) {
	select {
	case c.send <- data:
	default:
		observability.IncFanoutDropped()
		log.Printf("websocket frame dropped topic=%s conn_id=%s", topic, c.info.ConnID)
	}
}

func (c *Client) reply(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump handles subscribe commands until the peer goes away.
func (c *Client) readPump(ctx context.Context) error {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.reply(notice{"error": "invalid command"})
			continue
		}
		switch cmd.Action {
		case "subscribe":
			if err := c.subscribe(ctx, cmd.Topic); err != nil {
				c.reply(notice{"error": err.Error(), "topic": cmd.Topic})
				continue
			}
			c.reply(notice{"subscribed": cmd.Topic})
		case "unsubscribe":
			c.hub.Unsubscribe(c, cmd.Topic)
			c.reply(notice{"unsubscribed": cmd.Topic})
		default:
			c.reply(notice{"error": "unknown action"})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("websocket write error conn_id=%s: %v", c.info.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type notice map[string]string
