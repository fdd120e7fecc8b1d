package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/code-animator/backend/internal/metrics"
	"github.com/code-animator/backend/internal/narration"
	"github.com/code-animator/backend/internal/playback"
	"github.com/code-animator/backend/internal/session"
)

// WebSocket message types for the player protocol
const (
	// Client -> Server messages
	MsgTypeControl = "control"
	MsgTypeVoices  = "voices"
	MsgTypePing    = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeState     = "state"
	MsgTypeFrame     = "frame"
	MsgTypeSpeak     = "speak"
	MsgTypeCancel    = "cancel"
	MsgTypeVoice     = "voice"
	MsgTypeClosed    = "closed"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const (
	wsWriteWait        = 10 * time.Second
	wsPongWait         = 60 * time.Second
	wsPingPeriod       = (wsPongWait * 9) / 10
	wsOutboundBuffer   = 32
	defaultWSReadLimit = 64 * 1024
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WebSocket error response
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler streams player state, frames and speech to browsers and
// accepts control messages from them
type WebSocketHandler struct {
	players   *session.Manager
	metrics   *metrics.PlayerMetrics
	upgrader  websocket.Upgrader
	readLimit int64
}

// NewWebSocketHandler creates a new player websocket handler. readLimit <= 0
// selects 64KB.
func NewWebSocketHandler(players *session.Manager, pm *metrics.PlayerMetrics, readLimit int64) *WebSocketHandler {
	if readLimit <= 0 {
		readLimit = defaultWSReadLimit
	}
	return &WebSocketHandler{
		players: players,
		metrics: pm,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		readLimit: readLimit,
	}
}

// wsClient is one connected viewer of a player.
type wsClient struct {
	ws     *websocket.Conn
	player *session.Player

	// notify coalesces state changes; the writer always sends the latest state.
	notify chan struct{}
	out    chan WSMessage
	done   chan struct{}

	// Speech is never dropped. A cancel supersedes any speak still pending.
	speechMu      sync.Mutex
	cancelPending bool
	speakPending  *narration.SpeechCommand
	speech        chan struct{}
}

func newWSClient(ws *websocket.Conn, p *session.Player) *wsClient {
	return &wsClient{
		ws:     ws,
		player: p,
		notify: make(chan struct{}, 1),
		out:    make(chan WSMessage, wsOutboundBuffer),
		done:   make(chan struct{}),
		speech: make(chan struct{}, 1),
	}
}

// HandleWebSocket upgrades the connection and runs the player protocol until
// either side goes away
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	id := c.Param("id")
	p, ok := wsh.players.Get(id)
	if !ok {
		return NewNotFoundError("player", id)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	client := newWSClient(ws, p)

	unsubscribe := p.Controller.Subscribe(func(playback.Event) { client.signal() })
	unlisten := p.Relay.Listen(client.relay)
	defer unsubscribe()
	defer unlisten()

	fmt.Printf("[WebSocket %s] Client connected\n", shortID(p.ID))

	if err := client.write(newMessage(MsgTypeConnected, p.ID, nil)); err != nil {
		return nil
	}
	client.signal()

	go wsh.writeLoop(client)
	wsh.readLoop(client)
	close(client.done)

	fmt.Printf("[WebSocket %s] Client disconnected\n", shortID(p.ID))
	return nil
}

// readLoop handles client messages until the connection fails.
func (wsh *WebSocketHandler) readLoop(client *wsClient) {
	ws := client.ws
	ws.SetReadLimit(wsh.readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				fmt.Printf("[WebSocket %s] Connection error: %v\n", shortID(client.player.ID), err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
		wsh.players.Touch(client.player.ID)

		switch msg.Type {
		case MsgTypePing:
			client.enqueue(newMessage(MsgTypePong, msg.ID, nil))
		case MsgTypeControl:
			wsh.handleControl(client, msg)
		case MsgTypeVoices:
			wsh.handleVoices(client, msg)
		default:
			client.sendError("Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}
}

func (wsh *WebSocketHandler) handleControl(client *wsClient, msg WSMessage) {
	var req controlRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		client.sendError("Invalid control payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	if err := req.validate(); err != nil {
		client.sendError(err.Error(), "VALIDATION_ERROR")
		return
	}
	if err := client.player.Control(session.Control(req.Action), req.stepOrZero()); err != nil {
		code := "CONTROL_FAILED"
		if errors.Is(err, session.ErrUnknownControl) {
			code = "UNKNOWN_ACTION"
		}
		client.sendError(err.Error(), code)
	}
}

func (wsh *WebSocketHandler) handleVoices(client *wsClient, msg WSMessage) {
	var req voicesRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		client.sendError("Invalid voices payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}
	client.player.Narrator.SetVoices(req.Voices)
	voice, chosen := client.player.Narrator.Voice()
	client.enqueue(newMessage(MsgTypeVoice, msg.ID, voicesResponse{Chosen: chosen, Voice: voice}))
}

// writeLoop is the only goroutine writing to the connection.
func (wsh *WebSocketHandler) writeLoop(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	defer client.ws.Close()

	for {
		select {
		case <-client.done:
			return

		case msg := <-client.out:
			if err := client.write(msg); err != nil {
				return
			}

		case <-client.player.Done():
			_ = client.write(newMessage(MsgTypeClosed, client.player.ID, nil))
			return

		case <-client.speech:
			for _, msg := range client.takeSpeech() {
				if err := client.write(msg); err != nil {
					return
				}
			}

		case <-client.notify:
			frame := client.player.Frame()
			if err := client.write(newMessage(MsgTypeState, "", frame.State)); err != nil {
				return
			}
			if err := client.write(newMessage(MsgTypeFrame, "", frame)); err != nil {
				return
			}
			if wsh.metrics != nil {
				wsh.metrics.RecordFrame(context.Background(), "ws")
			}

		case <-ticker.C:
			_ = client.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// signal schedules a state push. It never blocks and is safe to call from a
// controller observer.
func (c *wsClient) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// relay forwards narration to the browser's speech synthesis. It runs under
// the controller lock, so it only records the command and wakes the writer.
func (c *wsClient) relay(cmd narration.SpeechCommand) {
	c.speechMu.Lock()
	if cmd.Type == narration.SpeechCancel {
		c.cancelPending = true
		c.speakPending = nil
	} else {
		c.speakPending = &cmd
	}
	c.speechMu.Unlock()

	select {
	case c.speech <- struct{}{}:
	default:
	}
}

// takeSpeech drains the pending speech: a cancel first, then the latest speak.
func (c *wsClient) takeSpeech() []WSMessage {
	c.speechMu.Lock()
	defer c.speechMu.Unlock()

	var msgs []WSMessage
	if c.cancelPending {
		msgs = append(msgs, newMessage(MsgTypeCancel, "", narration.SpeechCommand{Type: narration.SpeechCancel}))
	}
	if c.speakPending != nil {
		msgs = append(msgs, newMessage(MsgTypeSpeak, "", *c.speakPending))
	}
	c.cancelPending = false
	c.speakPending = nil
	return msgs
}

// enqueue queues a reply for the writer, dropping it when the client is too slow.
func (c *wsClient) enqueue(msg WSMessage) {
	select {
	case c.out <- msg:
	case <-c.done:
	default:
		fmt.Printf("[WebSocket %s] Dropping %s message for slow client\n", shortID(c.player.ID), msg.Type)
	}
}

func (c *wsClient) sendError(message, code string) {
	c.enqueue(newMessage(MsgTypeError, "", WSErrorResponse{Message: message, Code: code}))
}

func (c *wsClient) write(msg WSMessage) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := c.ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket %s] Failed to send message: %v\n", shortID(c.player.ID), err)
		return err
	}
	return nil
}

func newMessage(msgType, id string, payload interface{}) WSMessage {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload != nil {
		msg.Payload = mustJSON(payload)
	}
	return msg
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
