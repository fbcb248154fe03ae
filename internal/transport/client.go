package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-client-app/internal/logger"
	"chat-client-app/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	minBackoff     = time.Second
	maxBackoff     = 30 * time.Second
	requestTimeout = 30 * time.Second
)

// Client talks to the chat server: events arrive over a websocket, operations
// go over HTTP. It reconnects the websocket automatically with exponential
// backoff and keeps subscriptions attached across reconnects.
type Client struct {
	base *url.URL
	http *http.Client

	mu       sync.Mutex
	handlers map[string][]Handler
	conn     *websocket.Conn
	cancel   context.CancelFunc
}

// NewClient creates a client for the server at baseURL (http or https).
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	return &Client{
		base:     u,
		http:     &http.Client{Timeout: requestTimeout},
		handlers: make(map[string][]Handler),
	}, nil
}

// Subscribe registers a handler for an event type.
func (c *Client) Subscribe(event string, h Handler) {
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], h)
	c.mu.Unlock()
}

// Connect dials the websocket endpoint and starts the read loop. The
// connection stays up until Close; on read errors it redials with backoff.
func (c *Client) Connect(ctx context.Context, username string) error {
	wsURL := c.wsURL(username)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(runCtx, conn, username)
	return nil
}

// Close tears down the websocket connection and stops the read loop.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	c.cancel = nil
	c.conn = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) wsURL(username string) string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = joinPath(u.Path, "ws/chat")
	u.RawQuery = url.Values{"username": {username}}.Encode()
	return u.String()
}

// run keeps one websocket session alive at a time, redialing when the read
// loop exits for any reason other than shutdown.
func (c *Client) run(ctx context.Context, conn *websocket.Conn, username string) {
	for {
		c.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		var err error
		conn, err = c.redial(ctx, username)
		if err != nil {
			return
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		logger.Info("websocket reconnected", "user", username)
	}
}

func (c *Client) redial(ctx context.Context, username string) (*websocket.Conn, error) {
	backoff := minBackoff
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL(username), nil)
		if err == nil {
			return conn, nil
		}
		logger.Warn("websocket redial failed", "error", err, "backoff", backoff)
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// readLoop pumps events from the websocket connection to the subscribed
// handlers, one event at a time.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go c.pingLoop(ctx, conn, stop)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			logger.Warn("invalid event payload", "error", err)
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) dispatch(ev Event) {
	c.mu.Lock()
	hs := append([]Handler(nil), c.handlers[ev.Type]...)
	c.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

// --- request/response operations ---

// Contacts fetches the known contact list.
func (c *Client) Contacts(ctx context.Context) ([]models.Contact, error) {
	body, err := c.get(ctx, "api/chat/users", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch contacts: %w", err)
	}
	var env struct {
		Data struct {
			List []models.Contact `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	return env.Data.List, nil
}

// Messages fetches one reverse-chronological history page for the pair of
// users. The returned slice is ordered oldest-of-the-page first.
func (c *Client) Messages(ctx context.Context, user1, user2 string, page, pageSize int) ([]models.ChatMessage, error) {
	path := fmt.Sprintf("api/chat/messages/%s/%s", user1, user2)
	q := url.Values{
		"page":     {fmt.Sprint(page)},
		"pageSize": {fmt.Sprint(pageSize)},
	}
	body, err := c.get(ctx, path, q)
	if err != nil {
		return nil, fmt.Errorf("fetch messages page %d: %w", page, err)
	}
	var env struct {
		List []models.ChatMessage `json:"list"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return env.List, nil
}

// Send posts the draft text and all staged files as one multipart request.
func (c *Client) Send(ctx context.Context, sender, receiver, text string, files []models.StagedFile) (models.ChatMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.FileName)
		if err != nil {
			return models.ChatMessage{}, fmt.Errorf("build upload form: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return models.ChatMessage{}, fmt.Errorf("build upload form: %w", err)
		}
	}
	if text != "" {
		if err := w.WriteField("message", text); err != nil {
			return models.ChatMessage{}, fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return models.ChatMessage{}, fmt.Errorf("build upload form: %w", err)
	}

	path := fmt.Sprintf("api/chat/send/%s", receiver)
	u := c.url(path, url.Values{"sender": {sender}})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return models.ChatMessage{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	body, err := c.doRequest(req)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("send message: %w", err)
	}
	return decodeMessage(body)
}

// Update pushes an edited message and returns the server's representation.
func (c *Client) Update(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url("api/chat/update-message", nil), bytes.NewReader(payload))
	if err != nil {
		return models.ChatMessage{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.doRequest(req)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("update message %d: %w", msg.ID, err)
	}
	return decodeMessage(body)
}

// DeleteFile removes a server-confirmed attachment.
func (c *Client) DeleteFile(ctx context.Context, sender, receiver string, fileID int64) error {
	path := fmt.Sprintf("api/chat/delete-file/%s/%s/%d", sender, receiver, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url(path, nil), nil)
	if err != nil {
		return err
	}
	if _, err := c.doRequest(req); err != nil {
		return fmt.Errorf("delete file %d: %w", fileID, err)
	}
	return nil
}

// Download fetches a stored file's content.
func (c *Client) Download(ctx context.Context, fileType, fileName string) ([]byte, error) {
	path := fmt.Sprintf("api/chat/download/%s/%s", fileType, fileName)
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileName, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, q), nil)
	if err != nil {
		return nil, err
	}
	return c.doRequest(req)
}

func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	return body, nil
}

func (c *Client) url(path string, q url.Values) string {
	u := *c.base
	u.Path = joinPath(u.Path, path)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// decodeMessage accepts either a bare message or a {"data": ...} envelope.
func decodeMessage(body []byte) (models.ChatMessage, error) {
	raw := body
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		raw = env.Data
	}
	var msg models.ChatMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return models.ChatMessage{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

func joinPath(base, p string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + "/" + p
}
