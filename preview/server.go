// Package preview serves rendered frames to browsers and other clients over
// HTTP and websockets.
package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"

	"github.com/tmpim/pxl"
)

// Subscription is a set of packet kinds a client wants.
type Subscription uint32

// Possible subscription flags.
const (
	SubscriptionFrames = Subscription(1 << iota)
	SubscriptionPalette
	SubscriptionState
	SubscriptionAll = Subscription(0)
)

// IsSubscribedTo returns whether or not the client subscription is subscribed
// to the given subscription.
func (s Subscription) IsSubscribedTo(sub Subscription) bool {
	return (s & sub) == sub
}

// Control is the message a client sends to change its subscriptions.
type Control struct {
	ID           string `json:"id"`
	Subscription uint32 `json:"subscription"`
}

// State describes the latest frame.
type State struct {
	Seq     uint32    `json:"seq"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Clients int       `json:"clients"`
	Updated time.Time `json:"updated"`
}

// Options configures a Server.
type Options struct {
	// Palette is the initial palette. SetPalette replaces it.
	Palette *pxl.Palette
	// LogRequests logs every HTTP request.
	LogRequests      bool
	HandshakeTimeout time.Duration
}

func (o *Options) validate() error {
	if o.Palette == nil {
		return errors.New("preview: palette must be specified")
	}
	if o.HandshakeTimeout < 0 {
		return errors.New("preview: handshake timeout must not be negative")
	}
	return nil
}

type client struct {
	mutex         sync.Mutex
	id            string
	conn          *websocket.Conn
	subscriptions Subscription
}

func (c *client) send(data ...[]byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, d := range data {
		if err := c.conn.WriteMessage(websocket.BinaryMessage, d); err != nil {
			pxl.Logger().Debug("preview: write failed", slog.String("client", c.id), slog.Any("error", err))
			return
		}
	}
}

// Server holds the latest frame and pushes new ones to subscribers.
type Server struct {
	opts     Options
	palette  atomic.Pointer[pxl.Palette]
	enc      *zstd.Encoder
	upgrader websocket.Upgrader
	echo     *echo.Echo

	clientsMutex sync.Mutex
	clients      []*client

	frameMutex sync.RWMutex
	latest     *pxl.Image
	seq        uint32
	updated    time.Time
}

// NewServer returns a server with its routes registered under /api.
func NewServer(opts Options) (*Server, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts: opts,
		enc:  enc,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: opts.HandshakeTimeout,
		},
	}
	s.palette.Store(opts.Palette)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	if opts.LogRequests {
		e.Use(middleware.Logger())
	}

	api := e.Group("/api")

	api.GET("/client", func(c echo.Context) error {
		ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}

		s.HandleConn(ws)

		return nil
	})

	api.GET("/state", func(c echo.Context) error {
		state := s.State()
		return c.JSON(http.StatusOK, &state)
	})

	api.GET("/frame.png", func(c echo.Context) error {
		s.frameMutex.RLock()
		latest := s.latest
		s.frameMutex.RUnlock()

		if latest == nil {
			return echo.NewHTTPError(http.StatusNotFound, "no frame rendered yet")
		}

		buf := new(bytes.Buffer)
		if err := png.Encode(buf, latest.Paletted(s.Palette())); err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "image/png", buf.Bytes())
	})

	s.echo = e
	return s, nil
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr. It blocks until the server stops.
func (s *Server) Start(addr string) error { return s.echo.Start(addr) }

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.enc.Close()
	return s.echo.Shutdown(ctx)
}

// Palette returns the current palette.
func (s *Server) Palette() *pxl.Palette { return s.palette.Load() }

// SetPalette switches the palette used to present frames and sends it to
// every palette subscriber. Frames keep their indices.
func (s *Server) SetPalette(p *pxl.Palette) error {
	if p == nil {
		return errors.New("preview: SetPalette: palette must be specified")
	}
	s.palette.Store(p)

	pxl.Logger().Info("preview: palette switched", slog.Int("colors", p.Len()))
	s.Broadcast(SubscriptionPalette, s.palettePacket())
	return nil
}

// State returns a snapshot of the latest frame.
func (s *Server) State() State {
	s.clientsMutex.Lock()
	clients := len(s.clients)
	s.clientsMutex.Unlock()

	s.frameMutex.RLock()
	defer s.frameMutex.RUnlock()

	state := State{Seq: s.seq, Clients: clients, Updated: s.updated}
	if s.latest != nil {
		state.Width, state.Height = s.latest.Width(), s.latest.Height()
	}
	return state
}

// Publish stores img as the latest frame and sends it to every frame
// subscriber. img is copied.
func (s *Server) Publish(img *pxl.Image) error {
	img = img.Clone()

	s.frameMutex.Lock()
	s.seq++
	seq := s.seq
	s.latest = img
	s.updated = time.Now()
	s.frameMutex.Unlock()

	buf := new(bytes.Buffer)
	buf.WriteByte(PacketFrame)
	if err := NewFrame(seq, img).Encode(buf, s.enc); err != nil {
		return err
	}
	s.Broadcast(SubscriptionFrames, buf.Bytes())
	return nil
}

// Broadcast sends data to every client subscribed to sub.
func (s *Server) Broadcast(sub Subscription, data ...[]byte) {
	s.clientsMutex.Lock()
	clientCopy := make([]*client, len(s.clients))
	copy(clientCopy, s.clients)
	s.clientsMutex.Unlock()

	for _, c := range clientCopy {
		c.mutex.Lock()
		subscribed := c.subscriptions.IsSubscribedTo(sub)
		c.mutex.Unlock()

		if subscribed {
			c.send(data...)
		}
	}
}

func (s *Server) palettePacket() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(PacketPalette)
	WritePalette(buf, s.Palette())
	return buf.Bytes()
}

func (s *Server) statePacket() ([]byte, error) {
	state := s.State()
	d, err := json.Marshal(&state)
	if err != nil {
		return nil, err
	}
	return append([]byte{PacketState}, d...), nil
}

// HandleConn serves a websocket client until it disconnects. Clients start
// with no subscriptions and send Control messages to change them. The
// palette and state are sent in reply when requested.
func (s *Server) HandleConn(conn *websocket.Conn) {
	s.clientsMutex.Lock()
	c := &client{conn: conn}
	s.clients = append(s.clients, c)
	s.clientsMutex.Unlock()

	defer func() {
		s.clientsMutex.Lock()
		defer s.clientsMutex.Unlock()

		for i, other := range s.clients {
			if other == c {
				s.clients = append(s.clients[:i], s.clients[i+1:]...)
				break
			}
		}
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			pxl.Logger().Debug("preview: client disconnected", slog.String("client", c.id), slog.Any("error", err))
			return
		}

		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}

		var control Control
		if err := json.Unmarshal(data, &control); err != nil {
			pxl.Logger().Warn("preview: bad control message", slog.Any("error", err))
			continue
		}

		sub := Subscription(control.Subscription)
		c.mutex.Lock()
		c.id = control.ID
		c.subscriptions = sub
		c.mutex.Unlock()

		if sub.IsSubscribedTo(SubscriptionPalette) {
			c.send(s.palettePacket())
		}
		if sub.IsSubscribedTo(SubscriptionState) {
			if d, err := s.statePacket(); err == nil {
				c.send(d)
			} else {
				pxl.Logger().Error("preview: error encoding state", slog.Any("error", err))
			}
		}
	}
}
