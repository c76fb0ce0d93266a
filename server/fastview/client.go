package fastview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = time.Second
	// Publishing rate; updates arriving in between replace one another.
	pubResolution = 100 * time.Millisecond
	// Liveness check rate, and how long to tolerate missing pongs before giving up.
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4
	// How long a reader or writer waits for its turn on the socket.
	sockWait = time.Second
)

var upgrader = websocket.Upgrader{}

// ErrPongDeadlineExceeded means the peer stopped answering pings.
var ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

// Client publishes updates unidirectionally to one web client over a websocket.
// Items on the updates chan must be idempotent: any update fully specifies the client
// state, so intervening updates can be discarded when they arrive too quickly.
type Client[T any] struct {
	updates <-chan T
	sock    *sock
	rootCtx context.Context
}

// NewClient upgrades the request to a websocket and returns a publisher for it.
func NewClient[T any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
) (*Client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied to the client.
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}

	return &Client[T]{
		updates: updates,
		sock:    newSock(ws),
		rootCtx: r.Context(),
	}, nil
}

// Sync runs the read, liveness and publish routines until the client disconnects,
// the updates chan closes, or one of them fails. The first routine to finish stops
// the others, and the socket is closed on return.
func (cli *Client[T]) Sync() error {
	defer cli.sock.close()

	group, groupCtx := errgroup.WithContext(cli.rootCtx)
	ctx, cancel := context.WithCancel(groupCtx)
	defer cancel()

	routines := []func(context.Context) error{
		cli.readMessages,
		cli.pingPong,
		cli.publish,
	}
	for _, routine := range routines {
		routine := routine
		group.Go(func() error {
			defer cancel()
			return routine(ctx)
		})
	}
	// A blocked ReadMessage does not observe the context; expire its deadline instead.
	group.Go(func() error {
		<-ctx.Done()
		return cli.sock.conn().SetReadDeadline(time.Now())
	})
	return group.Wait()
}

// pingPong pings the peer and fails once pongs stop arriving.
// The pong handler only runs while readMessages is reading.
func (cli *Client[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	cli.sock.conn().SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pong:
			lastPong = time.Now()
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			err := cli.sock.write(ctx, func(ws *websocket.Conn) error {
				return ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			})
			if err != nil {
				return unexpected("ping", err)
			}
		}
	}
}

// readMessages drains client messages; any read error is permanent and ends the session.
func (cli *Client[T]) readMessages(ctx context.Context) error {
	for {
		err := cli.sock.read(ctx, func(ws *websocket.Conn) error {
			_, _, readErr := ws.ReadMessage()
			return readErr
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return unexpected("read", err)
		}
	}
}

// publish writes at most one update per pubResolution. Intervening updates replace
// the pending one, and the pending update is written on the next tick.
func (cli *Client[T]) publish(ctx context.Context) error {
	var pending *T
	ticker := channerics.NewTicker(ctx.Done(), pubResolution)
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-cli.updates:
			if !ok {
				return cli.write(ctx, pending)
			}
			pending = &update
		case <-ticker:
			if err := cli.write(ctx, pending); err != nil {
				return err
			}
			pending = nil
		}
	}
}

func (cli *Client[T]) write(ctx context.Context, update *T) error {
	if update == nil {
		return nil
	}
	err := cli.sock.write(ctx, func(ws *websocket.Conn) error {
		if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
		return ws.WriteJSON(update)
	})
	return unexpected("publish", err)
}

// unexpected maps normal closures to nil and annotates anything else.
func unexpected(op string, err error) error {
	if err == nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// sock serializes access to the websocket, which allows one concurrent reader and one writer.
type sock struct {
	// Semaphores rather than mutexes, so waiting can be abandoned.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newSock(ws *websocket.Conn) *sock {
	return &sock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// conn exposes the websocket for setup only, e.g. adding handlers.
func (s *sock) conn() *websocket.Conn {
	return s.ws
}

func acquire(ctx context.Context, sem chan struct{}, fn func() error) error {
	select {
	case <-ctx.Done():
		return nil
	case sem <- struct{}{}:
		defer func() { <-sem }()
		return fn()
	case <-time.After(sockWait):
		return ErrSockCongestion
	}
}

func (s *sock) read(ctx context.Context, readFn func(*websocket.Conn) error) error {
	return acquire(ctx, s.readSem, func() error { return readFn(s.ws) })
}

func (s *sock) write(ctx context.Context, writeFn func(*websocket.Conn) error) error {
	return acquire(ctx, s.writeSem, func() error { return writeFn(s.ws) })
}

// close sends a close frame, best effort, and closes the connection. Closing the
// underlying connection also unblocks a pending ReadMessage.
func (s *sock) close() {
	s.writeSem <- struct{}{}
	defer func() { <-s.writeSem }()

	_ = s.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	s.ws.Close()
}
