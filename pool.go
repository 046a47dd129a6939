package redis

import (
	"container/list"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	spool "github.com/morikuni/slice/pool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned by Checkout (and by With) once Shutdown
// has been called.
var ErrPoolClosed = errors.New("redis: pool is shut down")

// Pool is a bounded, thread-safe set of live Connections. It creates
// connections lazily up to its configured size, hands them out via
// Checkout/With, and reclaims them via Checkin. A Pool is safe for
// concurrent use by any number of goroutines; the Connections it
// hands out are not — each is owned exclusively by whichever caller
// currently holds it.
type Pool struct {
	mu        sync.Mutex
	idleSlots *spool.Pool
	idle      []*Connection
	all       map[*Connection]struct{}
	total     int
	waiters   list.List
	closed    bool
	cfg       *poolConfig
}

type poolConfig struct {
	size           int
	timeout        time.Duration
	host           string
	port           int
	path           string
	connectTimeout time.Duration
	readTimeout    time.Duration
	logger         *zap.Logger
}

// PoolOption configures a Pool at construction time.
type PoolOption func(*poolConfig)

// WithSize sets the maximum number of simultaneously live connections.
func WithSize(n int) PoolOption {
	return func(c *poolConfig) { c.size = n }
}

// WithTimeout sets the maximum time a caller waits in Checkout for a
// free connection before failing with *PoolTimeoutError.
func WithTimeout(d time.Duration) PoolOption {
	return func(c *poolConfig) { c.timeout = d }
}

// WithHost sets the TCP host to dial. Ignored if WithPath is set.
func WithHost(host string) PoolOption {
	return func(c *poolConfig) { c.host = host }
}

// WithPort sets the TCP port to dial. Ignored if WithPath is set.
func WithPort(port int) PoolOption {
	return func(c *poolConfig) { c.port = port }
}

// WithPath configures the pool to dial a local (Unix domain socket)
// endpoint instead of TCP, overriding host/port.
func WithPath(path string) PoolOption {
	return func(c *poolConfig) { c.path = path }
}

// WithConnectTimeout sets the per-connection TCP connect deadline.
func WithConnectTimeout(d time.Duration) PoolOption {
	return func(c *poolConfig) { c.connectTimeout = d }
}

// WithReadTimeout sets the read deadline assigned to newly dialed
// connections.
func WithReadTimeout(d time.Duration) PoolOption {
	return func(c *poolConfig) { c.readTimeout = d }
}

// WithLogger sets the structured logger the pool uses for
// non-fatal, best-effort diagnostics (idle teardown failures, dial
// failures). Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) PoolOption {
	return func(c *poolConfig) { c.logger = logger }
}

func defaultPoolConfig() *poolConfig {
	return &poolConfig{
		size:           5,
		timeout:        5 * time.Second,
		host:           "127.0.0.1",
		port:           6379,
		connectTimeout: time.Second,
		readTimeout:    time.Second,
		logger:         zap.NewNop(),
	}
}

func (c *poolConfig) validate() error {
	if c.size < 1 {
		return errors.New("redis: pool size must be at least 1")
	}
	if c.timeout <= 0 {
		return errors.New("redis: pool timeout must be positive")
	}
	if c.path == "" && c.host == "" {
		return errors.New("redis: pool host must not be empty when path is unset")
	}
	if c.logger == nil {
		return errors.New("redis: pool logger must not be nil")
	}
	return nil
}

func (c *poolConfig) dial() (*Connection, error) {
	if c.path != "" {
		return ConnectLocal(c.path, c.readTimeout)
	}
	return ConnectTCP(c.host, c.port, c.connectTimeout, c.readTimeout)
}

// NewPool constructs a Pool. Unrecognized configuration is impossible
// by construction: options are typed functions resolved at compile
// time, not a string-keyed map, so there is no "unknown option" case
// to reject or silently ignore (see SPEC_FULL.md §9.3).
func NewPool(opts ...PoolOption) (*Pool, error) {
	cfg := defaultPoolConfig()
	for _, o := range opts {
		o(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	idleSlots, err := spool.New(cfg.size, spool.MinIdle(0), spool.IdleTimeout(time.Hour))
	if err != nil {
		return nil, err
	}

	return &Pool{
		idleSlots: idleSlots,
		idle:      make([]*Connection, cfg.size),
		all:       make(map[*Connection]struct{}, cfg.size),
		cfg:       cfg,
	}, nil
}

// Checkout returns a live connection: an idle one if available,
// otherwise a freshly dialed one if the pool has room, otherwise it
// waits in FIFO order for a checkin or dial slot to free up, up to
// the pool's acquisition timeout (or ctx's deadline, whichever is
// sooner). Waiting past the acquisition timeout fails with
// *PoolTimeoutError; if ctx is done first, ctx.Err() is returned.
func (p *Pool) Checkout(ctx context.Context) (*Connection, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(p.cfg.timeout)

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}

		if conn, ok := p.popIdleLocked(); ok {
			p.mu.Unlock()
			return conn, nil
		}

		if p.total < p.cfg.size {
			p.total++
			p.mu.Unlock()

			conn, err := p.cfg.dial()
			if err != nil {
				p.mu.Lock()
				p.total--
				p.wakeOneLocked()
				p.mu.Unlock()
				p.cfg.logger.Warn("redis: pool: dial failed",
					zap.String("addr", p.addr()), zap.Error(err))
				return nil, err
			}

			p.mu.Lock()
			p.all[conn] = struct{}{}
			p.mu.Unlock()
			return conn, nil
		}

		// Saturated: enqueue ourselves at the back of the FIFO
		// waiter queue and block until checkin/discard wakes us,
		// the acquisition timeout elapses, or ctx is cancelled.
		wake := make(chan struct{}, 1)
		elem := p.waiters.PushBack(wake)
		p.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.mu.Lock()
			p.removeWaiterLocked(elem)
			p.mu.Unlock()
			return nil, &PoolTimeoutError{Waited: p.cfg.timeout.String()}
		}

		timer := time.NewTimer(remaining)
		select {
		case <-wake:
			timer.Stop()
			// loop around: retry idle-pop / open-new now that a
			// slot is known to have freed up.

		case <-timer.C:
			p.mu.Lock()
			woken := !p.removeWaiterLocked(elem)
			p.mu.Unlock()
			if !woken {
				return nil, &PoolTimeoutError{Waited: p.cfg.timeout.String()}
			}
			// A wakeup raced the timer and won; honor it rather
			// than dropping the slot we were just granted.

		case <-ctx.Done():
			timer.Stop()
			p.mu.Lock()
			woken := !p.removeWaiterLocked(elem)
			p.mu.Unlock()
			if !woken {
				return nil, ctx.Err()
			}
		}
	}
}

// Checkin returns conn to the pool if it is healthy (open and not
// poisoned), otherwise closes it and reduces the pool's live count by
// one. Either way, one waiter (if any) is woken to retry Checkout.
// Passing a nil conn is a no-op.
func (p *Pool) Checkin(conn *Connection) {
	if conn == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		delete(p.all, conn)
		p.wakeOneLocked()
		p.mu.Unlock()
		_ = conn.Close()
		return
	}

	if !conn.IsConnected() || conn.IsPoisoned() {
		p.total--
		delete(p.all, conn)
		p.wakeOneLocked()
		p.mu.Unlock()
		_ = conn.Close()
		return
	}

	if idx, ok := p.idleSlots.Put(); ok {
		p.idle[idx] = conn
		p.wakeOneLocked()
		p.mu.Unlock()
		return
	}

	// The idle array is sized to cfg.size and total never exceeds
	// it, so this should be unreachable; discard defensively rather
	// than leak the connection.
	p.total--
	delete(p.all, conn)
	p.wakeOneLocked()
	p.mu.Unlock()
	_ = conn.Close()
}

// With performs scoped acquisition: it checks out a connection,
// invokes fn, and checks the connection back in on every exit path,
// including when fn returns an error or panics. A panicking fn poisons
// the connection before it's checked in — its state mid-unwind can't
// be trusted — and the panic is re-raised after Checkin runs, so the
// pool's accounting never leaks a slot to an unwinding goroutine.
func (p *Pool) With(ctx context.Context, fn func(*Connection) error) (err error) {
	conn, err := p.Checkout(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			conn.poison()
			p.Checkin(conn)
			panic(r)
		}
	}()

	err = fn(conn)
	p.Checkin(conn)
	return err
}

// Shutdown closes every idle and outstanding connection and rejects
// all subsequent Checkout calls with ErrPoolClosed. It is safe to
// call more than once.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	toClose := make([]*Connection, 0, len(p.all))
	for conn := range p.all {
		toClose = append(toClose, conn)
	}
	p.all = make(map[*Connection]struct{})
	p.idle = make([]*Connection, p.cfg.size)
	p.total = 0

	for {
		e := p.waiters.Front()
		if e == nil {
			break
		}
		p.waiters.Remove(e)
		ch := e.Value.(chan struct{})
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	p.mu.Unlock()

	var err error
	for _, conn := range toClose {
		if e := conn.Close(); e != nil {
			err = multierr.Append(err, e)
			p.cfg.logger.Error("redis: pool: shutdown close failed",
				zap.String("addr", conn.Addr()), zap.Error(e))
		}
	}
	return err
}

func (p *Pool) popIdleLocked() (*Connection, bool) {
	idx, ok := p.idleSlots.Get()
	if !ok {
		return nil, false
	}
	conn := p.idle[idx]
	p.idle[idx] = nil
	return conn, true
}

// wakeOneLocked wakes the longest-waiting Checkout caller, if any.
// Must be called with p.mu held.
func (p *Pool) wakeOneLocked() {
	e := p.waiters.Front()
	if e == nil {
		return
	}
	p.waiters.Remove(e)
	ch := e.Value.(chan struct{})
	select {
	case ch <- struct{}{}:
	default:
	}
}

// removeWaiterLocked removes elem from the waiter queue if it is
// still present, reporting whether it removed it. false means the
// waiter was already popped (and woken) by a concurrent
// checkin/discard. Must be called with p.mu held.
func (p *Pool) removeWaiterLocked(elem *list.Element) bool {
	for e := p.waiters.Front(); e != nil; e = e.Next() {
		if e == elem {
			p.waiters.Remove(e)
			return true
		}
	}
	return false
}

func (p *Pool) addr() string {
	if p.cfg.path != "" {
		return p.cfg.path
	}
	return net.JoinHostPort(p.cfg.host, strconv.Itoa(p.cfg.port))
}
