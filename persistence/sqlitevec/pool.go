package sqlitevec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flarexio/simgen/vector"
)

const (
	DefaultPoolSize    = 4
	DefaultBusyTimeout = 5 * time.Second
)

// Open opens the storage file and starts cfg.PoolSize workers, each pinned to
// its own connection. Any failure here is meant to abort startup.
func Open(ctx context.Context, cfg vector.Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}

	size := cfg.PoolSize
	if size <= 0 {
		size = DefaultPoolSize
	}

	busyTimeout := cfg.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}

	sqlite_vec.Auto()

	db, err := sql.Open("sqlite3", dsn(cfg.Path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	db.SetConnMaxLifetime(0)

	var vecVersion string
	if err := db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec extension not loaded: %w", err)
	}

	conns := make([]*sql.Conn, 0, size)
	for range size {
		c, err := db.Conn(ctx)
		if err != nil {
			for _, c := range conns {
				c.Close()
			}

			db.Close()
			return nil, fmt.Errorf("failed to pin connection: %w", err)
		}

		conns = append(conns, c)
	}

	p := &Pool{
		db:             db,
		jobs:           make(chan job),
		quit:           make(chan struct{}),
		size:           size,
		acquireTimeout: cfg.AcquireTimeout,
		log: zap.L().With(
			zap.String("component", "pool"),
			zap.String("path", cfg.Path),
		),
	}

	p.group = new(errgroup.Group)
	for i, c := range conns {
		p.group.Go(func() error {
			return p.worker(i, c)
		})
	}

	err = p.Run(ctx, func(ctx context.Context, c vector.Conn) error {
		_, err := c.(*conn).c.ExecContext(ctx, registrySchema)
		return err
	})

	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ensure registry: %w", err)
	}

	p.log.Info("pool opened",
		zap.Int("size", size),
		zap.String("vec_version", vecVersion),
	)

	return p, nil
}

func dsn(path string, busyTimeout time.Duration) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", strconv.FormatInt(busyTimeout.Milliseconds(), 10))
	params.Set("_txlock", "immediate")

	return "file:" + path + "?" + params.Encode()
}

type job struct {
	ctx  context.Context
	work vector.UnitOfWork
	done chan error
}

// Pool dispatches units of work to a fixed set of workers over an unbuffered
// channel. A send succeeds only when a worker is free to take the job.
type Pool struct {
	db   *sql.DB
	jobs chan job
	quit chan struct{}

	group *errgroup.Group
	size  int

	acquireTimeout time.Duration

	closeOnce sync.Once
	closeErr  error

	log *zap.Logger
}

func (p *Pool) Run(ctx context.Context, work vector.UnitOfWork) error {
	select {
	case <-p.quit:
		return vector.ErrPoolClosed
	default:
	}

	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	j := job{
		ctx:  ctx,
		work: work,
		done: make(chan error, 1),
	}

	select {
	case <-p.quit:
		return vector.ErrPoolClosed

	case <-acquireCtx.Done():
		if ctx.Err() == nil {
			return vector.ErrAcquireTimeout
		}

		return ctx.Err()

	case p.jobs <- j:
	}

	return <-j.done
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.quit)

		err := p.group.Wait()
		if cerr := p.db.Close(); err == nil {
			err = cerr
		}

		p.closeErr = err
		p.log.Info("pool closed")
	})

	return p.closeErr
}

func (p *Pool) worker(id int, c *sql.Conn) error {
	defer c.Close()

	cn := &conn{c}

	for {
		select {
		case <-p.quit:
			return nil

		case j := <-p.jobs:
			j.done <- p.execute(id, cn, j)
		}
	}
}

func (p *Pool) execute(id int, c *conn, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("unit of work panicked",
				zap.Int("worker", id),
				zap.Any("panic", r),
			)

			err = fmt.Errorf("%w: %v", vector.ErrUnitPanicked, r)
		}
	}()

	if err := j.ctx.Err(); err != nil {
		return err
	}

	return j.work(j.ctx, c)
}

var _ vector.Pool = (*Pool)(nil)
