package sqlitevec

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/simgen/vector"
)

func TestQuoteIdentifier(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(`"docs"`, QuoteIdentifier("docs"))
	assert.Equal(`"a""b"`, QuoteIdentifier(`a"b`))
	assert.Equal(`"x""; DROP TABLE y; --"`, QuoteIdentifier(`x"; DROP TABLE y; --`))
}

func TestDSN(t *testing.T) {
	assert := assert.New(t)

	got := dsn("/tmp/simgen.db", 2*time.Second)

	assert.Contains(got, "file:/tmp/simgen.db?")
	assert.Contains(got, "_busy_timeout=2000")
	assert.Contains(got, "_journal_mode=WAL")
	assert.Contains(got, "_txlock=immediate")
}

type poolTestSuite struct {
	suite.Suite
	path string
	pool *Pool
}

func (suite *poolTestSuite) SetupTest() {
	suite.path = filepath.Join(suite.T().TempDir(), "simgen.db")

	pool, err := Open(context.Background(), vector.Config{
		Path:     suite.path,
		PoolSize: 2,
	})
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.pool = pool
}

func (suite *poolTestSuite) TearDownTest() {
	if suite.pool != nil {
		suite.pool.Close()
	}
}

func (suite *poolTestSuite) create(name string, dimension int) error {
	return suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		return c.CreateTable(ctx, vector.Collection{
			Name:      name,
			Dimension: dimension,
			Metric:    vector.MetricCosine,
		})
	})
}

func (suite *poolTestSuite) insert(name, key string, vec []float32) (int64, error) {
	var rowid int64
	err := suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		id, err := c.InsertRow(ctx, name, key, vec)
		rowid = id
		return err
	})

	return rowid, err
}

func (suite *poolTestSuite) nearest(name string, query []float32, limit int) ([]vector.Neighbor, error) {
	var neighbors []vector.Neighbor
	err := suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		n, err := c.NearestNeighbors(ctx, name, query, limit)
		neighbors = n
		return err
	})

	return neighbors, err
}

func (suite *poolTestSuite) TestSize() {
	suite.Equal(2, suite.pool.Size())
}

func (suite *poolTestSuite) TestCreateAndDescribe() {
	err := suite.create("docs", 3)
	suite.Require().NoError(err)

	var collection vector.Collection
	err = suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		col, err := c.Describe(ctx, "docs")
		collection = col
		return err
	})

	suite.Require().NoError(err)
	suite.Equal("docs", collection.Name)
	suite.Equal(3, collection.Dimension)
	suite.Equal(vector.MetricCosine, collection.Metric)
}

func (suite *poolTestSuite) TestCreateDuplicate() {
	suite.Require().NoError(suite.create("docs", 3))

	_, err := suite.insert("docs", "first", []float32{1, 0, 0})
	suite.Require().NoError(err)

	err = suite.create("docs", 5)
	suite.ErrorIs(err, vector.ErrTableExists)

	neighbors, err := suite.nearest("docs", []float32{1, 0, 0}, 10)
	suite.Require().NoError(err)
	suite.Len(neighbors, 1)
	suite.Equal("first", neighbors[0].Key)
}

func (suite *poolTestSuite) TestCreateOverShadowTable() {
	suite.Require().NoError(suite.create("docs", 3))

	err := suite.create("docs_rowids", 3)
	suite.ErrorIs(err, vector.ErrTableExists)
}

func (suite *poolTestSuite) TestRegistryIgnoresCase() {
	suite.Require().NoError(suite.create("docs", 3))

	err := suite.create("DOCS", 3)
	suite.ErrorIs(err, vector.ErrTableExists)

	var described vector.Collection
	err = suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		d, err := c.Describe(ctx, "DOCS")
		described = d
		return err
	})

	suite.Require().NoError(err)
	suite.Equal(3, described.Dimension)

	var tables []vector.Collection
	err = suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		if err := c.DropTable(ctx, "DOCS"); err != nil {
			return err
		}

		t, err := c.Tables(ctx)
		tables = t
		return err
	})

	suite.Require().NoError(err)
	suite.Empty(tables)

	_, err = suite.insert("docs", "x", []float32{1, 0, 0})
	suite.ErrorIs(err, vector.ErrTableNotFound)
}

func (suite *poolTestSuite) TestInsertAndNearest() {
	suite.Require().NoError(suite.create("docs", 3))

	first, err := suite.insert("docs", "x", []float32{1, 0, 0})
	suite.Require().NoError(err)

	second, err := suite.insert("docs", "y", []float32{0, 1, 0})
	suite.Require().NoError(err)

	third, err := suite.insert("docs", "xy", []float32{1, 1, 0})
	suite.Require().NoError(err)

	suite.NotEqual(first, second)
	suite.NotEqual(second, third)

	neighbors, err := suite.nearest("docs", []float32{1, 0, 0}, 2)
	suite.Require().NoError(err)
	suite.Require().Len(neighbors, 2)

	suite.Equal(first, neighbors[0].RowID)
	suite.Equal("x", neighbors[0].Key)
	suite.InDelta(0, neighbors[0].Distance, 1e-5)

	suite.Equal("xy", neighbors[1].Key)
	suite.Less(neighbors[0].Distance, neighbors[1].Distance)
}

func (suite *poolTestSuite) TestNearestOnEmptyTable() {
	suite.Require().NoError(suite.create("docs", 3))

	neighbors, err := suite.nearest("docs", []float32{1, 0, 0}, 10)
	suite.Require().NoError(err)
	suite.NotNil(neighbors)
	suite.Empty(neighbors)
}

func (suite *poolTestSuite) TestMissingTable() {
	_, err := suite.insert("missing", "x", []float32{1, 0, 0})
	suite.ErrorIs(err, vector.ErrTableNotFound)

	_, err = suite.nearest("missing", []float32{1, 0, 0}, 1)
	suite.ErrorIs(err, vector.ErrTableNotFound)

	err = suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		_, err := c.Describe(ctx, "missing")
		return err
	})
	suite.ErrorIs(err, vector.ErrTableNotFound)
}

func (suite *poolTestSuite) TestInsertWrongLength() {
	suite.Require().NoError(suite.create("docs", 3))

	_, err := suite.insert("docs", "short", []float32{1, 0})
	suite.Error(err)

	neighbors, err := suite.nearest("docs", []float32{1, 0, 0}, 10)
	suite.Require().NoError(err)
	suite.Empty(neighbors)
}

func (suite *poolTestSuite) TestDropTable() {
	suite.Require().NoError(suite.create("docs", 3))

	drop := func(name string) error {
		return suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
			return c.DropTable(ctx, name)
		})
	}

	suite.NoError(drop("docs_rowids"))

	_, err := suite.insert("docs", "x", []float32{1, 0, 0})
	suite.Require().NoError(err, "dropping a shadow table name must not touch the collection")

	suite.NoError(drop("docs"))
	suite.NoError(drop("docs"))

	_, err = suite.insert("docs", "x", []float32{1, 0, 0})
	suite.ErrorIs(err, vector.ErrTableNotFound)
}

func (suite *poolTestSuite) TestTables() {
	suite.Require().NoError(suite.create("b", 2))
	suite.Require().NoError(suite.create("a", 4))

	var tables []vector.Collection
	err := suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		t, err := c.Tables(ctx)
		tables = t
		return err
	})

	suite.Require().NoError(err)
	suite.Require().Len(tables, 2)
	suite.Equal("a", tables[0].Name)
	suite.Equal(4, tables[0].Dimension)
	suite.Equal("b", tables[1].Name)
}

func (suite *poolTestSuite) TestPing() {
	err := suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		return c.Ping(ctx)
	})

	suite.NoError(err)
}

func (suite *poolTestSuite) TestRunBoundsConcurrency() {
	var (
		active  atomic.Int32
		highest atomic.Int32
		wg      sync.WaitGroup
	)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
				n := active.Add(1)
				defer active.Add(-1)

				for {
					h := highest.Load()
					if n <= h || highest.CompareAndSwap(h, n) {
						break
					}
				}

				time.Sleep(20 * time.Millisecond)
				return c.Ping(ctx)
			})

			suite.NoError(err)
		}()
	}

	wg.Wait()

	suite.LessOrEqual(highest.Load(), int32(2))
	suite.Equal(int32(0), active.Load())
}

func (suite *poolTestSuite) TestRunRecoversPanic() {
	for range suite.pool.Size() + 1 {
		err := suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
			panic("boom")
		})

		suite.ErrorIs(err, vector.ErrUnitPanicked)
	}

	err := suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		return c.Ping(ctx)
	})

	suite.NoError(err)
}

func (suite *poolTestSuite) TestRunReturnsUnitError() {
	expected := errors.New("unit failed")

	err := suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		return expected
	})

	suite.ErrorIs(err, expected)
}

func (suite *poolTestSuite) TestRunCancelledBeforeDispatch() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	err := suite.pool.Run(ctx, func(ctx context.Context, c vector.Conn) error {
		ran.Store(true)
		return nil
	})

	suite.ErrorIs(err, context.Canceled)
	suite.False(ran.Load())
}

func (suite *poolTestSuite) TestRunAfterClose() {
	suite.Require().NoError(suite.pool.Close())

	err := suite.pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		return nil
	})

	suite.ErrorIs(err, vector.ErrPoolClosed)
	suite.NoError(suite.pool.Close())
}

func (suite *poolTestSuite) TestReopenKeepsCollections() {
	suite.Require().NoError(suite.create("docs", 3))

	_, err := suite.insert("docs", "x", []float32{1, 0, 0})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.pool.Close())

	pool, err := Open(context.Background(), vector.Config{Path: suite.path, PoolSize: 1})
	suite.Require().NoError(err)
	suite.pool = pool

	neighbors, err := suite.nearest("docs", []float32{1, 0, 0}, 1)
	suite.Require().NoError(err)
	suite.Require().Len(neighbors, 1)
	suite.Equal("x", neighbors[0].Key)
}

func TestPoolTestSuite(t *testing.T) {
	suite.Run(t, new(poolTestSuite))
}

func TestAcquireTimeout(t *testing.T) {
	assert := assert.New(t)

	pool, err := Open(context.Background(), vector.Config{
		Path:           filepath.Join(t.TempDir(), "simgen.db"),
		PoolSize:       1,
		AcquireTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer pool.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started

	err = pool.Run(context.Background(), func(ctx context.Context, c vector.Conn) error {
		return nil
	})
	assert.ErrorIs(err, vector.ErrAcquireTimeout)

	close(release)
	assert.NoError(<-done)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), vector.Config{})
	assert.Error(t, err)
}
