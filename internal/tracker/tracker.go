package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tidwall/buntdb"
	"github.com/vmihailenco/msgpack/v5"
)

const runKeyPrefix = "run:"

type TrackerConfig struct {
	Context context.Context
	Logger  logger.Logger
	Dir     string
}

// Tracker is the local database of past runs.
type Tracker struct {
	ctx    context.Context
	logger logger.Logger
	db     *buntdb.DB
	once   sync.Once
}

// Run is the history record of one anonymization run.
type Run struct {
	ID          string              `msgpack:"id" json:"id"`
	Source      string              `msgpack:"source" json:"source"`
	Target      string              `msgpack:"target" json:"target"`
	ConfigHash  string              `msgpack:"configHash" json:"configHash"`
	DryRun      bool                `msgpack:"dryRun" json:"dryRun"`
	Result      *internal.RunResult `msgpack:"result" json:"result"`
	CompletedAt time.Time           `msgpack:"completedAt" json:"completedAt"`
}

// Close will close the tracker and the underlying database.
func (t *Tracker) Close() error {
	t.logger.Debug("closing")
	t.once.Do(func() {
		t.db.Shrink()
		t.db.Close()
	})
	t.logger.Debug("closed")
	return nil
}

// GetKey will return the value of the key from the database.
func (t *Tracker) GetKey(key string) (bool, string, error) {
	var value string
	var found bool
	err := t.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(key, false)
		if err != nil {
			if err == buntdb.ErrNotFound {
				return nil
			}
			return err
		}
		value = val
		found = true
		return nil
	})
	if err != nil {
		return found, "", fmt.Errorf("failed to get key: %w", err)
	}
	return found, value, nil
}

// SetKey will set the key to the value in the database.
func (t *Tracker) SetKey(key, value string, expires time.Duration) error {
	err := t.db.Update(func(tx *buntdb.Tx) error {
		var opts *buntdb.SetOptions
		if expires > 0 {
			opts = &buntdb.SetOptions{Expires: true, TTL: expires}
		}
		_, _, err := tx.Set(key, value, opts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// DeleteKey will delete the key from the database.
func (t *Tracker) DeleteKey(keys ...string) error {
	return t.db.Update(func(tx *buntdb.Tx) error {
		for _, key := range keys {
			if _, err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func runKey(run *Run) string {
	// sortable by completion time with the id as tie breaker
	return fmt.Sprintf("%s%020d:%s", runKeyPrefix, run.CompletedAt.UnixNano(), run.ID)
}

// SaveRun stores the run. Runs expire after the retention when it is greater than zero.
func (t *Tracker) SaveRun(run *Run, retention time.Duration) error {
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now()
	}
	buf, err := msgpack.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	if err := t.SetKey(runKey(run), string(buf), retention); err != nil {
		return err
	}
	t.logger.Debug("saved run %s", run.ID)
	return nil
}

// ListRuns returns the most recent runs first, at most limit runs when limit is greater than zero.
func (t *Tracker) ListRuns(limit int) ([]*Run, error) {
	var values []string
	err := t.db.View(func(tx *buntdb.Tx) error {
		return tx.DescendKeys(runKeyPrefix+"*", func(key, value string) bool {
			values = append(values, value)
			return limit <= 0 || len(values) < limit
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	res := make([]*Run, 0, len(values))
	for _, value := range values {
		var run Run
		if err := msgpack.Unmarshal([]byte(value), &run); err != nil {
			return nil, fmt.Errorf("failed to decode run: %w", err)
		}
		res = append(res, &run)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CompletedAt.After(res[j].CompletedAt) })
	return res, nil
}

// GetRun returns the run with the id or its unique prefix.
func (t *Tracker) GetRun(id string) (*Run, error) {
	runs, err := t.ListRuns(0)
	if err != nil {
		return nil, err
	}
	var found *Run
	for _, run := range runs {
		if run.ID == id {
			return run, nil
		}
		if strings.HasPrefix(run.ID, id) {
			if found != nil {
				return nil, fmt.Errorf("run id %s is ambiguous", id)
			}
			found = run
		}
	}
	return found, nil
}

// TrackerFilenameFromDir returns the filename for the tracker database based on a specific directory.
func TrackerFilenameFromDir(dir string) string {
	return filepath.Join(dir, "anonymizer-data.db")
}

// NewTracker will create a new tracker with the given configuration.
func NewTracker(config TrackerConfig) (*Tracker, error) {
	var tracker Tracker

	db, err := buntdb.Open(TrackerFilenameFromDir(config.Dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	var dbcfg buntdb.Config
	if err := db.ReadConfig(&dbcfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read db config: %w", err)
	}
	dbcfg.SyncPolicy = buntdb.EverySecond
	if err := db.SetConfig(dbcfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set db config: %w", err)
	}

	tracker.db = db
	tracker.ctx = config.Context
	tracker.logger = config.Logger.WithPrefix("[tracker]")

	return &tracker, nil
}
