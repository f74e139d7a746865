package stress

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/btree"
	"github.com/google/safeopen"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/lib/tree"
	"github.com/benz9527/xrbtree/xlog"
)

const (
	// TrialContextKey carries the trial id for the log context fields.
	TrialContextKey = "trial"

	refDegree       = 32
	cancelCheckMask = 1<<10 - 1
	sampledFindStep = 97
	// Larger trees are not rendered, the graph would be unreadable.
	maxDOTKeys = 4096
)

type TrialResult struct {
	ID         uint64
	Seed       uint64
	Keys       int
	Unique     int
	Duplicates int
	Checks     int
	Duration   time.Duration
}

type trial struct {
	id     uint64
	cfg    *Config
	rng    *rand.Rand
	rbt    tree.RBTree[int64]
	ref    *btree.BTreeG[int64]
	stats  *stressStats
	logger xlog.XLogger
	res    *TrialResult
}

func newTrial(id uint64, cfg *Config, stats *stressStats, logger xlog.XLogger) *trial {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &trial{
		id:  id,
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, id)),
		rbt: tree.NewRBTree[int64](tree.WithRBTreeArenaCap[int64](uint32(cfg.Keys))),
		ref: btree.NewG[int64](refDegree, btree.LessFunc[int64](infra.OrderedLess[int64])),
		stats:  stats,
		logger: logger,
		res: &TrialResult{
			ID:   id,
			Seed: seed,
			Keys: cfg.Keys,
		},
	}
}

// run inserts random keys in [1, MaxKey], then removes every unique key
// in a shuffled order. Each step is cross-checked against a btree
// reference set.
func (t *trial) run(ctx context.Context) (*TrialResult, error) {
	start := time.Now()
	defer func() {
		t.res.Duration = time.Since(start)
		t.rbt.Release()
		t.ref.Clear(false)
	}()

	keys := make([]int64, t.cfg.Keys)
	for i := range keys {
		keys[i] = t.rng.Int64N(t.cfg.MaxKey) + 1
	}
	t.logger.DebugContext(ctx, "trial started",
		zap.Uint64("seed", t.res.Seed),
		zap.Int("keys", len(keys)),
	)

	if err := t.insertPhase(ctx, keys); err != nil {
		t.dumpOnFailure(ctx)
		return t.res, err
	}
	if t.cfg.Check != CheckNone {
		if err := t.validate("insertion phase", 0); err != nil {
			t.dumpOnFailure(ctx)
			return t.res, err
		}
	}
	if err := t.compareSequence(); err != nil {
		t.dumpOnFailure(ctx)
		return t.res, err
	}
	if len(t.cfg.DotDir) > 0 {
		if err := t.dump(fmt.Sprintf("trial-%d.dot", t.id)); err != nil {
			t.logger.ErrorStackContext(ctx, err, "dump rbtree failed")
		}
	}

	unique := lo.Uniq(keys)
	t.rng.Shuffle(len(unique), func(i, j int) {
		unique[i], unique[j] = unique[j], unique[i]
	})
	if err := t.removePhase(ctx, unique); err != nil {
		t.dumpOnFailure(ctx)
		return t.res, err
	}
	if t.rbt.Len() != 0 || t.rbt.Root() != nil {
		return t.res, infra.NewErrorStack(fmt.Sprintf("trial %d, %d keys left after removing all", t.id, t.rbt.Len()))
	}
	if t.cfg.Check != CheckNone {
		if err := t.validate("removal phase", 0); err != nil {
			return t.res, err
		}
	}
	return t.res, nil
}

func (t *trial) insertPhase(ctx context.Context, keys []int64) error {
	for i, key := range keys {
		if i&cancelCheckMask == 0 && ctx.Err() != nil {
			return infra.WrapErrorStackWithMessage(ctx.Err(), fmt.Sprintf("trial %d insertion cancelled", t.id))
		}
		inserted := t.rbt.Insert(key)
		_, existed := t.ref.ReplaceOrInsert(key)
		if inserted == existed {
			return infra.NewErrorStack(fmt.Sprintf("trial %d, insert %d returned %t but the reference set contained it %t",
				t.id, key, inserted, existed))
		}
		if inserted {
			t.stats.RecordLiveKeys(1)
		} else {
			t.res.Duplicates++
		}
		if err := t.crossCheck(i, "insert", key); err != nil {
			return err
		}
	}
	t.res.Unique = t.ref.Len()
	t.stats.RecordOps(opInsert, int64(len(keys)))
	return nil
}

func (t *trial) removePhase(ctx context.Context, keys []int64) error {
	for i, key := range keys {
		if i&cancelCheckMask == 0 && ctx.Err() != nil {
			return infra.WrapErrorStackWithMessage(ctx.Err(), fmt.Sprintf("trial %d removal cancelled", t.id))
		}
		if !t.rbt.Remove(key) {
			return infra.NewErrorStack(fmt.Sprintf("trial %d, remove present key %d returned false", t.id, key))
		}
		if _, ok := t.ref.Delete(key); !ok {
			return infra.NewErrorStack(fmt.Sprintf("trial %d, reference set lost key %d", t.id, key))
		}
		t.stats.RecordLiveKeys(-1)
		if t.rbt.Remove(key) {
			return infra.NewErrorStack(fmt.Sprintf("trial %d, remove absent key %d returned true", t.id, key))
		}
		if err := t.crossCheck(i, "remove", key); err != nil {
			return err
		}
	}
	t.stats.RecordOps(opRemove, int64(len(keys)))
	return nil
}

// crossCheck validates the tree after each step in CheckEvery mode,
// and probes Find with the touched key plus a random one.
func (t *trial) crossCheck(step int, op string, key int64) error {
	if t.cfg.Check == CheckEvery {
		if err := t.validate(op, key); err != nil {
			return err
		}
	} else if step%sampledFindStep != 0 {
		return nil
	}
	probe := t.rng.Int64N(t.cfg.MaxKey) + 1
	for _, k := range [2]int64{key, probe} {
		node := t.rbt.Find(k)
		if found, expected := node != nil, t.ref.Has(k); found != expected {
			return infra.NewErrorStack(fmt.Sprintf("trial %d, find %d after %s %d returned %t, expected %t",
				t.id, k, op, key, found, expected))
		} else if found && node.Key() != k {
			return infra.NewErrorStack(fmt.Sprintf("trial %d, find %d returned node of key %d", t.id, k, node.Key()))
		}
	}
	t.stats.RecordOps(opFind, 2)
	return nil
}

func (t *trial) validate(op string, key int64) error {
	start := time.Now()
	err := tree.Validate[int64](t.rbt)
	t.stats.RecordCheckDuration(time.Since(start))
	t.res.Checks++
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, fmt.Sprintf("trial %d, rbtree violation after %s %d", t.id, op, key))
	}
	return nil
}

// compareSequence compares the inorder keys with the reference set.
func (t *trial) compareSequence() error {
	if t.rbt.Len() != int64(t.ref.Len()) {
		return infra.NewErrorStack(fmt.Sprintf("trial %d, rbtree len %d, reference len %d", t.id, t.rbt.Len(), t.ref.Len()))
	}
	expected := make([]int64, 0, t.ref.Len())
	t.ref.Ascend(func(item int64) bool {
		expected = append(expected, item)
		return true
	})
	var err error
	t.rbt.Foreach(func(idx int64, color tree.RBColor, key int64) bool {
		if expected[idx] != key {
			err = infra.NewErrorStack(fmt.Sprintf("trial %d, inorder key at %d is %d, expected %d", t.id, idx, key, expected[idx]))
			return false
		}
		return true
	})
	return err
}

func (t *trial) dumpOnFailure(ctx context.Context) {
	if len(t.cfg.DotDir) == 0 {
		return
	}
	if err := t.dump(fmt.Sprintf("trial-%d-failed.dot", t.id)); err != nil {
		t.logger.ErrorStackContext(ctx, err, "dump failed rbtree failed")
	}
}

// dump writes the tree beneath DotDir. The file name never escapes
// the directory.
func (t *trial) dump(name string) error {
	if t.rbt.Len() > maxDOTKeys {
		t.logger.Debug("skip rbtree dump", zap.String("file", name), zap.Int64("len", t.rbt.Len()))
		return nil
	}
	if err := os.MkdirAll(t.cfg.DotDir, 0o755); err != nil {
		return infra.WrapErrorStackWithMessage(err, "create dot dir")
	}
	f, err := safeopen.OpenFileBeneath(t.cfg.DotDir, name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "open dot file "+name)
	}
	err = tree.ExportDOT[int64](t.rbt, f,
		tree.WithDOTName[int64](fmt.Sprintf("trial_%d", t.id)),
	)
	return infra.AppendErrorStack(err, f.Close())
}
