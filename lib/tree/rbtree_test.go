package tree

import (
	randv2 "math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/xrbtree/lib/id"
	"github.com/benz9527/xrbtree/lib/infra"
)

type checkData struct {
	color RBColor
	key   uint64
}

func requireInorder(t *testing.T, tree RBTree[uint64], expected []checkData) {
	t.Helper()
	count := 0
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Less(t, int(idx), len(expected))
		require.Equal(t, expected[idx].color, color, "key %d", key)
		require.Equal(t, expected[idx].key, key)
		count++
		return true
	})
	require.Equal(t, len(expected), count)
	require.Equal(t, int64(len(expected)), tree.Len())
	require.NoError(t, Validate[uint64](tree))
}

func requireSortedKeys[K infra.OrderedKey](t *testing.T, tree RBTree[K], expected []K) {
	t.Helper()
	count := 0
	tree.Foreach(func(idx int64, color RBColor, key K) bool {
		require.Equal(t, expected[idx], key)
		count++
		return true
	})
	require.Equal(t, len(expected), count)
}

func TestNilNode(t *testing.T) {
	var nilNode RBNode[uint64] = nil
	require.True(t, nilNode == nil)

	var nilNode2 *rbNodeHandle[uint64] = nil
	nilNode = nilNode2
	require.True(t, nilNode != nil)
	require.Nil(t, nilNode)
	require.False(t, nilNode.IsValid())

	// The tree never hands out a typed nil.
	tree := NewRBTree[uint64]()
	require.True(t, tree.Find(1) == nil)
	require.True(t, tree.Root() == nil)
	tree.Insert(1)
	root := tree.Root()
	require.True(t, root.Left() == nil)
	require.True(t, root.Right() == nil)
	require.True(t, root.Parent() == nil)
}

func TestRbtreeLeftAndRightRotate(t *testing.T) {
	tree := NewRBTree[uint64](WithRBTreeCheck[uint64]())

	tree.Insert(52)
	requireInorder(t, tree, []checkData{
		{Black, 52},
	})

	tree.Insert(47)
	requireInorder(t, tree, []checkData{
		{Red, 47}, {Black, 52},
	})

	// im5
	tree.Insert(3)
	requireInorder(t, tree, []checkData{
		{Red, 3}, {Black, 47}, {Red, 52},
	})
	require.Equal(t, uint64(47), tree.Root().Key())

	// im3
	tree.Insert(35)
	requireInorder(t, tree, []checkData{
		{Black, 3}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	// im4 then im5
	tree.Insert(24)
	requireInorder(t, tree, []checkData{
		{Red, 3}, {Black, 24}, {Red, 35}, {Black, 47}, {Black, 52},
	})

	// r2, the succ 35 takes the place of 24
	require.True(t, tree.Remove(24))
	requireInorder(t, tree, []checkData{
		{Red, 3}, {Black, 35}, {Black, 47}, {Black, 52},
	})

	// r2 then rm4
	require.True(t, tree.Remove(47))
	requireInorder(t, tree, []checkData{
		{Black, 3}, {Black, 35}, {Black, 52},
	})
	require.Equal(t, uint64(35), tree.Root().Key())

	// rm2
	require.True(t, tree.Remove(52))
	requireInorder(t, tree, []checkData{
		{Red, 3}, {Black, 35},
	})

	require.True(t, tree.Remove(3))
	requireInorder(t, tree, []checkData{
		{Black, 35},
	})

	// r1
	require.True(t, tree.Remove(35))
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	require.NoError(t, Validate[uint64](tree))
}

func TestRbtreeRotate(t *testing.T) {
	tree := NewRBTree[uint64]().(*rbTree[uint64])
	for _, key := range []uint64{2, 1, 3} {
		tree.Insert(key)
	}
	one, two, three := tree.search(1), tree.search(2), tree.search(3)

	tree.leftRotate(two)
	require.Equal(t, three, tree.root)
	require.Equal(t, two, tree.node(three).left)
	require.Equal(t, one, tree.node(two).left)
	require.Equal(t, nilRef, tree.node(two).right)
	require.Equal(t, nilRef, tree.node(three).parent)
	require.NoError(t, OrderViolationValidate[uint64](tree))
	require.NoError(t, LinkViolationValidate[uint64](tree))

	tree.rightRotate(three)
	require.Equal(t, two, tree.root)
	require.Equal(t, one, tree.node(two).left)
	require.Equal(t, three, tree.node(two).right)
	require.Equal(t, two, tree.node(three).parent)
	require.Equal(t, two, tree.node(one).parent)
	require.NoError(t, Validate[uint64](tree))

	require.Panics(t, func() {
		tree.leftRotate(one)
	})
	require.Panics(t, func() {
		tree.rotate(two, Root)
	})
}

func TestRbtreeSuccAndPred(t *testing.T) {
	tree := NewRBTree[uint64]().(*rbTree[uint64])
	keys := []uint64{50, 30, 70, 20, 40, 60, 80, 35, 45, 65}
	for _, key := range keys {
		require.True(t, tree.Insert(key))
	}
	sorted := append([]uint64(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	for i, key := range sorted {
		ref := tree.search(key)
		require.NotEqual(t, nilRef, ref)
		succ, pred := tree.succ(ref), tree.pred(ref)
		if i == len(sorted)-1 {
			require.Equal(t, nilRef, succ)
		} else {
			require.Equal(t, sorted[i+1], tree.node(succ).key)
		}
		if i == 0 {
			require.Equal(t, nilRef, pred)
		} else {
			require.Equal(t, sorted[i-1], tree.node(pred).key)
		}
	}
	require.Equal(t, uint64(20), tree.node(tree.minimum(tree.root)).key)
	require.Equal(t, uint64(80), tree.node(tree.maximum(tree.root)).key)
	require.Equal(t, nilRef, tree.succ(nilRef))
	require.Equal(t, nilRef, tree.pred(nilRef))
}

func TestRbtreeInsertSequence(t *testing.T) {
	keys := []uint64{17, 18, 23, 34, 27, 15, 9, 6, 8, 5, 25}
	tree := NewRBTree[uint64]()
	for i, key := range keys {
		require.True(t, tree.Insert(key))
		require.NoError(t, Validate[uint64](tree))
		require.Equal(t, int64(i+1), tree.Len())
	}

	sorted := []uint64{5, 6, 8, 9, 15, 17, 18, 23, 25, 27, 34}
	requireSortedKeys(t, tree, sorted)
	require.Equal(t, Black, tree.Root().Color())
	for _, key := range keys {
		node := tree.Find(key)
		require.NotNil(t, node)
		require.Equal(t, key, node.Key())
	}
	require.Nil(t, tree.Find(1))
	require.Nil(t, tree.Find(100))
}

func TestRbtreeRemoveToEmpty(t *testing.T) {
	type testcase struct {
		name    string
		removes []uint64
	}
	testcases := []testcase{
		{
			name:    "ascending",
			removes: []uint64{1, 2, 3, 4, 5},
		},
		{
			name:    "descending",
			removes: []uint64{5, 4, 3, 2, 1},
		},
		{
			name:    "root first",
			removes: []uint64{2, 4, 1, 5, 3},
		},
		{
			name:    "middle out",
			removes: []uint64{3, 2, 4, 1, 5},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			tree := NewRBTree[uint64](WithRBTreeCheck[uint64]())
			for key := uint64(1); key <= 5; key++ {
				require.True(tt, tree.Insert(key))
			}
			remaining := map[uint64]struct{}{1: {}, 2: {}, 3: {}, 4: {}, 5: {}}
			for _, key := range tc.removes {
				require.True(tt, tree.Remove(key))
				delete(remaining, key)
				require.Nil(tt, tree.Find(key))
				require.Equal(tt, int64(len(remaining)), tree.Len())
				require.NoError(tt, Validate[uint64](tree))
				for k := range remaining {
					require.NotNil(tt, tree.Find(k))
				}
			}
			require.Nil(tt, tree.Root())
			require.Equal(tt, int64(0), tree.Len())
			require.False(tt, tree.Remove(1))
		})
	}
}

func TestRbtreeDuplicateInsert(t *testing.T) {
	tree := NewRBTree[uint64]()
	require.True(t, tree.Insert(10))
	require.True(t, tree.Insert(5))
	before := tree.Find(5)

	require.False(t, tree.Insert(10))
	require.False(t, tree.Insert(5))
	require.Equal(t, int64(2), tree.Len())
	// A rejected insert does not disturb the existing handles.
	require.True(t, before.IsValid())
	require.Equal(t, uint64(5), before.Key())
	require.NoError(t, Validate[uint64](tree))
}

func TestRbtreeRemoveAbsent(t *testing.T) {
	tree := NewRBTree[uint64]()
	for key := uint64(0); key < 64; key += 2 {
		tree.Insert(key)
	}

	snapshot := func() []checkData {
		res := make([]checkData, 0, tree.Len())
		tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
			res = append(res, checkData{color, key})
			return true
		})
		return res
	}
	before := snapshot()
	root := tree.Root().Key()
	for key := uint64(1); key < 64; key += 2 {
		require.False(t, tree.Remove(key))
	}
	require.False(t, tree.Remove(1000))
	require.Equal(t, before, snapshot())
	require.Equal(t, root, tree.Root().Key())
	require.Equal(t, int64(32), tree.Len())
}

func TestRbtreeInsertRemoveRoundTrip(t *testing.T) {
	tree := NewRBTree[uint64](WithRBTreeCheck[uint64]())
	keys := make([]uint64, 0, 200)
	for i := uint64(0); i < 200; i++ {
		keys = append(keys, i*3)
		tree.Insert(i * 3)
	}

	for i := 0; i < 500; i++ {
		key := randv2.Uint64N(600)
		if key%3 == 0 {
			continue
		}
		require.True(t, tree.Insert(key))
		require.True(t, tree.Remove(key))
		requireSortedKeys(t, tree, keys)
	}
	require.Equal(t, int64(len(keys)), tree.Len())
}

func TestRbtreeErase(t *testing.T) {
	tree := NewRBTree[uint64]()
	for key := uint64(1); key <= 10; key++ {
		tree.Insert(key)
	}

	leaf := tree.Find(10)
	require.NotNil(t, leaf)
	tree.Erase(leaf)
	require.False(t, leaf.IsValid())
	require.Nil(t, tree.Find(10))
	require.Equal(t, int64(9), tree.Len())
	require.NoError(t, Validate[uint64](tree))

	// Node with two children, the succ key moves into it.
	inner := tree.Root()
	key := inner.Key()
	require.NotNil(t, inner.Left())
	require.NotNil(t, inner.Right())
	succKey := key + 1
	succ := tree.Find(succKey)
	tree.Erase(inner)
	require.False(t, inner.IsValid())
	require.False(t, succ.IsValid())
	require.Nil(t, tree.Find(key))
	require.NotNil(t, tree.Find(succKey))
	require.Equal(t, int64(8), tree.Len())
	require.NoError(t, Validate[uint64](tree))

	// The invalidated handles panic.
	require.Panics(t, func() {
		tree.Erase(leaf)
	})
	require.Panics(t, func() {
		_ = inner.Key()
	})
	require.Panics(t, func() {
		tree.Erase(nil)
	})

	// A recycled slot does not revive the handle.
	tree.Insert(100)
	require.False(t, leaf.IsValid())

	other := NewRBTree[uint64]()
	other.Insert(1)
	require.Panics(t, func() {
		tree.Erase(other.Find(1))
	})
	require.Equal(t, int64(1), other.Len())
	require.Equal(t, int64(9), tree.Len())
}

func TestRbtreeForeachStop(t *testing.T) {
	tree := NewRBTree[uint64]()
	for key := uint64(0); key < 100; key++ {
		tree.Insert(key)
	}
	visited := 0
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, uint64(idx), key)
		visited++
		return idx < 9
	})
	require.Equal(t, 10, visited)
	tree.Foreach(nil)
}

func TestRbtreeCustomLess(t *testing.T) {
	type version struct {
		major, minor int
	}
	less := func(i, j version) bool {
		if i.major != j.major {
			return i.major < j.major
		}
		return i.minor < j.minor
	}
	tree := NewRBTreeWithLess[version](less, WithRBTreeCheck[version]())
	versions := []version{{1, 2}, {0, 9}, {1, 0}, {2, 1}, {1, 10}, {0, 1}}
	for _, v := range versions {
		require.True(t, tree.Insert(v))
	}
	require.False(t, tree.Insert(version{1, 0}))

	expected := []version{{0, 1}, {0, 9}, {1, 0}, {1, 2}, {1, 10}, {2, 1}}
	count := 0
	tree.Foreach(func(idx int64, color RBColor, key version) bool {
		require.Equal(t, expected[idx], key)
		count++
		return true
	})
	require.Equal(t, len(expected), count)
	require.NotNil(t, tree.Find(version{1, 10}))
	require.True(t, tree.Remove(version{1, 2}))
	require.Nil(t, tree.Find(version{1, 2}))

	require.Panics(t, func() {
		NewRBTreeWithLess[version](nil)
	})
}

func TestRbtreeDesc(t *testing.T) {
	tree := NewRBTree[int64](WithRBTreeDesc[int64](), WithRBTreeArenaCap[int64](128))
	for i := int64(-50); i < 50; i++ {
		require.True(t, tree.Insert(i))
	}
	tree.Foreach(func(idx int64, color RBColor, key int64) bool {
		require.Equal(t, 49-idx, key)
		return true
	})
	require.NoError(t, Validate[int64](tree))
	require.NotNil(t, tree.Find(-50))
	require.True(t, tree.Remove(0))
	require.NoError(t, Validate[int64](tree))
}

func TestRbtreeStringKey(t *testing.T) {
	tree := NewRBTree[string]()
	for _, key := range []string{"pear", "apple", "fig", "banana", "kiwi"} {
		require.True(t, tree.Insert(key))
	}
	requireSortedKeys(t, tree, []string{"apple", "banana", "fig", "kiwi", "pear"})
}

func TestRbtreeReleaseAndReuse(t *testing.T) {
	tree := NewRBTree[uint64]()
	handles := make([]RBNode[uint64], 0, 16)
	for key := uint64(0); key < 16; key++ {
		tree.Insert(key)
		handles = append(handles, tree.Find(key))
	}
	tree.Release()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
	for _, h := range handles {
		require.False(t, h.IsValid())
	}
	require.NoError(t, Validate[uint64](tree))

	impl := tree.(*rbTree[uint64])
	require.Equal(t, 16, impl.arena.recLen())
	for key := uint64(100); key < 120; key++ {
		require.True(t, tree.Insert(key))
	}
	require.Equal(t, 0, impl.arena.recLen())
	require.Equal(t, 21, impl.arena.slotLen())
	require.NoError(t, Validate[uint64](tree))

	// Release an empty tree.
	empty := NewRBTree[uint64]()
	empty.Release()
	require.Equal(t, int64(0), empty.Len())
}

func rbtreeRandomInsertAndRemoveSequentialNumberRunCore(t *testing.T) {
	total := uint64(1000)
	insertTotal := uint64(float64(total) * 0.8)
	removeTotal := uint64(float64(total) * 0.2)

	tree := NewRBTree[uint64]()
	for i := uint64(0); i < insertTotal; i++ {
		require.True(t, tree.Insert(i))
		require.NoError(t, RedViolationValidate[uint64](tree))
		require.NoError(t, BlackViolationValidate[uint64](tree))
	}
	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		require.True(t, tree.Insert(i))
	}
	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		if i == 92 {
			require.Equal(t, uint64(92), tree.Find(i).Key())
		}
		require.True(t, tree.Remove(i))
		require.NoError(t, RedViolationValidate[uint64](tree))
		require.NoError(t, BlackViolationValidate[uint64](tree))
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})
}

func TestRbtreeRandomInsertAndRemove_SequentialNumber(t *testing.T) {
	rbtreeRandomInsertAndRemoveSequentialNumberRunCore(t)
}

func TestRBTreeRandomInsertAndRemove_SequentialNumber_Release(t *testing.T) {
	insertTotal := uint64(100_000)

	tree := NewRBTree[uint64]()

	rand := uint64(randv2.Uint32() % 1_000)
	for i := uint64(0); i < insertTotal; i++ {
		tree.Insert(i)
		if i%1000 == rand {
			require.NoError(t, RedViolationValidate[uint64](tree))
			require.NoError(t, BlackViolationValidate[uint64](tree))
		}
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})
	tree.Release()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
}

func TestRbtreeRandomInsertAndRemove_ReverseSequentialNumber(t *testing.T) {
	total := int64(10000)
	insertTotal := int64(float64(total) * 0.8)
	removeTotal := int64(float64(total) * 0.2)

	tree := NewRBTree[int64](WithRBTreeDesc[int64]())

	rand := int64(randv2.Uint32() % 1_000)
	for i := insertTotal - 1; i >= 0; i-- {
		tree.Insert(i)
		if i%1000 == rand {
			require.NoError(t, RedViolationValidate[int64](tree))
			require.NoError(t, BlackViolationValidate[int64](tree))
		}
	}
	tree.Foreach(func(idx int64, color RBColor, key int64) bool {
		require.Equal(t, insertTotal-1-idx, key)
		return true
	})

	for i := removeTotal + insertTotal - 1; i >= insertTotal; i-- {
		tree.Insert(i)
	}
	tree.Foreach(func(idx int64, color RBColor, key int64) bool {
		require.Equal(t, removeTotal+insertTotal-1-idx, key)
		return true
	})

	for i := insertTotal; i < removeTotal+insertTotal; i++ {
		require.True(t, tree.Remove(i))
	}
	tree.Foreach(func(idx int64, color RBColor, key int64) bool {
		require.Equal(t, insertTotal-1-idx, key)
		return true
	})
	require.NoError(t, Validate[int64](tree))
}

func rbtreeRandomInsertAndRemove_RandomMonoNumberRunCore(t *testing.T, total uint64, violationCheck bool) {
	insertTotal := uint64(float64(total) * 0.8)
	removeTotal := uint64(float64(total) * 0.2)

	idGen, _ := id.MonotonicNonZeroID()
	insertElements := make([]uint64, 0, insertTotal)
	removeElements := make([]uint64, 0, removeTotal)

	ignore := uint32(0)

	for {
		num := idGen.Number()
		if ignore > 0 {
			ignore--
			continue
		}
		ignore = randv2.Uint32() % 100
		if ignore&0x1 == 0 && uint64(len(insertElements)) < insertTotal {
			insertElements = append(insertElements, num)
		} else if ignore&0x1 == 1 && uint64(len(removeElements)) < removeTotal {
			removeElements = append(removeElements, num)
		}
		if uint64(len(insertElements)) == insertTotal && uint64(len(removeElements)) == removeTotal {
			break
		}
	}

	randv2.Shuffle(len(insertElements), func(i, j int) {
		insertElements[i], insertElements[j] = insertElements[j], insertElements[i]
	})
	randv2.Shuffle(len(removeElements), func(i, j int) {
		removeElements[i], removeElements[j] = removeElements[j], removeElements[i]
	})

	tree := NewRBTree[uint64]()

	for i := uint64(0); i < insertTotal; i++ {
		require.True(t, tree.Insert(insertElements[i]))
		if violationCheck {
			require.NoError(t, Validate[uint64](tree))
		}
	}
	sort.Slice(insertElements, func(i, j int) bool {
		return insertElements[i] < insertElements[j]
	})
	requireSortedKeys(t, tree, insertElements)

	for i := uint64(0); i < removeTotal; i++ {
		require.True(t, tree.Insert(removeElements[i]))
		if violationCheck {
			require.NoError(t, Validate[uint64](tree))
		}
	}
	require.NoError(t, Validate[uint64](tree))

	for i := uint64(0); i < removeTotal; i++ {
		x := tree.Find(removeElements[i])
		require.NotNil(t, x)
		require.Equalf(t, removeElements[i], x.Key(), "value exp: %d, real: %d\n", removeElements[i], x.Key())
		require.True(t, tree.Remove(removeElements[i]))
		if violationCheck {
			require.NoError(t, Validate[uint64](tree))
		}
	}
	requireSortedKeys(t, tree, insertElements)
}

func TestRbtreeRandomInsertAndRemove_RandomMonotonicNumber(t *testing.T) {
	type testcase struct {
		name           string
		total          uint64
		violationCheck bool
	}
	testcases := []testcase{
		{
			name:  "100000",
			total: 100000,
		},
		{
			name:           "violation check 2000",
			total:          2000,
			violationCheck: true,
		},
		{
			name:           "violation check 5000",
			total:          5000,
			violationCheck: true,
		},
	}
	t.Parallel()
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rbtreeRandomInsertAndRemove_RandomMonoNumberRunCore(tt, tc.total, tc.violationCheck)
		})
	}
}

// Random keys with duplicates, cross checked against a map, removed in
// another random order.
func TestRbtreeRandomKeys_CrossCheck(t *testing.T) {
	type testcase struct {
		name       string
		total      int
		maxKey     int
		checkEvery int
	}
	testcases := []testcase{
		{
			name:       "check every step 3000",
			total:      3000,
			maxKey:     1_000_000,
			checkEvery: 1,
		},
		{
			name:       "dense duplicates 3000",
			total:      3000,
			maxKey:     500,
			checkEvery: 1,
		},
		{
			name:       "sampled check 100000",
			total:      100_000,
			maxKey:     1_000_000,
			checkEvery: 997,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			tree := NewRBTree[int]()
			ref := make(map[int]struct{}, tc.total)
			for i := 0; i < tc.total; i++ {
				key := randv2.IntN(tc.maxKey) + 1
				_, exists := ref[key]
				require.Equal(tt, !exists, tree.Insert(key))
				ref[key] = struct{}{}
				require.Equal(tt, int64(len(ref)), tree.Len())
				if i%tc.checkEvery == 0 {
					require.NoError(tt, Validate[int](tree))
				}
			}
			require.NoError(tt, Validate[int](tree))

			keys := make([]int, 0, len(ref))
			for key := range ref {
				keys = append(keys, key)
			}
			sort.Ints(keys)
			requireSortedKeys(tt, tree, keys)

			for i := 0; i < 1000; i++ {
				probe := randv2.IntN(tc.maxKey+2) - 1
				_, exists := ref[probe]
				require.Equal(tt, exists, tree.Find(probe) != nil)
			}

			randv2.Shuffle(len(keys), func(i, j int) {
				keys[i], keys[j] = keys[j], keys[i]
			})
			for i, key := range keys {
				require.True(tt, tree.Remove(key))
				require.Nil(tt, tree.Find(key))
				if i%tc.checkEvery == 0 {
					require.NoError(tt, Validate[int](tree))
				}
			}
			require.Equal(tt, int64(0), tree.Len())
			require.Nil(tt, tree.Root())
			require.NoError(tt, Validate[int](tree))
		})
	}
}

func BenchmarkRBTree_Random(b *testing.B) {
	b.StopTimer()
	tree := NewRBTree[int]()

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(rngArr[i])
	}
}

func BenchmarkRBTree_Serial(b *testing.B) {
	b.StopTimer()
	tree := NewRBTree[int](WithRBTreeArenaCap[int](uint32(b.N)))

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(i)
	}
}

func BenchmarkRBTree_Find(b *testing.B) {
	b.StopTimer()
	const size = 1 << 16
	tree := NewRBTree[int](WithRBTreeArenaCap[int](size))
	for i := 0; i < size; i++ {
		tree.Insert(i)
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		_ = tree.Find(i & (size - 1))
	}
}
