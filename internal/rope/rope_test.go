package rope

import (
	"bytes"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustFromString builds a checked rope on a private pool unless the options
// supply one.
func mustFromString(t testing.TB, s string, opts ...Option) *Rope {
	t.Helper()
	base := []Option{WithPool(NewNodePool(0)), WithInvariantChecks(true)}
	r, err := FromString(s, append(base, opts...)...)
	require.NoError(t, err)
	return r
}

func leafTexts(r *Rope) []string {
	var out []string
	it := r.Leaves()
	for it.Next() {
		out = append(out, it.Text())
	}
	return out
}

func TestNew(t *testing.T) {
	p := NewNodePool(0)
	r, err := New(WithPool(p))
	require.NoError(t, err)

	assert.Equal(t, 0, r.Len())
	assert.True(t, r.IsEmpty())
	assert.Equal(t, "", r.String())
	assert.NoError(t, r.Validate())
	assert.Equal(t, 2, p.Live(), "root plus one empty leaf")

	st := r.Stats()
	assert.Equal(t, 1, st.Leaves)
	assert.Equal(t, 1, st.EmptyLeaves)
	assert.Equal(t, 0, st.Depth)
}

func TestFromString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		nodeSize int
		leaves   int
		depth    int
	}{
		{"empty", "", 4, 1, 0},
		{"single byte", "a", 4, 1, 0},
		{"exact leaf", "abcd", 4, 1, 0},
		{"two leaves", "abcde", 4, 2, 1},
		{"five leaves", "abcdefghij", 2, 5, 3},
		{"power of two", "abcdefgh", 1, 8, 3},
		{"long", strings.Repeat("abcdefghij", 100), 64, 16, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustFromString(t, tt.input, WithNodeSize(tt.nodeSize))
			assert.Equal(t, tt.input, r.String())
			assert.Equal(t, len(tt.input), r.Len())

			st := r.Stats()
			assert.Equal(t, tt.leaves, st.Leaves)
			assert.Equal(t, tt.depth, st.Depth)
		})
	}
}

func TestScenario(t *testing.T) {
	r, err := New(WithPool(NewNodePool(0)), WithInvariantChecks(true))
	require.NoError(t, err)

	require.NoError(t, r.Insert(1, "Building sturdy"))
	assert.Equal(t, "Building sturdy", r.String())
	assert.Equal(t, 15, r.Len())

	require.NoError(t, r.Insert(10, "rope "))
	assert.Equal(t, "Building rope sturdy", r.String())
	assert.Equal(t, 20, r.Len())

	require.NoError(t, r.Delete(3, 5))
	assert.Equal(t, "Buing rope sturdy", r.String())
	assert.Equal(t, 17, r.Len())
}

// TestDriverSequence replays the classic demonstration: edits on one rope,
// a rebuilt copy taken midway, and further edits on both.
func TestDriverSequence(t *testing.T) {
	p := NewNodePool(0)
	r, err := New(WithPool(p), WithInvariantChecks(true))
	require.NoError(t, err)

	require.NoError(t, r.Insert(1, "Building sturdy"))
	require.NoError(t, r.Insert(10, "rope "))
	require.NoError(t, r.Delete(3, 5))

	collect := func(r *Rope, i, j int) string {
		t.Helper()
		s, err := r.Collect(i, j)
		require.NoError(t, err)
		return s
	}

	assert.Equal(t, "Buing rope sturdy", collect(r, 1, 17))
	assert.Equal(t, "e s", collect(r, 10, 12))

	r1, err := r.Rebuild(3)
	require.NoError(t, err)
	assert.Equal(t, "Buing rope sturdy", collect(r1, 1, 17))

	require.NoError(t, r.Insert(1, "Xx"))
	require.NoError(t, r.Insert(20, " Yyy"))
	assert.Equal(t, "XxBuing rope sturdy ", collect(r, 1, 20))
	assert.Equal(t, "XxBuing rope sturdy Yyy", collect(r, 1, 23))

	require.NoError(t, r.Delete(1, 3))
	assert.Equal(t, "uing rope sturdy Yyy", collect(r, 1, 20))

	require.NoError(t, r.Delete(19, 20))
	assert.Equal(t, "uing rope sturdy Y", collect(r, 1, 18))

	require.NoError(t, r.Delete(1, 18))
	assert.True(t, r.IsEmpty())

	// The rebuilt copy never saw the edits above.
	assert.Equal(t, "Buing rope sturdy", collect(r1, 1, 17))
	require.NoError(t, r1.Insert(5, "Bye now"))
	assert.Equal(t, "BuinBye nowg rope sturdy", collect(r1, 1, 24))
	require.NoError(t, r1.Delete(2, 3))
	assert.Equal(t, "BnBye nowg rope sturdy", collect(r1, 1, 22))

	r.Release()
	r1.Release()
	assert.Equal(t, 0, p.Live())
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		index    int
		text     string
		expected string
	}{
		{"prepend", "world", 1, "hello ", "hello world"},
		{"append", "hello", 6, " world", "hello world"},
		{"middle", "helloworld", 6, " ", "hello world"},
		{"into empty", "", 1, "hello", "hello"},
		{"second byte", "abc", 2, "X", "aXbc"},
		{"leaf boundary", "abcdefgh", 5, "-", "abcd-efgh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustFromString(t, tt.initial, WithNodeSize(4))
			require.NoError(t, r.Insert(tt.index, tt.text))
			assert.Equal(t, tt.expected, r.String())
			assert.Equal(t, len(tt.expected), r.Len())
		})
	}
}

func TestInsertErrors(t *testing.T) {
	r := mustFromString(t, "hello")

	err := r.Insert(r.Len()+2, "x")
	require.ErrorIs(t, err, ErrParameter)
	assert.Equal(t, KindParameter, KindOf(err))

	require.ErrorIs(t, r.Insert(1, ""), ErrParameter)
	require.ErrorIs(t, r.Insert(0, "x"), ErrParameter)
	assert.Equal(t, "hello", r.String())
}

func TestInsertFastPathDoesNotSplit(t *testing.T) {
	p := NewNodePool(0)
	r := mustFromString(t, "hello world", WithPool(p), WithNodeSize(4))
	before := r.Stats()
	require.Equal(t, []string{"hell", "o wo", "rld"}, leafTexts(r))

	// One leaf and two internal nodes are all a fast-path insert may take.
	p.SetLimit(p.Live() + 3)
	require.NoError(t, r.Insert(1, ">> "))
	p.SetLimit(p.Live() + 3)
	require.NoError(t, r.Insert(r.Len()+1, " <<"))

	p.SetLimit(p.Live() + 3)
	err := r.Insert(5, "x")
	require.ErrorIs(t, err, ErrAllocation, "a middle insert needs more than the fast path")
	p.SetLimit(0)

	assert.Equal(t, []string{">> ", "hell", "o wo", "rld", " <<"}, leafTexts(r))
	st := r.Stats()
	assert.Equal(t, before.Leaves+2, st.Leaves)
	assert.Equal(t, 0, st.EmptyLeaves)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		i, j     int
		expected string
	}{
		{"prefix", "hello world", 1, 6, "world"},
		{"suffix", "hello world", 6, 11, "hello"},
		{"middle", "hello world", 3, 9, "held"},
		{"single byte", "hello", 3, 3, "helo"},
		{"everything", "hello world", 1, 11, ""},
		{"only byte", "x", 1, 1, ""},
	}

	for _, tt := range tests {
		for _, size := range []int{1, 3, 64} {
			t.Run(tt.name, func(t *testing.T) {
				r := mustFromString(t, tt.initial, WithNodeSize(size))
				require.NoError(t, r.Delete(tt.i, tt.j))
				assert.Equal(t, tt.expected, r.String())
				assert.Equal(t, len(tt.expected), r.Len())
			})
		}
	}
}

func TestDeleteAllEmpties(t *testing.T) {
	r := mustFromString(t, "some text", WithNodeSize(2))
	require.NoError(t, r.Delete(1, r.Len()))
	assert.True(t, r.IsEmpty())
	assert.NoError(t, r.Validate())

	require.NoError(t, r.Insert(1, "again"))
	assert.Equal(t, "again", r.String())
}

func TestDeleteErrors(t *testing.T) {
	empty, err := New(WithPool(NewNodePool(0)))
	require.NoError(t, err)
	require.ErrorIs(t, empty.Delete(1, 1), ErrParameter)

	r := mustFromString(t, "hello")
	require.ErrorIs(t, r.Delete(0, 2), ErrParameter)
	require.ErrorIs(t, r.Delete(2, 6), ErrParameter)
	require.ErrorIs(t, r.Delete(3, 2), ErrParameter)
	assert.Equal(t, "hello", r.String())
}

func TestKthChar(t *testing.T) {
	const s = "the quick brown fox"
	r := mustFromString(t, s, WithNodeSize(3))
	for k := 0; k < len(s); k++ {
		c, err := r.KthChar(k)
		require.NoError(t, err)
		assert.Equal(t, s[k], c, "index %d", k)
	}

	_, err := r.KthChar(-1)
	require.ErrorIs(t, err, ErrParameter)
	assert.NotErrorIs(t, err, ErrIndex)

	_, err = r.KthChar(len(s))
	require.ErrorIs(t, err, ErrIndex)
	assert.ErrorIs(t, err, ErrParameter)
	assert.Equal(t, KindIndex, KindOf(err))
}

func TestLocate(t *testing.T) {
	r := mustFromString(t, "abcdefgh", WithNodeSize(4))

	loc, err := r.Locate(5)
	require.NoError(t, err)
	assert.Equal(t, "efgh", loc.Leaf.Text())
	assert.Equal(t, 1, loc.Offset)
	assert.True(t, loc.Leaf.IsLeaf())

	_, err = r.Locate(8)
	require.ErrorIs(t, err, ErrIndex)
	_, err = r.Locate(-1)
	require.ErrorIs(t, err, ErrParameter)
}

func TestCollect(t *testing.T) {
	const s = "Buing rope sturdy"
	tests := []struct {
		i, j     int
		expected string
	}{
		{1, 17, s},
		{10, 12, "e s"},
		{5, 5, "g"},
		{17, 17, "y"},
		{1, 1, "B"},
		{3, 14, "ing rope stu"},
	}

	for _, size := range []int{1, 3, 64} {
		r := mustFromString(t, s, WithNodeSize(size))
		for _, tt := range tests {
			got, err := r.Collect(tt.i, tt.j)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got, "size %d range [%d, %d]", size, tt.i, tt.j)
		}
	}

	r := mustFromString(t, s)
	for _, rng := range [][2]int{{0, 3}, {1, 18}, {5, 4}} {
		_, err := r.Collect(rng[0], rng[1])
		require.ErrorIs(t, err, ErrParameter)
	}
}

func TestCollectShortfall(t *testing.T) {
	r := mustFromString(t, "abcdefgh", WithNodeSize(4))

	// Truncate the second leaf behind the tree's back.
	loc, err := r.Locate(4)
	require.NoError(t, err)
	loc.Leaf.text = loc.Leaf.text[:2]

	_, err = r.Collect(1, 8)
	require.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, r.Validate(), ErrInternal)
}

func TestSplit(t *testing.T) {
	const s = "abcdefghijklmnop"
	for _, size := range []int{1, 3, 4, 64} {
		for pos := 0; pos < len(s); pos++ {
			r := mustFromString(t, s, WithNodeSize(size))
			tail, err := r.Split(pos)
			require.NoError(t, err)
			assert.Equal(t, s[:pos], r.String(), "size %d pos %d", size, pos)
			assert.Equal(t, s[pos:], tail.String(), "size %d pos %d", size, pos)
			assert.NoError(t, tail.Validate())
		}
	}
}

func TestSplitErrors(t *testing.T) {
	r := mustFromString(t, "abc")
	_, err := r.Split(-1)
	require.ErrorIs(t, err, ErrParameter)
	_, err = r.Split(3)
	require.ErrorIs(t, err, ErrParameter)

	empty := mustFromString(t, "")
	_, err = empty.Split(0)
	require.ErrorIs(t, err, ErrParameter)
}

func TestConcat(t *testing.T) {
	p := NewNodePool(0)
	left := mustFromString(t, "hello ", WithPool(p), WithNodeSize(2))
	right := mustFromString(t, "world", WithPool(p), WithNodeSize(2))

	out, err := Concat(left, right, left.Len())
	require.NoError(t, err)
	assert.Equal(t, "hello world", out.String())
	assert.True(t, left.Consumed())
	assert.True(t, right.Consumed())

	require.ErrorIs(t, left.Insert(1, "x"), ErrParameter)
	_, err = right.Collect(1, 1)
	require.ErrorIs(t, err, ErrParameter)

	out.Release()
	assert.Equal(t, 0, p.Live())
}

func TestConcatEmptyOperand(t *testing.T) {
	p := NewNodePool(0)

	left := mustFromString(t, "abc", WithPool(p))
	empty := mustFromString(t, "", WithPool(p))
	out, err := Concat(left, empty, 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", out.String())
	assert.True(t, empty.Consumed())

	empty = mustFromString(t, "", WithPool(p))
	out, err = Concat(empty, out, 0)
	require.NoError(t, err)
	assert.Equal(t, "abc", out.String())
	assert.NoError(t, out.Validate())

	out.Release()
	assert.Equal(t, 0, p.Live())
}

func TestConcatPreconditions(t *testing.T) {
	p := NewNodePool(0)
	a := mustFromString(t, "abc", WithPool(p))
	b := mustFromString(t, "def", WithPool(p))
	other := mustFromString(t, "xyz")

	tests := []struct {
		name        string
		left, right *Rope
		leftLen     int
	}{
		{"nil left", nil, b, 0},
		{"nil right", a, nil, 3},
		{"self", a, a, 3},
		{"length hint", a, b, 2},
		{"different pools", a, other, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Concat(tt.left, tt.right, tt.leftLen)
			require.ErrorIs(t, err, ErrParameter)
		})
	}
	assert.Equal(t, "abc", a.String())
	assert.Equal(t, "def", b.String())
	assert.False(t, a.Consumed())
}

func TestRebuild(t *testing.T) {
	p := NewNodePool(0)
	r := mustFromString(t, "Buing rope sturdy", WithPool(p))
	shape := r.Stats()

	tests := []struct {
		nodeSize int
		leaves   int
		depth    int
	}{
		{1, 17, 5},
		{3, 6, 3},
		{4, 5, 3},
		{8, 3, 2},
		{17, 1, 0},
		{100, 1, 0},
	}

	for _, tt := range tests {
		out, err := r.Rebuild(tt.nodeSize)
		require.NoError(t, err)
		assert.Equal(t, r.String(), out.String())

		st := out.Stats()
		assert.Equal(t, tt.leaves, st.Leaves, "node size %d", tt.nodeSize)
		assert.Equal(t, tt.depth, st.Depth, "node size %d", tt.nodeSize)
		for _, text := range leafTexts(out)[:st.Leaves-1] {
			assert.Len(t, text, tt.nodeSize)
		}
		out.Release()
	}

	assert.Equal(t, shape, r.Stats(), "original must be untouched")
}

func TestRebuildEmptyReturnsReceiver(t *testing.T) {
	r := mustFromString(t, "")
	out, err := r.Rebuild(4)
	require.NoError(t, err)
	assert.Same(t, r, out)

	_, err = r.Rebuild(0)
	require.ErrorIs(t, err, ErrParameter)
}

func TestReleaseConsumes(t *testing.T) {
	p := NewNodePool(0)
	r := mustFromString(t, "abcdefgh", WithPool(p), WithNodeSize(2))
	require.NotZero(t, p.Live())

	r.Release()
	assert.Equal(t, 0, p.Live())
	assert.True(t, r.Consumed())
	assert.Equal(t, 0, r.Len())
	r.Release()

	_, err := r.KthChar(0)
	require.ErrorIs(t, err, ErrParameter)
	require.ErrorIs(t, r.Delete(1, 1), ErrParameter)
	_, err = r.Split(0)
	require.ErrorIs(t, err, ErrParameter)
	_, err = r.Rebuild(2)
	require.ErrorIs(t, err, ErrParameter)
	require.ErrorIs(t, r.Validate(), ErrParameter)
}

func TestEqualAndWriteTo(t *testing.T) {
	a := mustFromString(t, "the quick brown fox", WithNodeSize(2))
	b := mustFromString(t, "the quick brown fox", WithNodeSize(7))
	c := mustFromString(t, "the quick brown fix", WithNodeSize(7))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))

	var none *Rope
	assert.False(t, none.Equal(a))

	var buf bytes.Buffer
	n, err := a.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(a.Len()), n)
	assert.Equal(t, "the quick brown fox", buf.String())
}

func TestLeafIterator(t *testing.T) {
	r := mustFromString(t, "abcdefghij", WithNodeSize(4))
	it := r.Leaves()

	var offsets []int
	var texts []string
	for it.Next() {
		offsets = append(offsets, it.Offset())
		texts = append(texts, string(it.Bytes()))
	}
	assert.Equal(t, []int{0, 4, 8}, offsets)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, texts)
	assert.False(t, it.Next())
}

func TestDegenerateTree(t *testing.T) {
	const n = 2000
	r := mustFromString(t, "", WithInvariantChecks(false))
	for i := 0; i < n; i++ {
		require.NoError(t, r.Insert(r.Len()+1, "x"))
	}
	require.Equal(t, n-1, r.Stats().Depth)

	s, err := r.Collect(1, n)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", n), s)
	assert.NoError(t, r.Validate())

	tail, err := r.Split(n / 2)
	require.NoError(t, err)
	assert.Equal(t, n/2, tail.Len())

	balanced, err := tail.Rebuild(64)
	require.NoError(t, err)
	assert.Equal(t, 4, balanced.Stats().Depth)
	r.Release()
	tail.Release()
	balanced.Release()
}

func TestErrorMessage(t *testing.T) {
	r := mustFromString(t, "abc")
	err := r.Insert(9, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rope insert")
	assert.Contains(t, err.Error(), "invalid parameter")
}

func clampIndex(i, n int) int {
	i %= n
	if i < 0 {
		i = -i
	}
	return i
}

func TestCollectLengthProperty(t *testing.T) {
	f := func(s string, a, b int) bool {
		if len(s) == 0 {
			return true
		}
		i, j := clampIndex(a, len(s))+1, clampIndex(b, len(s))+1
		if i > j {
			i, j = j, i
		}
		r := mustFromString(t, s, WithNodeSize(3))
		got, err := r.Collect(i, j)
		return err == nil && len(got) == j-i+1 && got == s[i-1:j]
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestSplitConcatProperty(t *testing.T) {
	f := func(s string, offset int) bool {
		if len(s) == 0 {
			return true
		}
		pos := clampIndex(offset, len(s))
		r := mustFromString(t, s, WithNodeSize(2))
		tail, err := r.Split(pos)
		if err != nil {
			return false
		}
		out, err := Concat(r, tail, pos)
		return err == nil && out.String() == s && out.Validate() == nil
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestInsertDeleteProperty(t *testing.T) {
	f := func(s string, offset int, ins string) bool {
		if len(ins) == 0 {
			return true
		}
		i := clampIndex(offset, len(s)+1) + 1
		r := mustFromString(t, s, WithNodeSize(3))
		if err := r.Insert(i, ins); err != nil {
			return false
		}
		if err := r.Delete(i, i+len(ins)-1); err != nil {
			return false
		}
		return r.String() == s
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestRebuildProperty(t *testing.T) {
	f := func(s string, size uint8) bool {
		nodeSize := int(size%16) + 1
		r := mustFromString(t, s, WithNodeSize(5))
		out, err := r.Rebuild(nodeSize)
		if err != nil {
			return false
		}
		return out.String() == r.String() && out.Validate() == nil
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestKthCharProperty(t *testing.T) {
	f := func(s string, offset int) bool {
		if len(s) == 0 {
			return true
		}
		k := clampIndex(offset, len(s))
		r := mustFromString(t, s, WithNodeSize(2))
		c, err := r.KthChar(k)
		if err != nil {
			return false
		}
		got, err := r.Collect(k+1, k+1)
		return err == nil && got[0] == c
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
