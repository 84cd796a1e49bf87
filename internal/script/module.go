package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/ropekit/internal/rope"
)

const (
	moduleName   = "rope"
	ropeTypeName = "rope.Rope"
)

// ropeModule implements the rope API module. Every rope it creates shares
// one node pool and one set of options.
type ropeModule struct {
	opts []rope.Option
}

// Register installs the module as the global "rope" and makes it
// available to require.
func (m *ropeModule) Register(L *lua.LState) {
	mt := L.NewTypeMetatable(ropeTypeName)
	methods := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"len":      m.length,
		"is_empty": m.isEmpty,
		"kth":      m.kth,
		"insert":   m.insert,
		"delete":   m.delete,
		"collect":  m.collect,
		"split":    m.split,
		"rebuild":  m.rebuild,
		"string":   m.str,
		"leaves":   m.leaves,
		"stats":    m.stats,
		"validate": m.validate,
		"release":  m.release,
		"consumed": m.consumed,
	})
	L.SetField(mt, "__index", methods)
	L.SetField(mt, "__tostring", L.NewFunction(m.str))
	L.SetField(mt, "__len", L.NewFunction(m.length))
	L.SetField(mt, "__eq", L.NewFunction(m.equal))

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"new":    m.newRope,
		"concat": m.concat,
	})
	L.SetGlobal(moduleName, mod)
	L.PreloadModule(moduleName, func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})
}

// push wraps r in a userdata carrying the rope metatable.
func (m *ropeModule) push(L *lua.LState, r *rope.Rope) {
	ud := L.NewUserData()
	ud.Value = r
	L.SetMetatable(ud, L.GetTypeMetatable(ropeTypeName))
	L.Push(ud)
}

// check returns the rope at stack position n or raises an argument error.
func (m *ropeModule) check(L *lua.LState, n int) *rope.Rope {
	ud := L.CheckUserData(n)
	if r, ok := ud.Value.(*rope.Rope); ok {
		return r
	}
	L.ArgError(n, "rope expected")
	return nil
}

// fail raises err as a Lua error tagged with the operation name.
func fail(L *lua.LState, op string, err error) int {
	L.RaiseError("%s: %v", op, err)
	return 0
}

// rope.new([text]) -> rope
func (m *ropeModule) newRope(L *lua.LState) int {
	text := L.OptString(1, "")
	r, err := rope.FromString(text, m.opts...)
	if err != nil {
		return fail(L, "new", err)
	}
	m.push(L, r)
	return 1
}

// rope.concat(a, b [, left_len]) -> rope
// Consumes a and b.
func (m *ropeModule) concat(L *lua.LState) int {
	a := m.check(L, 1)
	b := m.check(L, 2)
	leftLen := L.OptInt(3, a.Len())

	r, err := rope.Concat(a, b, leftLen)
	if err != nil {
		return fail(L, "concat", err)
	}
	m.push(L, r)
	return 1
}

// r:len() -> number
func (m *ropeModule) length(L *lua.LState) int {
	L.Push(lua.LNumber(m.check(L, 1).Len()))
	return 1
}

// r:is_empty() -> boolean
func (m *ropeModule) isEmpty(L *lua.LState) int {
	L.Push(lua.LBool(m.check(L, 1).IsEmpty()))
	return 1
}

// r:kth(k) -> string
// k is 0-based; the result is a one-byte string.
func (m *ropeModule) kth(L *lua.LState) int {
	r := m.check(L, 1)
	c, err := r.KthChar(L.CheckInt(2))
	if err != nil {
		return fail(L, "kth", err)
	}
	L.Push(lua.LString([]byte{c}))
	return 1
}

// r:insert(i, text) -> r
func (m *ropeModule) insert(L *lua.LState) int {
	r := m.check(L, 1)
	if err := r.Insert(L.CheckInt(2), L.CheckString(3)); err != nil {
		return fail(L, "insert", err)
	}
	L.Push(L.Get(1))
	return 1
}

// r:delete(i, j) -> r
func (m *ropeModule) delete(L *lua.LState) int {
	r := m.check(L, 1)
	if err := r.Delete(L.CheckInt(2), L.CheckInt(3)); err != nil {
		return fail(L, "delete", err)
	}
	L.Push(L.Get(1))
	return 1
}

// r:collect(i, j) -> string
func (m *ropeModule) collect(L *lua.LState) int {
	r := m.check(L, 1)
	s, err := r.Collect(L.CheckInt(2), L.CheckInt(3))
	if err != nil {
		return fail(L, "collect", err)
	}
	L.Push(lua.LString(s))
	return 1
}

// r:split(pos) -> rope
// r keeps [0, pos); the result holds the rest.
func (m *ropeModule) split(L *lua.LState) int {
	r := m.check(L, 1)
	tail, err := r.Split(L.CheckInt(2))
	if err != nil {
		return fail(L, "split", err)
	}
	m.push(L, tail)
	return 1
}

// r:rebuild(node_size) -> rope
// An empty rope returns itself.
func (m *ropeModule) rebuild(L *lua.LState) int {
	r := m.check(L, 1)
	out, err := r.Rebuild(L.CheckInt(2))
	if err != nil {
		return fail(L, "rebuild", err)
	}
	if out == r {
		L.Push(L.Get(1))
		return 1
	}
	m.push(L, out)
	return 1
}

// r:string() -> string
func (m *ropeModule) str(L *lua.LState) int {
	L.Push(lua.LString(m.check(L, 1).String()))
	return 1
}

// r:leaves() -> {string...}
func (m *ropeModule) leaves(L *lua.LState) int {
	r := m.check(L, 1)
	tbl := L.NewTable()
	it := r.Leaves()
	for it.Next() {
		tbl.Append(lua.LString(it.Text()))
	}
	L.Push(tbl)
	return 1
}

// r:stats() -> {len, depth, leaves, empty_leaves, internal}
func (m *ropeModule) stats(L *lua.LState) int {
	st := m.check(L, 1).Stats()
	tbl := L.NewTable()
	L.SetField(tbl, "len", lua.LNumber(st.Len))
	L.SetField(tbl, "depth", lua.LNumber(st.Depth))
	L.SetField(tbl, "leaves", lua.LNumber(st.Leaves))
	L.SetField(tbl, "empty_leaves", lua.LNumber(st.EmptyLeaves))
	L.SetField(tbl, "internal", lua.LNumber(st.Internal))
	L.Push(tbl)
	return 1
}

// r:validate() -> true
func (m *ropeModule) validate(L *lua.LState) int {
	if err := m.check(L, 1).Validate(); err != nil {
		return fail(L, "validate", err)
	}
	L.Push(lua.LTrue)
	return 1
}

// r:release()
func (m *ropeModule) release(L *lua.LState) int {
	m.check(L, 1).Release()
	return 0
}

// r:consumed() -> boolean
func (m *ropeModule) consumed(L *lua.LState) int {
	L.Push(lua.LBool(m.check(L, 1).Consumed()))
	return 1
}

// a == b compares content.
func (m *ropeModule) equal(L *lua.LState) int {
	L.Push(lua.LBool(m.check(L, 1).Equal(m.check(L, 2))))
	return 1
}
