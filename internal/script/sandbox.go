package script

import (
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// safeModules may be loaded through require.
var safeModules = map[string]bool{
	"string":   true,
	"table":    true,
	"math":     true,
	moduleName: true,
}

// newSandboxedState creates a Lua state with only safe libraries, no way
// to load code from disk, and print redirected to out.
func newSandboxedState(out io.Writer) *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // We'll open selectively
	})

	// Note: io, os, debug and channel are intentionally NOT opened.
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	installPrint(L, out)
	installSafeRequire(L)
	return L
}

// installPrint replaces print with a version that writes to out.
func installPrint(L *lua.LState, out io.Writer) {
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, top)
		for i := 1; i <= top; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		if _, err := io.WriteString(out, strings.Join(parts, "\t")+"\n"); err != nil {
			L.RaiseError("print: %v", err)
		}
		return 0
	}))
}

// installSafeRequire clears the module search paths and replaces require
// with a whitelist of built-in and preloaded modules.
func installSafeRequire(L *lua.LState) {
	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		L.SetField(pkg, "path", lua.LString(""))
		L.SetField(pkg, "cpath", lua.LString(""))
	}

	originalRequire := L.GetGlobal("require")
	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)
		if !safeModules[modName] {
			// Note: L.RaiseError does a longjmp, so code after it is unreachable.
			L.RaiseError("module %q is not available", modName)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}
