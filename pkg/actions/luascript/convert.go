package luascript

import (
	lua "github.com/yuin/gopher-lua"
)

// goToLua converts a JSON-shaped Go value into its Lua representation.
func goToLua(state *lua.LState, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case []any:
		table := state.NewTable()
		for _, item := range v {
			table.Append(goToLua(state, item))
		}

		return table
	case map[string]any:
		table := state.NewTable()
		for key, item := range v {
			state.SetField(table, key, goToLua(state, item))
		}

		return table
	default:
		return lua.LNil
	}
}

// luaToGo converts a Lua value back into a JSON-shaped Go value. Tables with
// a contiguous integer sequence become slices, everything else becomes a map.
func luaToGo(value lua.LValue) any {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return float64(v)
	case *lua.LTable:
		maxN := v.MaxN()
		if maxN > 0 {
			slice := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				slice = append(slice, luaToGo(v.RawGetInt(i)))
			}

			return slice
		}

		result := make(map[string]any)
		v.ForEach(func(key, item lua.LValue) {
			result[key.String()] = luaToGo(item)
		})

		if len(result) == 0 {
			return []any{}
		}

		return result
	default:
		return nil
	}
}
