package config

import (
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/youngZwiebelandtheGemuseBeat/kaali_tilli/internal/game"
	"github.com/youngZwiebelandtheGemuseBeat/kaali_tilli/internal/room"
)

// Rules are the table rules a deployment can tune from a Lua script.
type Rules struct {
	BaseBid          int
	MaxBid           int
	MinPlayers       int
	MaxPlayers       int
	TrickDelay       time.Duration
	FallbackNames    []string
	AllowSelfPartner bool
	DisconnectPolicy string
}

// DefaultRules mirrors room.DefaultOptions, the one place defaults are set.
func DefaultRules() Rules {
	o := room.DefaultOptions()
	return Rules{
		BaseBid:          o.Rules.BaseBid,
		MaxBid:           o.Rules.MaxBid,
		MinPlayers:       o.MinPlayers,
		MaxPlayers:       o.MaxPlayers,
		TrickDelay:       o.TrickDelay,
		FallbackNames:    o.FallbackNames,
		AllowSelfPartner: o.Rules.AllowSelfPartner,
		DisconnectPolicy: string(o.DisconnectPolicy),
	}
}

// RoomOptions turns the rules into the settings every room is created with.
func (r Rules) RoomOptions() room.Options {
	o := room.DefaultOptions()
	o.Rules = game.Rules{
		BaseBid:          r.BaseBid,
		MaxBid:           r.MaxBid,
		AllowSelfPartner: r.AllowSelfPartner,
	}
	o.MinPlayers = r.MinPlayers
	o.MaxPlayers = r.MaxPlayers
	o.TrickDelay = r.TrickDelay
	o.FallbackNames = r.FallbackNames
	o.DisconnectPolicy = room.DisconnectPolicy(r.DisconnectPolicy)
	return o
}

var errRules = errors.New("invalid rules")

// LoadRulesFile runs the script at path and reads its globals over the defaults.
func LoadRulesFile(path string) (Rules, error) {
	L := newState()
	defer L.Close()
	if err := L.DoFile(path); err != nil {
		return Rules{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	r, err := readRules(L)
	if err != nil {
		return Rules{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return r, nil
}

// ParseRules is LoadRulesFile for an in-memory script.
func ParseRules(src string) (Rules, error) {
	L := newState()
	defer L.Close()
	if err := L.DoString(src); err != nil {
		return Rules{}, fmt.Errorf("rules script: %w", err)
	}
	return readRules(L)
}

// newState leaves out the os and io libraries.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.TabLibName, lua.OpenTable},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	return L
}

func readRules(L *lua.LState) (Rules, error) {
	r := DefaultRules()
	delayMS := int(r.TrickDelay / time.Millisecond)
	steps := []func() error{
		func() error { return intGlobal(L, "base_bid", &r.BaseBid) },
		func() error { return intGlobal(L, "max_bid", &r.MaxBid) },
		func() error { return intGlobal(L, "min_players", &r.MinPlayers) },
		func() error { return intGlobal(L, "max_players", &r.MaxPlayers) },
		func() error { return boolGlobal(L, "allow_self_partner", &r.AllowSelfPartner) },
		func() error { return stringGlobal(L, "disconnect_policy", &r.DisconnectPolicy) },
		func() error { return stringsGlobal(L, "fallback_names", &r.FallbackNames) },
		func() error {
			if err := intGlobal(L, "trick_delay_ms", &delayMS); err != nil {
				return err
			}
			r.TrickDelay = time.Duration(delayMS) * time.Millisecond
			return nil
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Rules{}, err
		}
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r Rules) Validate() error {
	switch {
	case r.BaseBid <= 0 || r.BaseBid >= r.MaxBid:
		return fmt.Errorf("%w: base_bid %d must be positive and below max_bid %d", errRules, r.BaseBid, r.MaxBid)
	case r.MinPlayers < 5 || r.MaxPlayers > 7 || r.MinPlayers > r.MaxPlayers:
		return fmt.Errorf("%w: players %d..%d must lie within 5..7", errRules, r.MinPlayers, r.MaxPlayers)
	case r.TrickDelay < 0:
		return fmt.Errorf("%w: trick_delay_ms is negative", errRules)
	case r.DisconnectPolicy != string(room.PolicyKeep) && r.DisconnectPolicy != string(room.PolicyAbandon):
		return fmt.Errorf("%w: disconnect_policy %q", errRules, r.DisconnectPolicy)
	}
	return nil
}

func intGlobal(L *lua.LState, name string, dst *int) error {
	switch v := L.GetGlobal(name).(type) {
	case *lua.LNilType:
		return nil
	case lua.LNumber:
		if float64(v) != float64(int(v)) {
			return fmt.Errorf("%w: %s must be an integer, got %v", errRules, name, v)
		}
		*dst = int(v)
		return nil
	default:
		return fmt.Errorf("%w: %s must be a number, got %s", errRules, name, v.Type())
	}
}

func boolGlobal(L *lua.LState, name string, dst *bool) error {
	switch v := L.GetGlobal(name).(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		*dst = bool(v)
		return nil
	default:
		return fmt.Errorf("%w: %s must be a boolean, got %s", errRules, name, v.Type())
	}
}

func stringGlobal(L *lua.LState, name string, dst *string) error {
	switch v := L.GetGlobal(name).(type) {
	case *lua.LNilType:
		return nil
	case lua.LString:
		*dst = string(v)
		return nil
	default:
		return fmt.Errorf("%w: %s must be a string, got %s", errRules, name, v.Type())
	}
}

func stringsGlobal(L *lua.LState, name string, dst *[]string) error {
	switch v := L.GetGlobal(name).(type) {
	case *lua.LNilType:
		return nil
	case *lua.LTable:
		var out []string
		for i := 1; i <= v.Len(); i++ {
			s, ok := v.RawGetInt(i).(lua.LString)
			if !ok {
				return fmt.Errorf("%w: %s[%d] must be a string", errRules, name, i)
			}
			out = append(out, string(s))
		}
		*dst = out
		return nil
	default:
		return fmt.Errorf("%w: %s must be a list of strings, got %s", errRules, name, v.Type())
	}
}
