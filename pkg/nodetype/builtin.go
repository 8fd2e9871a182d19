package nodetype

import (
	_ "embed"
	"sync"
)

//go:embed builtin.yaml
var builtinYAML []byte

var (
	builtinOnce sync.Once
	builtinDefs []Definition
	builtinErr  error
)

// Builtin returns the standard nt:, mix: and rep: definitions every repository starts with.
// The slice is a fresh copy on each call.
func Builtin() ([]Definition, error) {
	builtinOnce.Do(func() {
		builtinDefs, builtinErr = ParseYAML(builtinYAML)
	})
	if builtinErr != nil {
		return nil, builtinErr
	}
	out := make([]Definition, len(builtinDefs))
	for i := range builtinDefs {
		out[i] = *builtinDefs[i].Clone()
	}
	return out, nil
}

// RegisterBuiltin registers the built-in definitions that are not registered yet.
func (m *Manager) RegisterBuiltin() error {
	defs, err := Builtin()
	if err != nil {
		return err
	}
	var missing []*Definition
	for i := range defs {
		if !m.HasNodeType(defs[i].Name) {
			missing = append(missing, &defs[i])
		}
	}
	_, err = m.RegisterNodeTypes(missing, false)
	return err
}
