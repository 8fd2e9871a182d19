package jackalope

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jackalope/jackalope.go/pkg/constants"
)

var builtinNamespaces = map[string]string{
	"":    "",
	"jcr": "http://www.jcp.org/jcr/1.0",
	"nt":  "http://www.jcp.org/jcr/nt/1.0",
	"mix": "http://www.jcp.org/jcr/mix/1.0",
	"xml": "http://www.w3.org/XML/1998/namespace",
}

// namespaces is the session-local prefix to uri mapping.
type namespaces map[string]string

func newNamespaces() namespaces {
	return maps.Clone(builtinNamespaces)
}

func (ns namespaces) set(prefix, uri string) error {
	if strings.HasPrefix(strings.ToLower(prefix), "xml") {
		return fmt.Errorf("%w: prefix %q is reserved", constants.ErrRepository, prefix)
	}
	if prefix == "" || uri == "" {
		return fmt.Errorf("%w: the empty namespace cannot be remapped", constants.ErrRepository)
	}
	for p, u := range ns {
		if u == uri {
			delete(ns, p)
		}
	}
	ns[prefix] = uri
	return nil
}

func (ns namespaces) prefixes() []string {
	return slices.Sorted(maps.Keys(ns))
}

func (ns namespaces) uri(prefix string) (string, error) {
	uri, ok := ns[prefix]
	if !ok {
		return "", fmt.Errorf("%w: unknown namespace prefix %q", constants.ErrRepository, prefix)
	}
	return uri, nil
}

func (ns namespaces) prefix(uri string) (string, error) {
	for p, u := range ns {
		if u == uri {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown namespace uri %q", constants.ErrRepository, uri)
}
