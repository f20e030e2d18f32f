package provider

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/screener/errs"
)

// StaticUniverse maps universe names to fixed symbol lists. Names are
// matched case-insensitively. The special name "ALL" is the union of every
// list.
type StaticUniverse map[string][]string

type universeFile struct {
	Universes map[string][]string `yaml:"universes"`
}

// LoadUniverseFile reads a YAML file of the form
//
//	universes:
//	  sp500: [AAPL, MSFT]
//	  watch: [TSLA]
func LoadUniverseFile(path string) (StaticUniverse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}
	var f universeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse universe file: %w", err)
	}
	u := StaticUniverse{}
	for name, syms := range f.Universes {
		u[strings.ToUpper(name)] = syms
	}
	return u, nil
}

func (u StaticUniverse) ListSymbols(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := strings.ToUpper(name)
	if key == "ALL" {
		return u.all(), nil
	}
	for k, syms := range u {
		if strings.ToUpper(k) == key {
			return normalize(syms), nil
		}
	}
	return nil, errs.Unavailable("provider.universe", "", fmt.Errorf("unknown universe %q", name))
}

func (u StaticUniverse) all() []string {
	seen := map[string]bool{}
	var out []string
	for _, syms := range u {
		for _, s := range normalize(syms) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func normalize(syms []string) []string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
