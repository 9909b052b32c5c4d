package tax

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// JURISDICTION REGISTRY
// =============================================================================

var (
	registry   = make(map[string]*Profile)
	registryMu sync.RWMutex
)

func init() {
	Register(JurisdictionQuebec, Quebec())
	Register(JurisdictionOntario, Ontario())
}

// Register makes a profile available under a jurisdiction code. Codes are
// case-insensitive; registering an existing code replaces it.
func Register(code string, p *Profile) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToUpper(code)] = p
}

// Lookup returns the profile registered for code.
func Lookup(code string) (*Profile, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJurisdiction, code)
	}
	return p, nil
}

// Jurisdictions lists registered codes in sorted order.
func Jurisdictions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
