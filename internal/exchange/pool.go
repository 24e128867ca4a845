package exchange

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownExchange is returned by Pool.Get for names with no registered
// connector.
var ErrUnknownExchange = errors.New("unknown exchange")

// Pool lazily constructs exchange connectors and reuses them across calls.
// Construction failures surface on first use, not at registration.
type Pool struct {
	mu        sync.RWMutex
	factories map[string]func() (Exchange, error)
	instances map[string]Exchange
}

func NewPool() *Pool {
	return &Pool{
		factories: map[string]func() (Exchange, error){
			"binance": newBinance,
			"kraken":  newKraken,
		},
		instances: make(map[string]Exchange),
	}
}

// Register adds or replaces a connector factory. Any cached instance for the
// name is discarded.
func (p *Pool) Register(name string, factory func() (Exchange, error)) {
	name = strings.ToLower(name)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factories[name] = factory
	delete(p.instances, name)
}

// Get returns the connector for name, constructing it on first use.
func (p *Pool) Get(name string) (Exchange, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	p.mu.RLock()
	ex, ok := p.instances[name]
	p.mu.RUnlock()
	if ok {
		return ex, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if ex, ok := p.instances[name]; ok {
		return ex, nil
	}

	factory, ok := p.factories[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownExchange, name)
	}

	ex, err := factory()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create exchange %q", name)
	}
	p.instances[name] = ex
	return ex, nil
}

// Names lists the registered connector names, sorted.
func (p *Pool) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.factories))
	for name := range p.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
