package mappersmith

import (
	"sort"
	"sync"
)

// Gateway names registered out of the box.
const (
	GatewayHTTP = "http"
	GatewayTest = "test"
)

var gatewayRegistry = struct {
	sync.RWMutex
	factories map[string]GatewayFactory
}{factories: map[string]GatewayFactory{}}

func init() {
	RegisterGateway(GatewayHTTP, func() Gateway { return NewHTTPGateway() })
	RegisterGateway(GatewayTest, func() Gateway { return NewTestGateway() })
}

// RegisterGateway makes a gateway constructor selectable by name in a
// Manifest or via WithGatewayName. Registering an existing name replaces it.
func RegisterGateway(name string, factory GatewayFactory) {
	gatewayRegistry.Lock()
	defer gatewayRegistry.Unlock()
	gatewayRegistry.factories[name] = factory
}

// RegisteredGateways returns the sorted names of all registered gateways.
func RegisteredGateways() []string {
	gatewayRegistry.RLock()
	defer gatewayRegistry.RUnlock()
	names := make([]string, 0, len(gatewayRegistry.factories))
	for name := range gatewayRegistry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func gatewayByName(name string) (Gateway, error) {
	gatewayRegistry.RLock()
	factory, ok := gatewayRegistry.factories[name]
	gatewayRegistry.RUnlock()
	if !ok {
		return nil, configError("no gateway registered under %q (known: %v)", name, RegisteredGateways())
	}
	return factory(), nil
}
