package cipher

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Global operation registry
var (
	operationsRegistry = make(map[string]Operation)
	registryMu         sync.RWMutex
)

// ErrUnknownOperation is returned by LookupOperation for unregistered names.
var ErrUnknownOperation = errors.New("unknown operation")

// RegisterOperation adds an operation to the global registry
func RegisterOperation(op Operation) error {
	if op == nil {
		return errors.New("cannot register nil operation")
	}

	name := op.Name()
	if name == "" {
		return errors.New("operation name cannot be empty")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := operationsRegistry[name]; exists {
		return errors.Errorf("operation %s is already registered", name)
	}

	operationsRegistry[name] = op
	return nil
}

func mustRegister(ops ...Operation) {
	for _, op := range ops {
		if err := RegisterOperation(op); err != nil {
			panic(err)
		}
	}
}

// GetOperation retrieves an operation from the registry by name
func GetOperation(name string) (Operation, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	op, exists := operationsRegistry[name]
	return op, exists
}

// LookupOperation is GetOperation returning ErrUnknownOperation on a miss.
func LookupOperation(name string) (Operation, error) {
	op, ok := GetOperation(name)
	if !ok {
		return nil, errors.Wrap(ErrUnknownOperation, name)
	}
	return op, nil
}

// ListOperations returns all registered operations sorted by name
func ListOperations() []Operation {
	return listOperations(func(Operation) bool { return true })
}

// ListOperationsByType returns operations filtered by type
func ListOperationsByType(opType OperationType) []Operation {
	return listOperations(func(op Operation) bool { return op.Type() == opType })
}

func listOperations(keep func(Operation) bool) []Operation {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ops := make([]Operation, 0, len(operationsRegistry))
	for _, op := range operationsRegistry {
		if keep(op) {
			ops = append(ops, op)
		}
	}

	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Name() < ops[j].Name()
	})

	return ops
}

// UnregisterOperation removes an operation from the registry (mainly for testing)
func UnregisterOperation(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	delete(operationsRegistry, name)
}

// ClearRegistry drops every registered operation, built-ins included
// (mainly for testing)
func ClearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()

	operationsRegistry = make(map[string]Operation)
}

// ResetRegistry clears the registry and restores the built-in set
func ResetRegistry() {
	ClearRegistry()
	registerBuiltins()
}
