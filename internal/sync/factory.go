package sync

import (
	"fmt"

	"github.com/fleetsync/fleetsync/internal/model"
)

// Factory resolves the handler responsible for an infrastructure mapping
// type. A pure lookup table: handlers are wired once at startup and
// shared by the scheduler, the event consumer and on-demand callers.
type Factory struct {
	handlers map[model.MappingType]Handler
}

// NewFactory builds the lookup table.
func NewFactory(vm *VMHandler, ami *AMIHandler, codeDeploy *CodeDeployHandler, container *ContainerHandler, paas *PaaSHandler) *Factory {
	return &Factory{handlers: map[model.MappingType]Handler{
		model.MappingAWSSSH:        vm,
		model.MappingAWSAMI:        ami,
		model.MappingAWSCodeDeploy: codeDeploy,
		model.MappingKubernetes:    container,
		model.MappingECS:           container,
		model.MappingPCF:           paas,
	}}
}

// Resolve returns the handler for a mapping type. Explicitly unsupported
// types return no handler and no error so callers can skip them
// silently; an unrecognized type is a configuration error.
func (f *Factory) Resolve(t model.MappingType) (Handler, error) {
	if t == model.MappingServerless {
		return nil, nil
	}
	h, ok := f.handlers[t]
	if !ok {
		return nil, fmt.Errorf("no handler for infrastructure mapping type %q", t)
	}
	return h, nil
}
