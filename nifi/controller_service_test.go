package nifi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func processorRef(id string) ReferencingComponent {
	return ReferencingComponent{
		Component: ReferencingComponentDetail{Id: id, ReferenceType: "Processor"},
	}
}

func TestGetName(t *testing.T) {
	fake := &fakeEntity{id: "cs-1", name: "hbase-client", state: State_ENABLED, version: 1}
	mux := http.NewServeMux()
	mux.Handle("/nifi-api/controller-services/cs-1", fake)
	client := newTestClient(t, mux)

	name, err := client.ControllerService("cs-1").GetName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hbase-client", name)
}

func TestGetReferencingComponentsFiltersAndPreservesOrder(t *testing.T) {
	fake := &fakeEntity{
		id: "cs-1", state: State_ENABLED, version: 1,
		refs: []ReferencingComponent{
			processorRef("p-1"),
			{Component: ReferencingComponentDetail{Id: "rt-1", ReferenceType: "ReportingTask"}},
			processorRef("p-2"),
			{Component: ReferencingComponentDetail{Id: "cs-2", ReferenceType: "ControllerService"}},
		},
	}
	mux := http.NewServeMux()
	mux.Handle("/nifi-api/controller-services/cs-1", fake)
	client := newTestClient(t, mux)

	processors, err := client.ControllerService("cs-1").GetReferencingComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, processors, 2)
	assert.Equal(t, "p-1", processors[0].Id)
	assert.Equal(t, "p-2", processors[1].Id)
}

func TestStopReferencingComponentsCollectsFailures(t *testing.T) {
	service := &fakeEntity{
		id: "cs-1", state: State_ENABLED, version: 1,
		refs: []ReferencingComponent{processorRef("p-1"), processorRef("p-2")},
	}
	disabled := &fakeEntity{id: "p-1", state: State_DISABLED, version: 1}
	running := &fakeEntity{id: "p-2", state: State_RUNNING, version: 1}
	mux := http.NewServeMux()
	mux.Handle("/nifi-api/controller-services/cs-1", service)
	mux.Handle("/nifi-api/processors/p-1", disabled)
	mux.Handle("/nifi-api/processors/p-2", running)
	client := newTestClient(t, mux)

	err := client.ControllerService("cs-1").StopReferencingComponents(context.Background())
	require.Error(t, err)

	// The disabled processor fails, the running one is still stopped.
	failures := multierr.Errors(err)
	require.Len(t, failures, 1)
	transition := &StateTransitionError{}
	assert.True(t, errors.As(failures[0], &transition))
	assert.Empty(t, disabled.writeLog())
	assert.Equal(t, State_STOPPED, running.currentState())
}

func TestControllerServiceEnableIsUnconditional(t *testing.T) {
	fake := &fakeEntity{id: "cs-1", state: State_ENABLED, version: 2}
	mux := http.NewServeMux()
	mux.Handle("/nifi-api/controller-services/cs-1", fake)
	client := newTestClient(t, mux)

	// Enabling an already enabled service still issues the write.
	require.NoError(t, client.ControllerService("cs-1").Enable(context.Background()))
	writes := fake.writeLog()
	require.Len(t, writes, 1)
	assert.Equal(t, State_ENABLED, writes[0].Component.State)
	assert.Equal(t, 2, writes[0].Revision.Version)
}

func TestControllerServiceRestartOrder(t *testing.T) {
	var mu sync.Mutex
	order := []string{}
	record := func(id string) func(Entity) {
		return func(update Entity) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, fmt.Sprintf("%s %s", id, update.Component.State))
		}
	}

	service := &fakeEntity{
		id: "cs-1", state: State_ENABLED, version: 1,
		refs: []ReferencingComponent{processorRef("p-1"), processorRef("p-2")},
	}
	service.onWrite = record("cs-1")
	first := &fakeEntity{id: "p-1", state: State_RUNNING, version: 1, onWrite: record("p-1")}
	second := &fakeEntity{id: "p-2", state: State_RUNNING, version: 1, onWrite: record("p-2")}

	mux := http.NewServeMux()
	mux.Handle("/nifi-api/controller-services/cs-1", service)
	mux.Handle("/nifi-api/processors/p-1", first)
	mux.Handle("/nifi-api/processors/p-2", second)
	client := newTestClient(t, mux)

	require.NoError(t, client.ControllerService("cs-1").Restart(context.Background()))

	assert.Equal(t, []string{
		"p-1 STOPPED",
		"p-2 STOPPED",
		"cs-1 DISABLED",
		"cs-1 ENABLED",
		"p-1 RUNNING",
		"p-2 RUNNING",
	}, order)
	assert.Equal(t, State_ENABLED, service.currentState())
	assert.Equal(t, State_RUNNING, first.currentState())
	assert.Equal(t, State_RUNNING, second.currentState())
}

func TestUpdateProperty(t *testing.T) {
	fake := &fakeEntity{
		id: "cs-1", state: State_DISABLED, version: 6,
		properties: map[string]interface{}{
			"ZooKeeper Quorum": "zk-1:2181",
			"Session Timeout":  "30 sec",
		},
	}
	mux := http.NewServeMux()
	mux.Handle("/nifi-api/controller-services/cs-1", fake)
	client := newTestClient(t, mux)

	err := client.ControllerService("cs-1").UpdateProperty(context.Background(), "ZooKeeper Quorum", "zk-2:2181")
	require.NoError(t, err)

	writes := fake.writeLog()
	require.Len(t, writes, 1)
	assert.Equal(t, 6, writes[0].Revision.Version)
	assert.Equal(t, "zk-2:2181", writes[0].Component.Properties["ZooKeeper Quorum"])
	// Untouched properties ride along unchanged.
	assert.Equal(t, "30 sec", writes[0].Component.Properties["Session Timeout"])
}

func TestUpdatePropertyVersionConflict(t *testing.T) {
	fake := &fakeEntity{id: "cs-1", state: State_DISABLED, version: 6, conflict: true}
	mux := http.NewServeMux()
	mux.Handle("/nifi-api/controller-services/cs-1", fake)
	client := newTestClient(t, mux)

	err := client.ControllerService("cs-1").UpdateProperty(context.Background(), "Session Timeout", "60 sec")
	require.Error(t, err)
	conflict := &VersionConflictError{}
	assert.True(t, errors.As(err, &conflict))
}

func TestGetControllerServicesDefaultsToRoot(t *testing.T) {
	var requested string
	mux := http.NewServeMux()
	mux.HandleFunc("/nifi-api/flow/process-groups/root/controller-services", func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		fmt.Fprint(w, `{"controllerServices": [
			{"component": {"id": "cs-1"}},
			{"component": {"id": "cs-2"}}
		]}`)
	})
	client := newTestClient(t, mux)

	services, err := client.GetControllerServices(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/nifi-api/flow/process-groups/root/controller-services", requested)
	require.Len(t, services, 2)
	assert.Equal(t, "cs-1", services[0].Id)
	assert.Equal(t, "cs-2", services[1].Id)
}
