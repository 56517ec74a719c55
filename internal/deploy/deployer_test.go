package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/loykin/dagdeploy/internal/backend"
	"github.com/loykin/dagdeploy/internal/config"
	"github.com/loykin/dagdeploy/internal/graph"
)

// fakeBackend records every call in order and mirrors mutations into its
// observed task map, so repeated deployments see the state left behind.
type fakeBackend struct {
	calls       []string
	tasks       map[string]backend.TaskState
	failOn      map[string]error
	listErr     error
	lastCadence int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{tasks: map[string]backend.TaskState{}, failOn: map[string]error{}}
}

func (f *fakeBackend) record(op, name string) error {
	call := op + ":" + name
	f.calls = append(f.calls, call)
	if err, ok := f.failOn[call]; ok {
		return err
	}
	return nil
}

func (f *fakeBackend) ListTasks(_ context.Context) ([]backend.TaskState, error) {
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]backend.TaskState, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeBackend) store(spec backend.TaskSpec) {
	f.tasks[spec.Name] = backend.TaskState{
		Name:         spec.Name,
		Body:         spec.Body,
		Predecessors: spec.Predecessors,
		ComputePool:  spec.ComputePool,
		Suspended:    true,
	}
}

func (f *fakeBackend) CreateTask(_ context.Context, spec backend.TaskSpec) error {
	if err := f.record("create", spec.Name); err != nil {
		return err
	}
	f.store(spec)
	return nil
}

func (f *fakeBackend) ReplaceTask(_ context.Context, spec backend.TaskSpec) error {
	if err := f.record("replace", spec.Name); err != nil {
		return err
	}
	f.store(spec)
	return nil
}

func (f *fakeBackend) SetSchedule(_ context.Context, name string, cadenceHours int) error {
	f.lastCadence = cadenceHours
	return f.record("schedule", name)
}

func (f *fakeBackend) Resume(_ context.Context, name string) error {
	if err := f.record("resume", name); err != nil {
		return err
	}
	t := f.tasks[name]
	t.Suspended = false
	f.tasks[name] = t
	return nil
}

func (f *fakeBackend) Suspend(_ context.Context, name string) error {
	if err := f.record("suspend", name); err != nil {
		return err
	}
	t := f.tasks[name]
	t.Suspended = true
	f.tasks[name] = t
	return nil
}

func (f *fakeBackend) Execute(_ context.Context, name string) error {
	return f.record("execute", name)
}

func mlGraph(t *testing.T) *graph.TaskGraph {
	t.Helper()
	g, err := graph.Build("ML_RETRAINING_PIPELINE", []graph.TaskDefinition{
		{Name: "FeatureEngineering", Body: "CALL FE()"},
		{Name: "ModelTraining", Body: "CALL TRAIN()", After: []string{"FeatureEngineering"}},
		{Name: "BatchInference", Body: "CALL INFER()", After: []string{"ModelTraining"}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func devConfig() config.EnvironmentConfig {
	return config.EnvironmentConfig{
		Name:                 "DEV",
		ComputePool:          "DEV_WH",
		Namespace:            "ANALYTICS.DEV",
		ScheduleCadenceHours: 24,
		ApprovalRequired:     false,
		DataVolumeTier:       "SMALL",
	}
}

func prdConfig() config.EnvironmentConfig {
	cfg := devConfig()
	cfg.Name = "PRD"
	cfg.ComputePool = "PRD_WH"
	cfg.Namespace = "ANALYTICS.PRD"
	cfg.ScheduleCadenceHours = 12
	cfg.ApprovalRequired = true
	return cfg
}

func TestDeploy_CreatesTasksInTopologicalOrder(t *testing.T) {
	fb := newFakeBackend()
	d := &Deployer{Backend: fb}

	res, err := d.Deploy(context.Background(), mlGraph(t), devConfig())
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	wantCalls := []string{
		"list",
		"create:FeatureEngineering",
		"create:ModelTraining",
		"create:BatchInference",
		"suspend:FeatureEngineering",
		"execute:FeatureEngineering",
	}
	if strings.Join(fb.calls, ",") != strings.Join(wantCalls, ",") {
		t.Fatalf("call order = %v, want %v", fb.calls, wantCalls)
	}
	for _, name := range []string{"FeatureEngineering", "ModelTraining", "BatchInference"} {
		if res.PerTaskStatus[name] != StatusCreated {
			t.Fatalf("%s status = %s, want created", name, res.PerTaskStatus[name])
		}
	}
	if res.RootScheduleState != ScheduleSuspended {
		t.Fatalf("non-production deploy must leave the root suspended, got %s", res.RootScheduleState)
	}
}

func TestDeploy_SecondRunIsIdempotent(t *testing.T) {
	fb := newFakeBackend()
	d := &Deployer{Backend: fb}
	ctx := context.Background()

	if _, err := d.Deploy(ctx, mlGraph(t), devConfig()); err != nil {
		t.Fatalf("first deploy: %v", err)
	}
	fb.calls = nil

	res, err := d.Deploy(ctx, mlGraph(t), devConfig())
	if err != nil {
		t.Fatalf("second deploy: %v", err)
	}
	for name, status := range res.PerTaskStatus {
		if status != StatusUnchanged {
			t.Fatalf("%s status = %s on second run, want unchanged", name, status)
		}
	}
	for _, call := range fb.calls {
		if strings.HasPrefix(call, "create:") || strings.HasPrefix(call, "replace:") {
			t.Fatalf("second run performed mutation %s", call)
		}
	}
}

func TestDeploy_ChangedBodyTriggersReplace(t *testing.T) {
	fb := newFakeBackend()
	d := &Deployer{Backend: fb}
	ctx := context.Background()

	if _, err := d.Deploy(ctx, mlGraph(t), devConfig()); err != nil {
		t.Fatalf("first deploy: %v", err)
	}

	changed, err := graph.Build("ML_RETRAINING_PIPELINE", []graph.TaskDefinition{
		{Name: "FeatureEngineering", Body: "CALL FE()"},
		{Name: "ModelTraining", Body: "CALL TRAIN_V2()", After: []string{"FeatureEngineering"}},
		{Name: "BatchInference", Body: "CALL INFER()", After: []string{"ModelTraining"}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	res, err := d.Deploy(ctx, changed, devConfig())
	if err != nil {
		t.Fatalf("second deploy: %v", err)
	}
	if res.PerTaskStatus["ModelTraining"] != StatusUpdated {
		t.Fatalf("ModelTraining status = %s, want updated", res.PerTaskStatus["ModelTraining"])
	}
	if res.PerTaskStatus["FeatureEngineering"] != StatusUnchanged {
		t.Fatalf("FeatureEngineering should be unchanged")
	}
}

func TestDeploy_WhitespaceOnlyBodyChangeIsUnchanged(t *testing.T) {
	fb := newFakeBackend()
	d := &Deployer{Backend: fb}
	ctx := context.Background()

	if _, err := d.Deploy(ctx, mlGraph(t), devConfig()); err != nil {
		t.Fatalf("first deploy: %v", err)
	}

	reformatted, err := graph.Build("ML_RETRAINING_PIPELINE", []graph.TaskDefinition{
		{Name: "FeatureEngineering", Body: "CALL  FE()\n"},
		{Name: "ModelTraining", Body: "CALL TRAIN()", After: []string{"FeatureEngineering"}},
		{Name: "BatchInference", Body: "CALL INFER()", After: []string{"ModelTraining"}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	res, err := d.Deploy(ctx, reformatted, devConfig())
	if err != nil {
		t.Fatalf("second deploy: %v", err)
	}
	if res.PerTaskStatus["FeatureEngineering"] != StatusUnchanged {
		t.Fatalf("formatting-only change must not replace, got %s", res.PerTaskStatus["FeatureEngineering"])
	}
}

func TestDeploy_PipelineComputePoolOverride(t *testing.T) {
	fb := newFakeBackend()
	d := &Deployer{Backend: fb}

	g := mlGraph(t)
	g.ComputePool = "QUANT_WH"
	if _, err := d.Deploy(context.Background(), g, devConfig()); err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if got := fb.tasks["FeatureEngineering"].ComputePool; got != "QUANT_WH" {
		t.Fatalf("compute pool = %q, want pipeline override QUANT_WH", got)
	}
}

func TestDeploy_ProductionActivatesRootSchedule(t *testing.T) {
	fb := newFakeBackend()
	d := &Deployer{Backend: fb}

	res, err := d.Deploy(context.Background(), mlGraph(t), prdConfig())
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if res.RootScheduleState != ScheduleActive {
		t.Fatalf("PRD deploy must activate the root, got %s", res.RootScheduleState)
	}
	joined := strings.Join(fb.calls, ",")
	if !strings.Contains(joined, "schedule:FeatureEngineering") || !strings.Contains(joined, "resume:FeatureEngineering") {
		t.Fatalf("expected schedule+resume on root, calls: %v", fb.calls)
	}
	if fb.lastCadence != 12 {
		t.Fatalf("cadence = %d, want the configured 12", fb.lastCadence)
	}
	for _, call := range fb.calls {
		if strings.HasPrefix(call, "execute:") {
			t.Fatalf("PRD deploy must not trigger a manual run, calls: %v", fb.calls)
		}
	}
}

func TestDeploy_FailureHaltsAndRecordsPartialResult(t *testing.T) {
	fb := newFakeBackend()
	fb.failOn["create:ModelTraining"] = fmt.Errorf("warehouse unavailable")
	d := &Deployer{Backend: fb}

	res, err := d.Deploy(context.Background(), mlGraph(t), devConfig())
	if err == nil {
		t.Fatalf("expected deployment error")
	}
	var derr *DeploymentError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DeploymentError, got %T", err)
	}
	if derr.Task != "ModelTraining" || derr.Op != "create" {
		t.Fatalf("error should identify the failing operation: %+v", derr)
	}
	if res.PerTaskStatus["FeatureEngineering"] != StatusCreated {
		t.Fatalf("FeatureEngineering status = %s, want created", res.PerTaskStatus["FeatureEngineering"])
	}
	if res.PerTaskStatus["ModelTraining"] != StatusFailed {
		t.Fatalf("ModelTraining status = %s, want failed", res.PerTaskStatus["ModelTraining"])
	}
	if _, attempted := res.PerTaskStatus["BatchInference"]; attempted {
		t.Fatalf("BatchInference must never be attempted after an upstream failure")
	}
	for _, call := range fb.calls {
		if call == "create:BatchInference" {
			t.Fatalf("BatchInference was attempted: %v", fb.calls)
		}
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected one failure record, got %d", len(res.Errors))
	}
}

func TestDeploy_ListFailureProducesDeploymentError(t *testing.T) {
	fb := newFakeBackend()
	fb.listErr = fmt.Errorf("connection reset")
	d := &Deployer{Backend: fb}

	res, err := d.Deploy(context.Background(), mlGraph(t), devConfig())
	var derr *DeploymentError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DeploymentError, got %v", err)
	}
	if len(res.PerTaskStatus) != 0 {
		t.Fatalf("no task should carry a status when listing failed")
	}
}

func TestDeploy_ScheduleFailureMarksRootFailed(t *testing.T) {
	fb := newFakeBackend()
	fb.failOn["resume:FeatureEngineering"] = fmt.Errorf("insufficient privileges")
	d := &Deployer{Backend: fb}

	res, err := d.Deploy(context.Background(), mlGraph(t), prdConfig())
	if err == nil {
		t.Fatalf("expected error from schedule phase")
	}
	if res.PerTaskStatus["FeatureEngineering"] != StatusFailed {
		t.Fatalf("root status = %s, want failed", res.PerTaskStatus["FeatureEngineering"])
	}
}
