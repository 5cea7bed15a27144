package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"Vista/agent/model"
)

// In-memory repository implementations. They back tests and the standalone
// (no Mongo) mode and satisfy the same contracts as the Mongo repos,
// including the all-or-nothing replace semantics.

type MemoryDashboardRepo struct {
	mu         sync.RWMutex
	dashboards map[string]*model.Dashboard
	executions ExecutionRepo
}

func NewMemoryDashboardRepo(executions ExecutionRepo) *MemoryDashboardRepo {
	return &MemoryDashboardRepo{
		dashboards: make(map[string]*model.Dashboard),
		executions: executions,
	}
}

func (m *MemoryDashboardRepo) Replace(_ context.Context, dashboard *model.Dashboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := primitive.NewDateTimeFromTime(time.Now())
	dashboard.UpdatedAt = now
	if prev, ok := m.dashboards[dashboard.Key()]; ok {
		dashboard.ID = prev.ID
		dashboard.CreatedAt = prev.CreatedAt
	} else {
		dashboard.ID = primitive.NewObjectID()
		dashboard.CreatedAt = now
	}
	m.dashboards[dashboard.Key()] = dashboard
	return nil
}

func (m *MemoryDashboardRepo) Get(_ context.Context, namespace, name string) (*model.Dashboard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dashboard, ok := m.dashboards[namespace+"/"+name]
	if !ok {
		return nil, ErrNotFound
	}
	return dashboard, nil
}

func (m *MemoryDashboardRepo) GetDashboards(_ context.Context) ([]*model.Dashboard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.dashboards))
	for key := range m.dashboards {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	dashboards := make([]*model.Dashboard, 0, len(keys))
	for _, key := range keys {
		dashboards = append(dashboards, m.dashboards[key])
	}
	return dashboards, nil
}

func (m *MemoryDashboardRepo) Delete(ctx context.Context, namespace, name string) error {
	m.mu.Lock()
	key := namespace + "/" + name
	_, ok := m.dashboards[key]
	if ok {
		delete(m.dashboards, key)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if m.executions != nil {
		return m.executions.DeleteByDashboard(ctx, key)
	}
	return nil
}

func (m *MemoryDashboardRepo) ContentHash(_ context.Context, namespace, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dashboard, ok := m.dashboards[namespace+"/"+name]
	if !ok {
		return "", ErrNotFound
	}
	return dashboard.ContentHash, nil
}

type MemoryExecutionRepo struct {
	mu         sync.RWMutex
	executions map[string]*model.SearchExecution
}

func NewMemoryExecutionRepo() *MemoryExecutionRepo {
	return &MemoryExecutionRepo{
		executions: make(map[string]*model.SearchExecution),
	}
}

func (m *MemoryExecutionRepo) Insert(_ context.Context, execution *model.SearchExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if execution.ID.IsZero() {
		execution.ID = primitive.NewObjectID()
	}
	clone := *execution
	clone.Results = append([]model.SearchResult(nil), execution.Results...)
	m.executions[execution.ExecutionID] = &clone
	return nil
}

func (m *MemoryExecutionRepo) UpdateStatus(_ context.Context, executionID, status, errorMessage string, endTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	execution, ok := m.executions[executionID]
	if !ok {
		return ErrNotFound
	}
	execution.Status = status
	if errorMessage != "" {
		execution.ErrorMessage = errorMessage
	}
	if !endTime.IsZero() {
		execution.EndTime = primitive.NewDateTimeFromTime(endTime)
	}
	return nil
}

func (m *MemoryExecutionRepo) AppendResults(_ context.Context, executionID string, rows []model.SearchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	execution, ok := m.executions[executionID]
	if !ok {
		return ErrNotFound
	}
	execution.Results = append(execution.Results, rows...)
	execution.ResultCount += len(rows)
	return nil
}

func (m *MemoryExecutionRepo) Get(_ context.Context, executionID string) (*model.SearchExecution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	execution, ok := m.executions[executionID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *execution
	clone.Results = append([]model.SearchResult(nil), execution.Results...)
	return &clone, nil
}

func (m *MemoryExecutionRepo) ListBySource(_ context.Context, dashboardID, sourceID string, limit int) ([]*model.SearchExecution, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []*model.SearchExecution
	for _, execution := range m.executions {
		if execution.DashboardID == dashboardID && execution.SourceID == sourceID {
			clone := *execution
			matches = append(matches, &clone)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartTime > matches[j].StartTime
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MemoryExecutionRepo) DeleteByDashboard(_ context.Context, dashboardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, execution := range m.executions {
		if execution.DashboardID == dashboardID {
			delete(m.executions, id)
		}
	}
	return nil
}
