package notion

import (
	"context"
	"fmt"
)

// MockAPI is a test double for the API interface. It keeps an in-memory
// schema and page set so upsert and reconciliation behavior can be
// exercised without a live service.
type MockAPI struct {
	Schema map[string]Property

	RetrieveErr error
	UpdateErr   error
	QueryErr    error
	CreateErr   error
	UpdPageErr  error

	// Track calls
	SchemaUpdates []map[string]TypeDescriptor
	Queries       []string
	Created       []map[string]PropertyValue
	Updated       map[string]map[string]PropertyValue

	// pages by external id -> page id
	PagesByExternalID map[string]string

	nextPage int
}

// NewMockAPI returns a mock with an empty schema and page set.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		Schema:            map[string]Property{},
		Updated:           map[string]map[string]PropertyValue{},
		PagesByExternalID: map[string]string{},
	}
}

func (m *MockAPI) RetrieveDataSource(_ context.Context, dsID string) (*DataSource, error) {
	if m.RetrieveErr != nil {
		return nil, m.RetrieveErr
	}
	props := make(map[string]Property, len(m.Schema))
	for k, v := range m.Schema {
		props[k] = v
	}
	return &DataSource{ID: dsID, Properties: props}, nil
}

func (m *MockAPI) UpdateDataSourceProperties(_ context.Context, _ string, props map[string]TypeDescriptor) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.SchemaUpdates = append(m.SchemaUpdates, props)
	for col, desc := range props {
		for typeName := range desc {
			m.Schema[col] = Property{Type: typeName}
		}
	}
	return nil
}

func (m *MockAPI) QueryByExternalID(_ context.Context, _, _, externalID string) (string, error) {
	if m.QueryErr != nil {
		return "", m.QueryErr
	}
	m.Queries = append(m.Queries, externalID)
	return m.PagesByExternalID[externalID], nil
}

func (m *MockAPI) CreatePage(_ context.Context, _ string, props map[string]PropertyValue) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Created = append(m.Created, props)
	m.nextPage++
	if ext, ok := props[ExternalIDProperty]; ok {
		m.PagesByExternalID[ext.text] = fmt.Sprintf("page-%d", m.nextPage)
	}
	return nil
}

func (m *MockAPI) UpdatePage(_ context.Context, pageID string, props map[string]PropertyValue) error {
	if m.UpdPageErr != nil {
		return m.UpdPageErr
	}
	m.Updated[pageID] = props
	return nil
}
