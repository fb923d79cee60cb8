package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dukex/flowbridge/pkg/converter"
	"github.com/dukex/flowbridge/pkg/eventbus"
	"github.com/dukex/flowbridge/pkg/events"
	"github.com/dukex/flowbridge/pkg/mappings"
	"github.com/dukex/flowbridge/pkg/persistence"
	"github.com/dukex/flowbridge/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hookBlueprint = `{
  "name": "Hook only",
  "flow": [
    {
      "id": 1,
      "module": "webhook:CustomWebhook",
      "parameters": {"path": "orders"},
      "metadata": {"designer": {"x": 0, "y": 0, "name": "Hook"}}
    },
    {
      "id": 2,
      "module": "unknown:Thing",
      "metadata": {"designer": {"x": 300, "y": 0, "name": "Mystery"}}
    }
  ]
}`

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return p.err
}

func (p *recordingPublisher) published() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event(nil), p.events...)
}

func newService(t *testing.T, archive bool) (*Conversion, *recordingPublisher) {
	t.Helper()

	var store persistence.Persistence
	if archive {
		store = file.NewPersistence(t.TempDir())
	}

	publisher := &recordingPublisher{}
	service := NewConversion(nil, nil, converter.New(mappings.Default()), store, publisher)

	return service, publisher
}

func TestConversion_ConvertArchivesAndPublishes(t *testing.T) {
	t.Parallel()

	service, publisher := newService(t, true)
	service.newID = func() string { return "conv-1" }

	response, err := service.Convert(t.Context(), ConvertRequest{Filename: "hook.json", Data: []byte(hookBlueprint)})
	require.NoError(t, err)

	assert.Equal(t, "conv-1", response.ConversionID)
	assert.Equal(t, "Hook only", response.Workflow.Name)
	assert.Equal(t, 1, response.Stats.UnmappedCount)
	assert.Len(t, response.Warnings, 1)

	stored, err := service.FetchByID(t.Context(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "hook.json", stored.Filename)
	assert.Equal(t, "Hook only", stored.SourceName)
	assert.Equal(t, response.Workflow.ID, stored.Workflow.ID)
	assert.Equal(t, 2, stored.NodeCount)

	published := publisher.published()
	require.Len(t, published, 1)

	completed, ok := published[0].(events.ConversionCompleted)
	require.True(t, ok)
	assert.Equal(t, "conv-1", completed.ConversionID)
	assert.Equal(t, response.Workflow.ID, completed.WorkflowID)
	assert.Equal(t, "hook.json", completed.SourceName)
	assert.Equal(t, 1, completed.UnmappedCount)
	assert.True(t, completed.Archived)
}

func TestConversion_ConvertWithoutArchive(t *testing.T) {
	t.Parallel()

	service, publisher := newService(t, false)
	assert.False(t, service.Archiving())

	response, err := service.Convert(t.Context(), ConvertRequest{Data: []byte(hookBlueprint)})
	require.NoError(t, err)
	assert.Empty(t, response.ConversionID)

	published := publisher.published()
	require.Len(t, published, 1)
	assert.False(t, published[0].(events.ConversionCompleted).Archived)
}

func TestConversion_ConvertRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"html page", "<!DOCTYPE html><html></html>", converter.ErrHTMLContent},
		{"broken json", `{"flow": [`, converter.ErrInvalidJSON},
		{"missing flow", `{"name": "x"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service, publisher := newService(t, true)

			response, err := service.Convert(t.Context(), ConvertRequest{Filename: "in.json", Data: []byte(tt.input)})
			require.Error(t, err)
			assert.Nil(t, response)
			assert.True(t, IsValidationError(err))

			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}

			published := publisher.published()
			require.Len(t, published, 1)

			failed, ok := published[0].(events.ConversionFailed)
			require.True(t, ok)
			assert.True(t, failed.InputError)
			assert.Equal(t, "in.json", failed.SourceName)

			list, err := service.ListConversions(t.Context(), ListConversionsRequest{})
			require.NoError(t, err)
			assert.Zero(t, list.TotalCount)
		})
	}
}

func TestConversion_PublishFailureDoesNotFailConversion(t *testing.T) {
	t.Parallel()

	service, publisher := newService(t, false)
	publisher.err = errors.New("broker down")

	_, err := service.Convert(t.Context(), ConvertRequest{Data: []byte(hookBlueprint)})
	require.NoError(t, err)
}

func TestConversion_ListConversions(t *testing.T) {
	t.Parallel()

	service, _ := newService(t, true)

	for range 3 {
		_, err := service.Convert(t.Context(), ConvertRequest{Data: []byte(hookBlueprint)})
		require.NoError(t, err)
	}

	page, err := service.ListConversions(t.Context(), ListConversionsRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Conversions, 2)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.True(t, page.HasNextPage)

	page, err = service.ListConversions(t.Context(), ListConversionsRequest{Limit: 2, Offset: 2, SortOrder: "ASC"})
	require.NoError(t, err)
	assert.Len(t, page.Conversions, 1)
	assert.False(t, page.HasNextPage)
}

func TestValidateListConversionsRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     ListConversionsRequest
		want    ListConversionsRequest
		wantErr error
	}{
		{
			name: "defaults",
			req:  ListConversionsRequest{},
			want: ListConversionsRequest{Limit: persistence.DefaultListLimit, SortOrder: "desc"},
		},
		{
			name: "limit is clamped",
			req:  ListConversionsRequest{Limit: 500, Offset: 10, SortOrder: "asc"},
			want: ListConversionsRequest{Limit: persistence.MaxListLimit, Offset: 10, SortOrder: "asc"},
		},
		{
			name:    "negative offset",
			req:     ListConversionsRequest{Offset: -1},
			wantErr: ErrInvalidPagination,
		},
		{
			name:    "unknown sort order",
			req:     ListConversionsRequest{SortOrder: "sideways"},
			wantErr: ErrInvalidSortOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := tt.req
			err := validateListConversionsRequest(&req)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsValidationError(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestConversion_Delete(t *testing.T) {
	t.Parallel()

	service, publisher := newService(t, true)
	service.newID = func() string { return "to-delete" }

	_, err := service.Convert(t.Context(), ConvertRequest{Data: []byte(hookBlueprint)})
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), "to-delete"))

	_, err = service.FetchByID(t.Context(), "to-delete")
	assert.True(t, persistence.IsConversionNotFound(err))

	err = service.Delete(t.Context(), "to-delete")
	assert.True(t, persistence.IsConversionNotFound(err))

	err = service.Delete(t.Context(), " ")
	require.ErrorIs(t, err, ErrConversionIDMissing)

	published := publisher.published()
	require.Len(t, published, 2)
	assert.Equal(t, events.ConversionDeletedEvent, published[1].GetType())
}

func TestConversion_ArchiveDisabled(t *testing.T) {
	t.Parallel()

	service, _ := newService(t, false)

	_, err := service.FetchByID(t.Context(), "x")
	require.ErrorIs(t, err, ErrArchiveDisabled)
	assert.True(t, IsUnavailableError(err))

	_, err = service.ListConversions(t.Context(), ListConversionsRequest{})
	require.ErrorIs(t, err, ErrArchiveDisabled)

	require.ErrorIs(t, service.Delete(t.Context(), "x"), ErrArchiveDisabled)

	message, healthy := service.HealthCheck(t.Context())
	assert.True(t, healthy)
	assert.Equal(t, "Archive disabled", message)
}

func TestConversion_HealthCheck(t *testing.T) {
	t.Parallel()

	service, _ := newService(t, true)

	message, healthy := service.HealthCheck(t.Context())
	assert.True(t, healthy)
	assert.Equal(t, "Archive is healthy", message)
}

func TestParameterError(t *testing.T) {
	t.Parallel()

	err := newParameterError("ListConversions", ErrInvalidSortOrder, "sort_order", "sideways", "asc, desc")

	assert.ErrorIs(t, err, ErrInvalidSortOrder)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "ListConversions: invalid sort order: sort_order=sideways (allowed: asc, desc)", err.Error())
	assert.False(t, IsValidationError(ErrArchiveDisabled))
	assert.True(t, IsUnavailableError(ErrArchiveDisabled))
}
