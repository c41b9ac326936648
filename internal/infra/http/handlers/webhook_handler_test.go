package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/amo-sbp-bridge/internal/infra/http/handlers"
	"github.com/xavierca1/amo-sbp-bridge/internal/infra/queue"
)

// MockProducer captures published tasks instead of touching RabbitMQ.
type MockProducer struct {
	Tasks      []queue.ReconcileTask
	PublishErr error
}

func (m *MockProducer) PublishReconcile(ctx context.Context, task queue.ReconcileTask) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Tasks = append(m.Tasks, task)
	return nil
}

func TestWebhookFormEncodedLeadEvent(t *testing.T) {
	producer := &MockProducer{}
	h := handlers.NewWebhookHandler(producer)

	form := url.Values{}
	form.Set("leads[status][0][id]", "42")
	form.Set("leads[status][0][status_id]", "7001")
	form.Set("leads[status][0][pipeline_id]", "300")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.Handle(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "accepted"}`, w.Body.String())

	require.Len(t, producer.Tasks, 1)
	assert.Equal(t, "42", producer.Tasks[0].LeadID)
	assert.Equal(t, 7001, producer.Tasks[0].StatusID)
	assert.Equal(t, 300, producer.Tasks[0].PipelineID)
}

func TestWebhookMultipleLeadsAcrossSections(t *testing.T) {
	producer := &MockProducer{}
	h := handlers.NewWebhookHandler(producer)

	form := url.Values{}
	form.Set("leads[status][0][id]", "42")
	form.Set("leads[status][0][status_id]", "7001")
	form.Set("leads[status][1][id]", "43")
	form.Set("leads[status][1][status_id]", "7001")
	form.Set("leads[add][0][id]", "44")
	form.Set("leads[add][0][status_id]", "7002")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.Handle(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, producer.Tasks, 3)

	var ids []string
	for _, task := range producer.Tasks {
		ids = append(ids, task.LeadID)
	}
	assert.ElementsMatch(t, []string{"42", "43", "44"}, ids)
}

func TestWebhookJSONBody(t *testing.T) {
	producer := &MockProducer{}
	h := handlers.NewWebhookHandler(producer)

	body := `{"leads": {"status": [{"id": 42, "status_id": 7001, "pipeline_id": 300}]}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Handle(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, producer.Tasks, 1)
	assert.Equal(t, "42", producer.Tasks[0].LeadID)
	assert.Equal(t, 7001, producer.Tasks[0].StatusID)
}

func TestWebhookJunkBodyIgnored(t *testing.T) {
	producer := &MockProducer{}
	h := handlers.NewWebhookHandler(producer)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not a webhook"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.Handle(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ignored"}`, w.Body.String())
	assert.Empty(t, producer.Tasks)
}

func TestWebhookPublishFailure(t *testing.T) {
	producer := &MockProducer{PublishErr: errors.New("amqp: channel closed")}
	h := handlers.NewWebhookHandler(producer)

	form := url.Values{}
	form.Set("leads[status][0][id]", "42")
	form.Set("leads[status][0][status_id]", "7001")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.Handle(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, producer.Tasks)
}
