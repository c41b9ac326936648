package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/xavierca1/amo-sbp-bridge/internal/infra/queue"
)

// WebhookHandler is the amoCRM front door. It only parses the event and
// enqueues one reconcile task per lead; all the work happens in the queue
// worker. Always answers fast — amoCRM drops webhooks that dawdle.
type WebhookHandler struct {
	Producer queue.ProducerInterface
}

func NewWebhookHandler(producer queue.ProducerInterface) *WebhookHandler {
	return &WebhookHandler{Producer: producer}
}

// webhook sections amoCRM delivers lead events under.
var leadSections = []string{"status", "add", "update"}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	tasks := h.parse(r)

	if len(tasks) == 0 {
		// Junk or an event type we don't track. Acknowledge anyway:
		// bouncing it only makes amoCRM resend it.
		log.Printf("⏭️ webhook: no lead events in payload, ignoring")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	published := 0
	for _, task := range tasks {
		if err := h.Producer.PublishReconcile(r.Context(), task); err != nil {
			log.Printf("❌ webhook: failed to enqueue task for lead %s: %v", task.LeadID, err)
			continue
		}
		published++
	}

	if published == 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	log.Printf("📥 webhook: enqueued %d reconcile task(s)", published)
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// parse extracts lead events from either of the two shapes amoCRM sends:
// the usual form-encoded leads[status][N][...] payload, or the JSON body
// older integrations configured.
func (h *WebhookHandler) parse(r *http.Request) []queue.ReconcileTask {
	var tasks []queue.ReconcileTask

	if err := r.ParseForm(); err == nil {
		for _, section := range leadSections {
			for i := 0; ; i++ {
				leadID := r.PostForm.Get(fmt.Sprintf("leads[%s][%d][id]", section, i))
				if leadID == "" {
					break
				}
				statusID, _ := strconv.Atoi(r.PostForm.Get(fmt.Sprintf("leads[%s][%d][status_id]", section, i)))
				pipelineID, _ := strconv.Atoi(r.PostForm.Get(fmt.Sprintf("leads[%s][%d][pipeline_id]", section, i)))
				tasks = append(tasks, queue.ReconcileTask{
					LeadID:     leadID,
					StatusID:   statusID,
					PipelineID: pipelineID,
				})
			}
		}
	}
	if len(tasks) > 0 {
		return tasks
	}

	var body struct {
		Leads map[string][]struct {
			ID         json.Number `json:"id"`
			StatusID   int         `json:"status_id"`
			PipelineID int         `json:"pipeline_id"`
		} `json:"leads"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil
	}
	for _, section := range leadSections {
		for _, lead := range body.Leads[section] {
			if lead.ID.String() == "" {
				continue
			}
			tasks = append(tasks, queue.ReconcileTask{
				LeadID:     lead.ID.String(),
				StatusID:   lead.StatusID,
				PipelineID: lead.PipelineID,
			})
		}
	}
	return tasks
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
