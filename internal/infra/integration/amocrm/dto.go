package amocrm

type tag struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

type leadResponse struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	PipelineID int    `json:"pipeline_id"`
	StatusID   int    `json:"status_id"`
	Embedded   struct {
		Tags []tag `json:"tags"`
	} `json:"_embedded"`
}

type customFieldValue struct {
	Value string `json:"value"`
}

type customField struct {
	FieldID int                `json:"field_id"`
	Values  []customFieldValue `json:"values"`
}

type updateFieldRequest struct {
	CustomFieldsValues []customField `json:"custom_fields_values"`
}

type changeStatusRequest struct {
	StatusID int `json:"status_id"`
}

type updateTagsRequest struct {
	Embedded struct {
		Tags []tag `json:"tags"`
	} `json:"_embedded"`
}

type noteRequest struct {
	NoteType string `json:"note_type"`
	Params   struct {
		Text string `json:"text"`
	} `json:"params"`
}
