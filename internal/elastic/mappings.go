package elastic

// ElserInferenceID is the inference endpoint backing semantic_text fields.
const ElserInferenceID = ".elser-2-elasticsearch"

// DocsMapping stores parsed chunks and summaries of uploaded documents.
func DocsMapping() map[string]interface{} {
	keyword := map[string]interface{}{"type": "keyword"}
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"user_id":        keyword,
				"chat_id":        keyword,
				"file_name":      keyword,
				"source":         keyword,
				"document_id":    keyword,
				"doc_type":       keyword,
				"element_type":   keyword,
				"document_title": map[string]interface{}{"type": "text"},
				"start_page":     map[string]interface{}{"type": "integer"},
				"end_page":       map[string]interface{}{"type": "integer"},
				"page_number":    map[string]interface{}{"type": "integer"},
				"text": map[string]interface{}{
					"type":    "text",
					"copy_to": "semantic_text",
				},
				"semantic_text": map[string]interface{}{
					"type":         "semantic_text",
					"inference_id": ElserInferenceID,
				},
				"indexed_at": map[string]interface{}{"type": "date"},
			},
		},
	}
}

// ChatsMapping stores chat transcripts with nested messages.
func ChatsMapping() map[string]interface{} {
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"chat_id": map[string]interface{}{"type": "keyword"},
				"user_id": map[string]interface{}{"type": "keyword"},
				"messages": map[string]interface{}{
					"type": "nested",
					"properties": map[string]interface{}{
						"role":      map[string]interface{}{"type": "keyword"},
						"content":   map[string]interface{}{"type": "text"},
						"timestamp": map[string]interface{}{"type": "date"},
					},
				},
				"created_at": map[string]interface{}{"type": "date"},
				"updated_at": map[string]interface{}{"type": "date"},
			},
		},
	}
}
