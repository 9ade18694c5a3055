package server

import "github.com/gdarruda/langchain-vector-store-api/record"

type AddTextsPayload struct {
	Texts     []string         `json:"texts"`
	Metadatas []map[string]any `json:"metadatas"`
	IDs       []string         `json:"ids"`
}

type AddEmbeddingsPayload struct {
	Embeddings [][]float64      `json:"embeddings"`
	Metadatas  []map[string]any `json:"metadatas"`
	IDs        []string         `json:"ids"`
}

type SimilaritySearchPayload struct {
	Embedding []float64    `json:"embedding"`
	K         int          `json:"k"`
	Kwargs    SearchKwargs `json:"kwargs"`
}

type SearchKwargs struct {
	Filter SearchFilter `json:"filter"`
}

type SearchFilter struct {
	UserID string `json:"user_id"`
}

// DocumentResponse is the wire shape shared by get-by-ids and
// similarity-search-by-vector. PageContent projects metadata["data"].
type DocumentResponse struct {
	ID          string         `json:"id"`
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

func toDocumentResponses(records []record.Record) []DocumentResponse {
	docs := make([]DocumentResponse, len(records))
	for i, rec := range records {
		docs[i] = DocumentResponse{
			ID:          rec.ID,
			PageContent: rec.PageContent(),
			Metadata:    rec.Metadata,
		}
	}
	return docs
}
