package domain

type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"chunk_index"`
	Text       string `json:"text"`
	WordCount  int    `json:"word_count"`
	CharCount  int    `json:"chunk_length"`
}

// ChunkMetadata is stored next to every indexed chunk.
type ChunkMetadata struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	CharCount  int    `json:"chunk_length"`
	WordCount  int    `json:"word_count"`
}

type IndexEntry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata ChunkMetadata
}

// VectorMatch is a raw vector index hit. Distance is cosine distance.
type VectorMatch struct {
	ID       string
	Text     string
	Metadata ChunkMetadata
	Distance float64
}

type RetrievedChunk struct {
	Text            string        `json:"text"`
	Metadata        ChunkMetadata `json:"metadata"`
	SimilarityScore float64       `json:"similarity_score"`
}

type IndexMetadata struct {
	Filename string
	FileType string
}

type IndexResult struct {
	Success         bool   `json:"success"`
	DocumentID      string `json:"document_id,omitempty"`
	ChunksCount     int    `json:"chunks_count"`
	EmbeddingsCount int    `json:"embeddings_count"`
	StorageMethod   string `json:"storage_method,omitempty"`
	Error           string `json:"error,omitempty"`

	Err error `json:"-"`
}

type CollectionStats struct {
	TotalChunks    int    `json:"total_chunks"`
	CollectionName string `json:"collection_name"`
	EmbeddingModel string `json:"embedding_model"`
	// Degraded means a previous document's chunks could not be retired, so
	// TotalChunks also counts them.
	Degraded bool `json:"degraded,omitempty"`
}
