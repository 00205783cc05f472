package core

// ArtifactStore defines the interface for binary artifact persistence.
// Implementations should be thread-safe and scope artifacts by conversation
// identifier.
type ArtifactStore interface {
	Save(conversationID, artifactID string, data []byte) error
	Get(conversationID, artifactID string) ([]byte, error)
	List(conversationID string) ([]string, error)
	Delete(conversationID, artifactID string) error
}
