package agent

import "time"

// ArtifactKind discriminates the closed set of artifact variants.
type ArtifactKind string

const (
	ArtifactDocument     ArtifactKind = "document"
	ArtifactCode         ArtifactKind = "code"
	ArtifactLearningPath ArtifactKind = "learning-path"
	ArtifactDashboard    ArtifactKind = "dashboard"
	ArtifactPresentation ArtifactKind = "presentation"
	ArtifactMap          ArtifactKind = "interactive-map"
	ArtifactHTMLPage     ArtifactKind = "html-page"
)

// Artifact is the typed output of a generation task. Exactly one of the
// variant pointers is set, matching Kind. Every artifact carries a
// human-readable Title and a CreatedAt.
type Artifact struct {
	Kind      ArtifactKind         `json:"kind"`
	Title     string               `json:"title"`
	CreatedAt time.Time            `json:"created_at"`
	Document  *DocumentContent     `json:"document,omitempty"`
	Code      *CodeContent         `json:"code,omitempty"`
	Path      *LearningPathContent `json:"learning_path,omitempty"`
	Bundle    *BundleContent       `json:"bundle,omitempty"`
}

// DocumentContent is the body and metadata of a generated document.
type DocumentContent struct {
	Content  string       `json:"content"`
	Metadata DocumentMeta `json:"metadata"`
}

// DocumentMeta carries document provenance and classification.
type DocumentMeta struct {
	Author         string    `json:"author"`
	CreatedAt      time.Time `json:"created_at"`
	Tags           []string  `json:"tags"`
	TargetAudience string    `json:"target_audience"`
	Language       string    `json:"language"`
	Category       string    `json:"category,omitempty"`
	Format         string    `json:"format,omitempty"`
}

// CodeContent is a single-file code artifact.
type CodeContent struct {
	Language string   `json:"language"`
	Source   string   `json:"source"`
	Metadata CodeMeta `json:"metadata"`
}

// CodeMeta carries code provenance and usage hints.
type CodeMeta struct {
	Purpose      string    `json:"purpose"`
	Dependencies []string  `json:"dependencies"`
	CreatedAt    time.Time `json:"created_at"`
	Author       string    `json:"author"`
	Instructions string    `json:"instructions,omitempty"`
}

// LearningPathContent is a structured curriculum artifact.
type LearningPathContent struct {
	Description string           `json:"description"`
	Modules     []LearningModule `json:"modules"`
	Metadata    PathMeta         `json:"metadata"`
}

// LearningModule is one unit of a learning path.
type LearningModule struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    string   `json:"duration"`
	Resources   []string `json:"resources"`
	Activities  []string `json:"activities"`
}

// PathMeta carries learning-path level metadata.
type PathMeta struct {
	Difficulty     string    `json:"difficulty"`
	TimeToComplete string    `json:"time_to_complete"`
	Prerequisites  []string  `json:"prerequisites"`
	CreatedAt      time.Time `json:"created_at"`
	Author         string    `json:"author"`
}

// BundleContent is a multi-file code artifact (dashboards, presentations,
// maps, HTML pages).
type BundleContent struct {
	Files      map[string]string `json:"files"`
	Libraries  []string          `json:"libraries"`
	Complexity string            `json:"complexity"`
	Metadata   CodeMeta          `json:"metadata"`
}
