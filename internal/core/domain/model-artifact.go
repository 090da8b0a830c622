package domain

// ModelSource tells where the serving artifacts were resolved from.
type ModelSource string

const (
	ModelSourceLocal    ModelSource = "local"
	ModelSourceRegistry ModelSource = "mlflow"
)

// Artifact layout shared by the embedded directory and the registry run.
const (
	MetadataFile         = "model_metadata.json"
	ModelDescriptorFile  = "MLmodel"
	PreprocessorsDir     = "preprocessors"
	ScalerFile           = "scaler.json"
	ReducerFile          = "pca.json"
	FeatureNamesFile     = "feature_names.json"
	PlaceholderVersion   = "embedded"
	PlaceholderRunID     = "local"
	UnknownMetadataValue = "unknown"
)

// RequiredPreprocessingFiles lists what a preprocessors directory must hold.
var RequiredPreprocessingFiles = []string{ScalerFile, ReducerFile, FeatureNamesFile}

// ModelMetadata is the content of model_metadata.json written next to an
// embedded model.
type ModelMetadata struct {
	ModelName string `json:"model_name,omitempty"`
	Version   string `json:"version" yaml:"version"`
	RunID     string `json:"run_id" yaml:"run_id"`
	Stage     string `json:"stage,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Resolution is the concrete version a (name, stage) coordinate or a local
// directory resolved to. ModelDir always points at local files. An empty
// PreprocessingDir means the preprocessing artifacts must be fetched from the
// registry run identified by RunID.
type Resolution struct {
	Name             string
	Stage            string
	Version          string
	RunID            string
	Source           ModelSource
	SourceURI        string
	ModelDir         string
	PreprocessingDir string
}

// ModelInfo describes the model currently held by the service.
type ModelInfo struct {
	Name     string      `json:"name" yaml:"name"`
	Stage    string      `json:"stage" yaml:"stage"`
	Version  string      `json:"version" yaml:"version"`
	RunID    string      `json:"run_id" yaml:"run_id"`
	Loaded   bool        `json:"loaded" yaml:"loaded"`
	Source   ModelSource `json:"source" yaml:"source"`
	Flavor   string      `json:"flavor,omitempty" yaml:"flavor,omitempty"`
	HasProba bool        `json:"has_proba" yaml:"has_proba"`
	Features int         `json:"features,omitempty" yaml:"features,omitempty"`
}
