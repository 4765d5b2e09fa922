package config

const (
	// DefaultPort is the HTTP port tried first
	DefaultPort = 8501

	// DefaultModelDir is the artifact directory of the dir backend
	DefaultModelDir = "."

	DefaultModelPrefix      = "rf_model_"
	DefaultColumnsPrefix    = "feature_columns_"
	DefaultVocabularyPrefix = "vocabulary_"
	DefaultArtifactSuffix   = ".json"

	// DefaultOutputColumn is the name of the appended prediction field
	DefaultOutputColumn = "Predicted Good Speed run"

	// DefaultExportName is the batch download file name without extension
	DefaultExportName = "predicted_output"

	DefaultLogDir        = "logs"
	DefaultLogMaxSize    = 100
	DefaultLogMaxAge     = 7
	DefaultLogMaxBackups = 5
)

// DefaultCategoricalFields are the closed-choice inputs of the production line
var DefaultCategoricalFields = []string{
	"Can Size",
	"Drink Type",
	"Coil type",
	"OV type",
	"Design type",
	"Customer",
	"IC type",
}

// DefaultNumericFields are the free numeric inputs with their form defaults
var DefaultNumericFields = []NumericField{
	{Name: "Good Qty (Can)", Default: 600000},
	{Name: "Spoilage (Can)", Default: 500},
	{Name: "Average speed month before", Default: 47000},
	{Name: "Average speed week before", Default: 48000},
}
