package config

// Corpus defaults.
const (
	DefaultCorpusSourceDir = "stage0"
	DefaultCorpusDeltaDir  = "stage1"
)

// Extract defaults. A zero diff timeout lets every document diff run to
// its minimal result, so re-runs produce identical artifacts.
const (
	DefaultExtractDiffTimeout      = 0
	DefaultExtractComparator       = "native"
	DefaultExtractDiffBinary       = "diff"
	DefaultExtractIgnoreWhitespace = true
	DefaultExtractAutoReset        = false
)

// Reconstruct defaults.
const (
	DefaultReconstructVectorsDir = "vectors"
	DefaultReconstructVectorName = ""
	DefaultReconstructOutputDir  = "vectors/normalized"
)

// Logging defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
)

// Telemetry defaults.
const (
	DefaultTelemetryOTLPEndpoint = ""
	DefaultTelemetryOTLPInsecure = false
	DefaultTelemetryMetricsFile  = ""
)
