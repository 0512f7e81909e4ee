package featureflag

type Flag string

const (
	FlagDisableDebugEndpoints Flag = "DISABLE_DEBUG_ENDPOINTS"
	FlagDisableOverlapScan    Flag = "DISABLE_OVERLAP_SCAN"
)
