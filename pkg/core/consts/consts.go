package consts

type ContextKey string

const (
	// TraceKey 请求追踪ID在 context 中的键
	TraceKey ContextKey = "trace_id"
)
